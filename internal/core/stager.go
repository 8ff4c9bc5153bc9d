package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

// Stager rebuilds a package's payload tree under a private staging root by
// copying every installed path off the live filesystem. Directories are
// created first in list order, then file content is copied, optionally with
// several workers. Per-path problems are accumulated in the report instead
// of aborting the run.
type Stager struct {
	copier ports.FileCopier
}

func NewStager(copier ports.FileCopier) Stager {
	return Stager{copier: copier}
}

type StageRequest struct {
	StagingRoot string
	Files       []types.InstalledFile
	Workers     int
}

type copyTask struct {
	src   string
	dst   string
	entry types.StagedEntry
}

type copyResult struct {
	entry   types.StagedEntry
	failure *types.StageFailure
}

func (s Stager) Stage(ctx context.Context, req StageRequest) (types.StageReport, error) {
	assert.NotEmpty(ctx, req.StagingRoot, "staging root must be set")
	workers := req.Workers
	if workers < 1 {
		workers = 1
	}

	if err := os.MkdirAll(req.StagingRoot, 0o755); err != nil {
		return types.StageReport{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create staging root " + req.StagingRoot).
			WithCause(err)
	}

	report := types.StageReport{}
	tasks := make([]copyTask, 0, len(req.Files))

	// First pass walks the installed list in database order: it captures the
	// live attributes of every path, creates directories immediately and
	// queues everything else for the copy pool.
	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			return s.abortStaging(req.StagingRoot, err)
		}
		src := filepath.Clean(file.Path)
		if !filepath.IsAbs(src) || src == "/" {
			log.Ctx(ctx).Warn().Str("path", file.Path).Msg("skipping non-absolute installed path")
			report.Skipped = append(report.Skipped, file.Path)
			continue
		}
		rel := strings.TrimPrefix(src, "/")
		dst := filepath.Join(req.StagingRoot, rel)

		info, err := os.Lstat(src)
		if err != nil {
			// Paths listed by the database but gone from disk are drift,
			// not an error. Anything else is a real failure.
			if errors.Is(err, fs.ErrNotExist) {
				log.Ctx(ctx).Debug().Str("path", src).Msg("installed path vanished, skipping")
				report.Skipped = append(report.Skipped, src)
				continue
			}
			report.Failures = append(report.Failures, types.StageFailure{Path: src, Reason: err.Error()})
			log.Ctx(ctx).Warn().Str("path", src).Err(err).Msg("installed path is not readable")
			continue
		}
		entry := stagedEntryFor(rel, info)

		mode := info.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(dst, 0o755); err != nil {
				report.Failures = append(report.Failures, types.StageFailure{Path: src, Reason: err.Error()})
				continue
			}
			report.Entries = append(report.Entries, entry)
		case mode&os.ModeSymlink != 0:
			target, err := os.Readlink(src)
			if err != nil {
				report.Failures = append(report.Failures, types.StageFailure{Path: src, Reason: err.Error()})
				continue
			}
			entry.LinkTarget = target
			tasks = append(tasks, copyTask{src: src, dst: dst, entry: entry})
		case mode&os.ModeNamedPipe != 0:
			tasks = append(tasks, copyTask{src: src, dst: dst, entry: entry})
		case mode.IsRegular():
			tasks = append(tasks, copyTask{src: src, dst: dst, entry: entry})
		default:
			log.Ctx(ctx).Warn().Str("path", src).Str("mode", mode.String()).Msg("skipping unsupported file type")
			report.Skipped = append(report.Skipped, src)
		}
	}

	results := s.runCopyPool(ctx, tasks, workers)
	for result := range results {
		if result.failure != nil {
			report.Failures = append(report.Failures, *result.failure)
			log.Ctx(ctx).Warn().Str("path", result.failure.Path).Str("reason", result.failure.Reason).Msg("copy failed")
			continue
		}
		report.Entries = append(report.Entries, result.entry)
		if result.entry.Kind == types.EntryKindFile {
			report.TotalSize += result.entry.Size
		}
	}
	if err := ctx.Err(); err != nil {
		return s.abortStaging(req.StagingRoot, err)
	}

	log.Ctx(ctx).Debug().
		Int("entries", len(report.Entries)).
		Int("skipped", len(report.Skipped)).
		Int("failures", len(report.Failures)).
		Int64("total_size", report.TotalSize).
		Msg("staging finished")
	return report, nil
}

func (s Stager) runCopyPool(ctx context.Context, tasks []copyTask, workers int) <-chan copyResult {
	queue := make(chan copyTask)
	results := make(chan copyResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if ctx.Err() != nil {
					return
				}
				results <- s.copyOne(ctx, task)
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case queue <- task:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

func (s Stager) copyOne(ctx context.Context, task copyTask) copyResult {
	if err := os.MkdirAll(filepath.Dir(task.dst), 0o755); err != nil {
		return copyResult{failure: &types.StageFailure{Path: task.src, Reason: err.Error()}}
	}
	var err error
	switch task.entry.Kind {
	case types.EntryKindLink:
		err = s.copier.CopyLink(ctx, task.entry.LinkTarget, task.dst)
	case types.EntryKindFifo:
		err = s.copier.CopyFifo(ctx, task.dst, task.entry.Mode)
	default:
		err = s.copier.CopyFile(ctx, task.src, task.dst)
	}
	if err != nil {
		return copyResult{failure: &types.StageFailure{Path: task.src, Reason: err.Error()}}
	}
	return copyResult{entry: task.entry}
}

func stagedEntryFor(rel string, info os.FileInfo) types.StagedEntry {
	entry := types.StagedEntry{
		Path: rel,
		Kind: entryKindOf(info.Mode()),
		Mode: uint32(info.Mode().Perm()),
	}
	if entry.Kind == types.EntryKindFile {
		entry.Size = info.Size()
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		entry.UID = int(stat.Uid)
		entry.GID = int(stat.Gid)
		entry.MTimeSec = stat.Mtim.Sec
		entry.MTimeNsec = stat.Mtim.Nsec
	}
	return entry
}

func entryKindOf(mode os.FileMode) types.EntryKind {
	switch {
	case mode.IsDir():
		return types.EntryKindDir
	case mode&os.ModeSymlink != 0:
		return types.EntryKindLink
	case mode&os.ModeNamedPipe != 0:
		return types.EntryKindFifo
	default:
		return types.EntryKindFile
	}
}

// abortStaging tears the staging root down again; a canceled run must not
// leave a half-populated tree behind.
func (s Stager) abortStaging(root string, err error) (types.StageReport, error) {
	_ = os.RemoveAll(root)
	return types.StageReport{}, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("staging canceled").
		WithCause(err)
}
