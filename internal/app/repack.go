package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/core"
	"pacrepack/internal/policies"
	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

const executableName = "pacrepack"

// Repack rebuilds an installable archive for one installed package: resolve
// the installed set, stage it, synthesize metadata, build the manifest,
// archive, and finalize with a checksum sidecar. Every stage is a hard gate;
// there are no retries.
func (s Service) Repack(ctx context.Context, req RepackRequest) (RepackResult, error) {
	name := strings.TrimSpace(req.Package)
	if name == "" {
		return RepackResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}

	run := newRunContext(s.Clock)
	logger := log.Ctx(ctx).With().Str("package", name).Str("run", run.ShortID()).Logger()
	ctx = logger.WithContext(ctx)
	warnConcurrentRuns(ctx, executableName)

	installed, err := s.DB.IsInstalled(ctx, name)
	if err != nil {
		return RepackResult{}, err
	}
	if !installed {
		return RepackResult{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s is not installed", name))
	}
	files, err := s.DB.InstalledFiles(ctx, name)
	if err != nil {
		return RepackResult{}, err
	}
	if len(files) == 0 {
		logger.Warn().Msg("package owns no files, rebuilding a metadata-only archive")
	}
	fields, err := s.DB.PackageInfo(ctx, name)
	if err != nil {
		return RepackResult{}, err
	}

	workRoot := req.WorkRoot
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	runDir := filepath.Join(workRoot, name+"-"+run.ShortID())
	stagingRoot := filepath.Join(runDir, "pkg")
	defer s.cleanupStaging(ctx, req.Cleanup, runDir)

	copier, err := s.CopierFactory(req.Sudo)
	if err != nil {
		return RepackResult{}, err
	}
	report, err := core.NewStager(copier).Stage(ctx, core.StageRequest{
		StagingRoot: stagingRoot,
		Files:       files,
		Workers:     req.Workers,
	})
	if err != nil {
		return RepackResult{}, err
	}
	if err := policies.NewFailurePolicy(req.CopyFailureLimit).Check(report); err != nil {
		return RepackResult{}, err
	}

	overrides, err := s.Overrides.Load(req.OverridesPath)
	if err != nil {
		return RepackResult{}, err
	}
	meta, err := core.NewSynthesizer().Synthesize(ctx, core.MetadataInput{
		Name:        name,
		Fields:      fields,
		TotalSize:   report.TotalSize,
		BuildDate:   run.StartedAt.Unix(),
		Packager:    run.Packager,
		MachineArch: run.MachineArch,
	})
	if err != nil {
		return RepackResult{}, err
	}
	meta = core.ApplyOverrides(meta, overrides)
	pkgInfo := core.RenderPackageInfo(meta)

	entries, err := core.NewManifestBuilder().Build(ctx, core.ManifestRequest{
		StagingRoot: stagingRoot,
		Overrides:   report.OverrideMap(),
	})
	if err != nil {
		return RepackResult{}, err
	}
	mtreeData, err := core.NewMtreeCodec().Render(entries)
	if err != nil {
		return RepackResult{}, err
	}

	if err := writeMetadataRecord(stagingRoot, ".PKGINFO", pkgInfo); err != nil {
		return RepackResult{}, err
	}
	if err := writeMetadataRecord(stagingRoot, ".MTREE", mtreeData); err != nil {
		return RepackResult{}, err
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	archivePath := filepath.Join(outputDir, archiveFileName(meta))
	if err := s.Archiver.Create(ctx, ports.ArchiveRequest{
		StagingRoot: stagingRoot,
		PkgInfo:     pkgInfo,
		Mtree:       mtreeData,
		Entries:     entries,
		BuildDate:   meta.BuildDate,
		Compression: req.Compression,
		OutputPath:  archivePath,
	}); err != nil {
		return RepackResult{}, err
	}

	sum, checksumPath, err := s.finalize(archivePath)
	if err != nil {
		return RepackResult{}, err
	}

	logger.Info().
		Str("archive", archivePath).
		Str("md5", sum).
		Int("entries", len(entries)).
		Int64("size", report.TotalSize).
		Msg("package rebuilt")
	return RepackResult{
		Package:      meta.Name,
		Version:      meta.Version,
		Arch:         meta.Arch,
		ArchivePath:  archivePath,
		ChecksumPath: checksumPath,
		MD5:          sum,
		EntryCount:   len(entries),
		TotalSize:    report.TotalSize,
		StagingRoot:  stagingRoot,
		Skipped:      len(report.Skipped),
		Failures:     len(report.Failures),
	}, nil
}

func archiveFileName(meta types.PackageMeta) string {
	return fmt.Sprintf("%s-%s-%s.pkg.tar.zst", meta.Name, meta.Version, meta.Arch)
}

// finalize guards the success report: the archive must exist with content
// before the checksum sidecar is written and still be there afterwards. The
// pre-check catches an archiver that reported success without producing
// output, in which case no sidecar is written at all.
func (s Service) finalize(archivePath string) (string, string, error) {
	info, err := os.Stat(archivePath)
	if err != nil || info.Size() == 0 {
		return "", "", verificationError(archivePath, err)
	}
	sum, err := fileMD5(archivePath)
	if err != nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to checksum " + archivePath).
			WithCause(err)
	}
	checksumPath := archivePath + ".md5"
	line := sum + "  " + filepath.Base(archivePath) + "\n"
	if err := os.WriteFile(checksumPath, []byte(line), 0o644); err != nil {
		return "", "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write checksum file " + checksumPath).
			WithCause(err)
	}
	if info, err := os.Stat(archivePath); err != nil || info.Size() == 0 {
		return "", "", verificationError(archivePath, err)
	}
	return sum, checksumPath, nil
}

func verificationError(path string, cause error) error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("archive missing or empty: " + path)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return builder
}

func fileMD5(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func writeMetadataRecord(stagingRoot string, name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(stagingRoot, name), data, 0o644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + name).
			WithCause(err)
	}
	return nil
}

// cleanupStaging disposes of the run directory according to the cleanup
// mode. A canceled run is always swept so the prompt cannot block a ^C.
func (s Service) cleanupStaging(ctx context.Context, mode types.CleanupMode, runDir string) {
	if _, err := os.Stat(runDir); err != nil {
		return
	}
	if ctx.Err() != nil {
		os.RemoveAll(runDir)
		return
	}
	switch mode {
	case types.CleanupModeRemove:
		if err := os.RemoveAll(runDir); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("dir", runDir).Msg("failed to remove staging directory")
			return
		}
		log.Ctx(ctx).Debug().Str("dir", runDir).Msg("staging directory removed")
	case types.CleanupModeKeep:
		log.Ctx(ctx).Info().Str("dir", runDir).Msg("staging directory kept")
	default:
		if s.Confirm.Confirm("delete staging directory " + runDir + "? [y/N]") {
			os.RemoveAll(runDir)
			return
		}
		log.Ctx(ctx).Info().Str("dir", runDir).Msg("staging directory kept")
	}
}
