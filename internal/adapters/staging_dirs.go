package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

// StagingDirAdapter scans a work root for per-run staging directories left
// behind by earlier rebuilds. Only directories named <package>-<run id> that
// carry the pkg payload subdirectory are considered ours; everything else
// under the work root is ignored.
type StagingDirAdapter struct {
	Root string
}

func NewStagingDirAdapter(root string) StagingDirAdapter {
	return StagingDirAdapter{Root: root}
}

func (a StagingDirAdapter) List(ctx context.Context) ([]types.StagingDirInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(a.Root) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("work root is empty")
	}
	entries, err := os.ReadDir(a.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return []types.StagingDirInfo{}, nil
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read work root").
			WithCause(err)
	}
	var dirs []types.StagingDirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		pkg, runID, ok := parseStagingDirName(name)
		if !ok {
			continue
		}
		path := filepath.Join(a.Root, name)
		marker, err := os.Stat(filepath.Join(path, "pkg"))
		if err != nil || !marker.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read staging directory info").
				WithCause(err)
		}
		dirs = append(dirs, types.StagingDirInfo{
			Name:    name,
			Package: pkg,
			RunID:   runID,
			Path:    path,
			ModTime: info.ModTime().UTC(),
		})
	}
	log.Debug().Str("root", a.Root).Int("count", len(dirs)).Msg("listed staging directories")
	return dirs, nil
}

func (a StagingDirAdapter) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Root) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("work root is empty")
	}
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("staging directory name is empty")
	}
	if strings.Contains(name, string(os.PathSeparator)) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("staging directory name contains path separator")
	}
	path := filepath.Join(a.Root, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("staging directory not found")
		}
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat staging directory").
			WithCause(err)
	}
	if err := os.RemoveAll(path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to remove staging directory").
			WithCause(err)
	}
	return nil
}

// parseStagingDirName splits <package>-<run id> on the last dash so dashed
// package names stay intact. The run suffix is the eight hex characters the
// stager appends per run.
func parseStagingDirName(name string) (string, string, bool) {
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	pkg := name[:idx]
	runID := name[idx+1:]
	if !isRunID(runID) {
		return "", "", false
	}
	return pkg, runID, true
}

func isRunID(value string) bool {
	if len(value) != 8 {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

var _ ports.StagingStore = StagingDirAdapter{}
