package core

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/types"
)

// ManifestBuilder walks the staging root in lexical order and produces one
// integrity record per staged path. Digests are always computed from the
// staged copies, never from the live filesystem, so the manifest describes
// exactly what ships in the archive. Recorded staging attributes override
// whatever the staged copies are owned by; paths staged implicitly (parents
// not owned by the package) fall back to root ownership.
type ManifestBuilder struct{}

func NewManifestBuilder() ManifestBuilder {
	return ManifestBuilder{}
}

type ManifestRequest struct {
	StagingRoot string
	Overrides   map[string]types.StagedEntry
}

func (b ManifestBuilder) Build(ctx context.Context, req ManifestRequest) ([]types.ManifestEntry, error) {
	assert.NotEmpty(ctx, req.StagingRoot, "staging root must be set")

	var entries []types.ManifestEntry
	walkErr := filepath.WalkDir(req.StagingRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == req.StagingRoot {
			return nil
		}
		rel, err := filepath.Rel(req.StagingRoot, path)
		if err != nil {
			return err
		}
		// Dot-named entries directly under the staging root are metadata
		// files, not payload, and never appear in the manifest.
		if filepath.Dir(rel) == "." && strings.HasPrefix(filepath.Base(rel), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		entry, err := b.entryFor(path, rel, d, req.Overrides)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if walkErr != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("manifest build failed for " + req.StagingRoot).
			WithCause(walkErr)
	}

	log.Ctx(ctx).Debug().Int("entries", len(entries)).Msg("manifest built")
	return entries, nil
}

func (b ManifestBuilder) entryFor(path string, rel string, d fs.DirEntry, overrides map[string]types.StagedEntry) (types.ManifestEntry, error) {
	info, err := d.Info()
	if err != nil {
		return types.ManifestEntry{}, err
	}

	entry := types.ManifestEntry{
		Path: rel,
		Kind: entryKindOf(info.Mode()),
		Mode: uint32(info.Mode().Perm()),
	}
	modTime := info.ModTime()
	entry.MTimeSec = modTime.Unix()
	entry.MTimeNsec = int64(modTime.Nanosecond())

	if override, ok := overrides[rel]; ok {
		entry.Kind = override.Kind
		entry.UID = override.UID
		entry.GID = override.GID
		entry.Mode = override.Mode
		entry.MTimeSec = override.MTimeSec
		entry.MTimeNsec = override.MTimeNsec
	}

	switch entry.Kind {
	case types.EntryKindFile:
		entry.Size = info.Size()
		entry.MD5, entry.SHA256, err = digestFile(path)
		if err != nil {
			return types.ManifestEntry{}, err
		}
	case types.EntryKindLink:
		entry.LinkTarget, err = os.Readlink(path)
		if err != nil {
			return types.ManifestEntry{}, err
		}
	}
	return entry, nil
}

// digestFile computes both required digests in a single pass over the file.
func digestFile(path string) (string, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	md5Hash := md5.New()
	shaHash := sha256.New()
	if _, err := io.Copy(io.MultiWriter(md5Hash, shaHash), file); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(md5Hash.Sum(nil)), hex.EncodeToString(shaHash.Sum(nil)), nil
}
