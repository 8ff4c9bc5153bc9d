package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/core"
	"pacrepack/internal/types"
)

// Inspect streams an archive back through the read path: metadata parsed,
// manifest decoded, every content entry re-hashed and checked against the
// manifest. A non-empty mismatch list is reported as an error so the command
// exits non-zero, but the result still carries everything that was read.
func (s Service) Inspect(ctx context.Context, req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.ArchivePath)
	if path == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive path is required")
	}

	content, err := s.Reader.Read(ctx, path)
	if err != nil {
		return InspectResult{}, err
	}
	if len(content.PkgInfo) == 0 {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive has no .PKGINFO record")
	}
	if len(content.Mtree) == 0 {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("archive has no .MTREE record")
	}

	meta, err := core.ParsePackageInfo(content.PkgInfo)
	if err != nil {
		return InspectResult{}, err
	}
	manifest, err := core.NewMtreeCodec().Parse(content.Mtree)
	if err != nil {
		return InspectResult{}, err
	}

	result := InspectResult{
		Meta:       meta,
		EntryCount: len(content.Entries),
		Mismatches: verifyEntries(manifest, content.Entries),
	}
	for _, entry := range content.Entries {
		if entry.Kind == types.EntryKindFile {
			result.TotalSize += entry.Size
		}
	}

	if len(result.Mismatches) > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("archive failed verification: %d mismatches", len(result.Mismatches)))
	}
	log.Ctx(ctx).Debug().
		Str("archive", path).
		Int("entries", result.EntryCount).
		Msg("archive verified")
	return result, nil
}

// verifyEntries cross-checks the manifest against what the archive actually
// contains, in both directions.
func verifyEntries(manifest []types.ManifestEntry, observed []types.ManifestEntry) []string {
	recorded := make(map[string]types.ManifestEntry, len(manifest))
	for _, entry := range manifest {
		recorded[entry.Path] = entry
	}

	var mismatches []string
	seen := make(map[string]struct{}, len(observed))
	for _, entry := range observed {
		seen[entry.Path] = struct{}{}
		want, ok := recorded[entry.Path]
		if !ok {
			mismatches = append(mismatches, entry.Path+": not in manifest")
			continue
		}
		if want.Kind != entry.Kind {
			mismatches = append(mismatches, fmt.Sprintf("%s: kind %s != %s", entry.Path, entry.Kind, want.Kind))
			continue
		}
		if want.UID != entry.UID || want.GID != entry.GID {
			mismatches = append(mismatches, fmt.Sprintf("%s: ownership %d:%d != %d:%d",
				entry.Path, entry.UID, entry.GID, want.UID, want.GID))
		}
		if want.Mode != entry.Mode {
			mismatches = append(mismatches, fmt.Sprintf("%s: mode %o != %o", entry.Path, entry.Mode, want.Mode))
		}
		switch entry.Kind {
		case types.EntryKindFile:
			if want.Size != entry.Size {
				mismatches = append(mismatches, fmt.Sprintf("%s: size %d != %d", entry.Path, entry.Size, want.Size))
			}
			if want.MD5 != entry.MD5 || want.SHA256 != entry.SHA256 {
				mismatches = append(mismatches, entry.Path+": digest mismatch")
			}
		case types.EntryKindLink:
			if want.LinkTarget != entry.LinkTarget {
				mismatches = append(mismatches, fmt.Sprintf("%s: link target %q != %q",
					entry.Path, entry.LinkTarget, want.LinkTarget))
			}
		}
	}
	for _, entry := range manifest {
		if _, ok := seen[entry.Path]; !ok {
			mismatches = append(mismatches, entry.Path+": missing from archive")
		}
	}
	return mismatches
}
