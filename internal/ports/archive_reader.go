package ports

import (
	"context"

	"pacrepack/internal/types"
)

// ArchiveContent is the fully streamed view of one package archive: the raw
// metadata records plus one observed entry per payload member, with digests
// recomputed from the member content.
type ArchiveContent struct {
	PkgInfo []byte
	Mtree   []byte
	Entries []types.ManifestEntry
}

type ArchiveReader interface {
	Read(ctx context.Context, path string) (ArchiveContent, error)
}
