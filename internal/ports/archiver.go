package ports

import (
	"context"

	"pacrepack/internal/types"
)

// ArchiveRequest carries everything the archiver needs to emit one package
// archive. Entries are in final archive order; their recorded ownership is
// authoritative (the normalized fakeroot-equivalent view), not whatever the
// staged copies happen to be owned by.
type ArchiveRequest struct {
	StagingRoot string
	PkgInfo     []byte
	Mtree       []byte
	Entries     []types.ManifestEntry
	BuildDate   int64
	Compression types.CompressionLevel
	OutputPath  string
}

type Archiver interface {
	Create(ctx context.Context, req ArchiveRequest) error
}
