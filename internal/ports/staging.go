package ports

import (
	"context"

	"pacrepack/internal/types"
)

// StagingStore enumerates leftover per-run staging directories under a work
// root and removes the ones a sweep decides against keeping.
type StagingStore interface {
	List(ctx context.Context) ([]types.StagingDirInfo, error)
	Remove(ctx context.Context, name string) error
}
