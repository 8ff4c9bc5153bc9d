package ports

import (
	"context"

	"pacrepack/internal/types"
)

// PackageDB is the structured query interface over the system package
// database. Implementations distinguish "package unknown" (a NotFound error)
// from "query tool unusable" (a FailedPrecondition error).
type PackageDB interface {
	IsInstalled(ctx context.Context, name string) (bool, error)
	InstalledFiles(ctx context.Context, name string) ([]types.InstalledFile, error)
	PackageInfo(ctx context.Context, name string) (types.PackageFields, error)
}
