package ports

import "pacrepack/internal/types"

type OverridesLoader interface {
	Load(path string) (types.MetaOverrides, error)
}
