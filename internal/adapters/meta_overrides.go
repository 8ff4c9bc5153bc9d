package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

type OverridesFileAdapter struct{}

func NewOverridesFileAdapter() OverridesFileAdapter {
	return OverridesFileAdapter{}
}

// Load reads a metadata overrides file. An empty path means no overrides.
func (a OverridesFileAdapter) Load(path string) (types.MetaOverrides, error) {
	if path == "" {
		return types.MetaOverrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.MetaOverrides{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("overrides file not found: " + path).
			WithCause(err)
	}
	var overrides types.MetaOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return types.MetaOverrides{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse overrides yaml: " + path).
			WithCause(err)
	}
	return overrides, nil
}

var _ ports.OverridesLoader = OverridesFileAdapter{}
