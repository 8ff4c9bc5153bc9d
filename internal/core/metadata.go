package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/types"
)

// dependsSentinel is what the package database prints in place of an empty
// dependency list.
const dependsSentinel = "none"

const pkgInfoHeader = "# Generated by pacrepack"

// pkgInfoFields is the fixed serialization order of the package-info record.
var pkgInfoFields = []string{
	"pkgname",
	"pkgver",
	"pkgdesc",
	"url",
	"builddate",
	"packager",
	"size",
	"arch",
	"license",
}

type Synthesizer struct{}

func NewSynthesizer() Synthesizer {
	return Synthesizer{}
}

// MetadataInput collects everything the synthesizer derives PackageMeta
// from: the raw database fields, the staged size accumulation and the run
// identity. TotalSize is never re-derived by re-walking the staging root.
type MetadataInput struct {
	Name        string
	Fields      types.PackageFields
	TotalSize   int64
	BuildDate   int64
	Packager    string
	MachineArch string
}

func (s Synthesizer) Synthesize(ctx context.Context, in MetadataInput) (types.PackageMeta, error) {
	assert.NotEmpty(ctx, in.Name, "package name must be set")
	if in.TotalSize < 0 {
		return types.PackageMeta{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("total size must not be negative")
	}
	arch := strings.TrimSpace(in.Fields.Architecture)
	if arch == "" {
		arch = strings.TrimSpace(in.MachineArch)
	}
	meta := types.PackageMeta{
		Name:        in.Name,
		Version:     strings.TrimSpace(in.Fields.Version),
		Description: strings.TrimSpace(in.Fields.Description),
		URL:         strings.TrimSpace(in.Fields.URL),
		BuildDate:   in.BuildDate,
		Packager:    strings.TrimSpace(in.Packager),
		TotalSize:   in.TotalSize,
		Arch:        arch,
		License:     strings.TrimSpace(in.Fields.Licenses),
		Depends:     ParseDepends(in.Fields.DependsOn),
	}
	log.Ctx(ctx).Debug().
		Str("package", meta.Name).
		Str("version", meta.Version).
		Int("depends", len(meta.Depends)).
		Msg("metadata synthesized")
	return meta, nil
}

// ParseDepends splits the database's free-text dependency field into
// individual tokens. Empty tokens are dropped and the "None" sentinel is
// stripped; an absent field yields an empty list.
func ParseDepends(raw string) []string {
	var depends []string
	for _, token := range strings.Fields(raw) {
		if strings.EqualFold(token, dependsSentinel) {
			continue
		}
		depends = append(depends, token)
	}
	return depends
}

// ApplyOverrides replaces synthesized fields with user-supplied values.
// Empty override fields keep the synthesized value.
func ApplyOverrides(meta types.PackageMeta, overrides types.MetaOverrides) types.PackageMeta {
	if value := strings.TrimSpace(overrides.Description); value != "" {
		meta.Description = value
	}
	if value := strings.TrimSpace(overrides.URL); value != "" {
		meta.URL = value
	}
	if value := strings.TrimSpace(overrides.Packager); value != "" {
		meta.Packager = value
	}
	if value := strings.TrimSpace(overrides.License); value != "" {
		meta.License = value
	}
	return meta
}

// RenderPackageInfo serializes PackageMeta as the line-oriented package-info
// record: one `key = value` line per field in fixed order, then one
// `depend = X` line per dependency in parsed order.
func RenderPackageInfo(meta types.PackageMeta) []byte {
	values := map[string]string{
		"pkgname":   meta.Name,
		"pkgver":    meta.Version,
		"pkgdesc":   meta.Description,
		"url":       meta.URL,
		"builddate": strconv.FormatInt(meta.BuildDate, 10),
		"packager":  meta.Packager,
		"size":      strconv.FormatInt(meta.TotalSize, 10),
		"arch":      meta.Arch,
		"license":   meta.License,
	}
	var builder strings.Builder
	builder.WriteString(pkgInfoHeader)
	builder.WriteString("\n")
	for _, field := range pkgInfoFields {
		builder.WriteString(field)
		builder.WriteString(" = ")
		builder.WriteString(values[field])
		builder.WriteString("\n")
	}
	for _, depend := range meta.Depends {
		builder.WriteString("depend = ")
		builder.WriteString(depend)
		builder.WriteString("\n")
	}
	return []byte(builder.String())
}

// ParsePackageInfo reads a serialized package-info record back into
// PackageMeta. Unknown keys are ignored so newer records stay readable.
func ParsePackageInfo(data []byte) (types.PackageMeta, error) {
	meta := types.PackageMeta{}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		parts := strings.SplitN(trimmed, "=", 2)
		if len(parts) != 2 {
			return types.PackageMeta{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid package-info line: " + trimmed)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "pkgname":
			meta.Name = value
		case "pkgver":
			meta.Version = value
		case "pkgdesc":
			meta.Description = value
		case "url":
			meta.URL = value
		case "builddate":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return types.PackageMeta{}, invalidPkgInfoNumber("builddate", value, err)
			}
			meta.BuildDate = parsed
		case "packager":
			meta.Packager = value
		case "size":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return types.PackageMeta{}, invalidPkgInfoNumber("size", value, err)
			}
			meta.TotalSize = parsed
		case "arch":
			meta.Arch = value
		case "license":
			meta.License = value
		case "depend":
			if value != "" {
				meta.Depends = append(meta.Depends, value)
			}
		}
	}
	if meta.Name == "" {
		return types.PackageMeta{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package-info record missing pkgname")
	}
	return meta, nil
}

func invalidPkgInfoNumber(field string, value string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("invalid %s in package-info record: %s", field, value)).
		WithCause(err)
}
