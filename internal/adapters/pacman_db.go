package adapters

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/ports"
	"pacrepack/internal/shared"
	"pacrepack/internal/types"
)

// notFoundMarker is the stable (LC_ALL=C) phrase the query tool prints when
// a package is not in the local database.
const notFoundMarker = "was not found"

// PacmanAdapter answers package database queries by shelling out to the
// system query tool. All invocations force LC_ALL=C so field names and error
// phrases are parseable regardless of the host locale.
type PacmanAdapter struct {
	Tool string
}

func NewPacmanAdapter() PacmanAdapter {
	return PacmanAdapter{Tool: "pacman"}
}

func (a PacmanAdapter) IsInstalled(ctx context.Context, name string) (bool, error) {
	if err := a.checkQuery(ctx, name); err != nil {
		return false, err
	}
	cmd := exec.CommandContext(ctx, a.Tool, "-Qq", name)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	output, err := cmd.CombinedOutput()
	if err == nil {
		return true, nil
	}
	if strings.Contains(string(output), notFoundMarker) {
		log.Debug().Str("package", name).Msg("package not in local database")
		return false, nil
	}
	return false, errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("package database query failed for " + name).
		WithCause(shared.CommandError(output, err))
}

func (a PacmanAdapter) InstalledFiles(ctx context.Context, name string) ([]types.InstalledFile, error) {
	if err := a.checkQuery(ctx, name); err != nil {
		return nil, err
	}
	output, err := a.runQuery(ctx, "-Qlq", name)
	if err != nil {
		return nil, err
	}

	var files []types.InstalledFile
	for _, line := range strings.Split(string(output), "\n") {
		path := strings.TrimRight(strings.TrimSpace(line), "\r")
		if path == "" {
			continue
		}
		kind := types.EntryKindFile
		if strings.HasSuffix(path, "/") {
			kind = types.EntryKindDir
			path = strings.TrimSuffix(path, "/")
			if path == "" {
				continue
			}
		}
		files = append(files, types.InstalledFile{Path: path, Kind: kind})
	}
	log.Debug().Str("package", name).Int("files", len(files)).Msg("file list queried")
	return files, nil
}

func (a PacmanAdapter) PackageInfo(ctx context.Context, name string) (types.PackageFields, error) {
	if err := a.checkQuery(ctx, name); err != nil {
		return types.PackageFields{}, err
	}
	output, err := a.runQuery(ctx, "-Qi", name)
	if err != nil {
		return types.PackageFields{}, err
	}
	return parsePackageInfoOutput(output), nil
}

func (a PacmanAdapter) checkQuery(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("package database query canceled").
			WithCause(err)
	}
	if strings.TrimSpace(name) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is empty")
	}
	if _, err := exec.LookPath(a.Tool); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(a.Tool + " is not available on PATH").
			WithCause(err)
	}
	return nil
}

// runQuery executes one query subcommand and returns its stdout. A stderr
// mentioning an unknown package maps to a not-found error, everything else
// to an environment failure.
func (a PacmanAdapter) runQuery(ctx context.Context, flag string, name string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.Tool, flag, name)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if strings.Contains(stderr.String(), notFoundMarker) {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("package " + name + " is not installed")
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("package database query failed for " + name).
			WithCause(shared.CommandError(stderr.Bytes(), err))
	}
	return output, nil
}

// parsePackageInfoOutput reads the `Field : value` listing of the info
// query. Wrapped values continue on lines starting with whitespace and are
// joined back with single spaces. Unknown fields are ignored.
func parsePackageInfoOutput(output []byte) types.PackageFields {
	fields := types.PackageFields{}
	var lastValue *string
	for _, line := range strings.Split(string(output), "\n") {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if lastValue != nil {
				*lastValue = strings.TrimSpace(*lastValue + " " + strings.TrimSpace(line))
			}
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			lastValue = nil
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "Version":
			fields.Version = value
			lastValue = &fields.Version
		case "Description":
			fields.Description = value
			lastValue = &fields.Description
		case "URL":
			fields.URL = value
			lastValue = &fields.URL
		case "Licenses":
			fields.Licenses = value
			lastValue = &fields.Licenses
		case "Architecture":
			fields.Architecture = value
			lastValue = &fields.Architecture
		case "Depends On":
			fields.DependsOn = value
			lastValue = &fields.DependsOn
		default:
			lastValue = nil
		}
	}
	return fields
}

var _ ports.PackageDB = PacmanAdapter{}
