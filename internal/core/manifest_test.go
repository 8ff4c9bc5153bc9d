package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacrepack/internal/types"
)

func stageTestTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "pkg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/share/demo"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(root, "usr"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(root, "usr/share"), 0o755))
	require.NoError(t, os.Chmod(filepath.Join(root, "usr/share/demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr/share/demo/data.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Chmod(filepath.Join(root, "usr/share/demo/data.txt"), 0o644))
	require.NoError(t, os.Symlink("data.txt", filepath.Join(root, "usr/share/demo/current")))
	return root
}

func TestManifestBuild(t *testing.T) {
	root := stageTestTree(t)
	builder := NewManifestBuilder()

	overrides := map[string]types.StagedEntry{
		"usr/share/demo": {
			Path: "usr/share/demo", Kind: types.EntryKindDir,
			UID: 0, GID: 0, Mode: 0o755, MTimeSec: 1690000000,
		},
		"usr/share/demo/data.txt": {
			Path: "usr/share/demo/data.txt", Kind: types.EntryKindFile,
			UID: 0, GID: 0, Mode: 0o644, MTimeSec: 1690000001, MTimeNsec: 42,
		},
		"usr/share/demo/current": {
			Path: "usr/share/demo/current", Kind: types.EntryKindLink,
			UID: 0, GID: 0, Mode: 0o777, MTimeSec: 1690000002,
		},
	}

	entries, err := builder.Build(context.Background(), ManifestRequest{
		StagingRoot: root,
		Overrides:   overrides,
	})
	require.NoError(t, err)

	var paths []string
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	want := []string{
		"usr",
		"usr/share",
		"usr/share/demo",
		"usr/share/demo/current",
		"usr/share/demo/data.txt",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}

	byPath := map[string]types.ManifestEntry{}
	for _, entry := range entries {
		byPath[entry.Path] = entry
	}

	// Implicit parents carry root ownership and their staged attributes.
	implicit := byPath["usr"]
	assert.Equal(t, types.EntryKindDir, implicit.Kind)
	assert.Equal(t, 0, implicit.UID)
	assert.Equal(t, 0, implicit.GID)
	assert.Equal(t, uint32(0o755), implicit.Mode)

	data := byPath["usr/share/demo/data.txt"]
	assert.Equal(t, types.EntryKindFile, data.Kind)
	assert.Equal(t, int64(5), data.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", data.MD5)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", data.SHA256)
	assert.Equal(t, int64(1690000001), data.MTimeSec)
	assert.Equal(t, int64(42), data.MTimeNsec)

	link := byPath["usr/share/demo/current"]
	assert.Equal(t, types.EntryKindLink, link.Kind)
	assert.Equal(t, "data.txt", link.LinkTarget)
	assert.Empty(t, link.MD5)
	assert.Zero(t, link.Size)
}

func TestManifestSkipsDotEntriesAtRoot(t *testing.T) {
	root := stageTestTree(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".PKGINFO"), []byte("pkgname = demo\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".work"), 0o755))
	// Dot-named paths deeper in the tree are payload.
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr/share/demo/.keep"), nil, 0o644))

	builder := NewManifestBuilder()
	entries, err := builder.Build(context.Background(), ManifestRequest{StagingRoot: root})
	require.NoError(t, err)

	var paths []string
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	assert.NotContains(t, paths, ".PKGINFO")
	assert.NotContains(t, paths, ".work")
	assert.Contains(t, paths, "usr/share/demo/.keep")
}

func TestManifestEmptyRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pkg")
	require.NoError(t, os.MkdirAll(root, 0o755))

	builder := NewManifestBuilder()
	entries, err := builder.Build(context.Background(), ManifestRequest{StagingRoot: root})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManifestMissingRoot(t *testing.T) {
	builder := NewManifestBuilder()
	_, err := builder.Build(context.Background(), ManifestRequest{
		StagingRoot: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}

func TestManifestCanceledContext(t *testing.T) {
	root := stageTestTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	builder := NewManifestBuilder()
	_, err := builder.Build(ctx, ManifestRequest{StagingRoot: root})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
}
