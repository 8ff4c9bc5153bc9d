package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacrepack/internal/ports"
	"pacrepack/internal/types"
)

func stagedArchiveFixture(t *testing.T) (string, []types.ManifestEntry) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "pkg")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/share/demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr/share/demo/data.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Symlink("data.txt", filepath.Join(root, "usr/share/demo/current")))

	entries := []types.ManifestEntry{
		{
			Path: "usr", Kind: types.EntryKindDir,
			UID: 0, GID: 0, Mode: 0o755, MTimeSec: 1690000000,
		},
		{
			Path: "usr/share", Kind: types.EntryKindDir,
			UID: 0, GID: 0, Mode: 0o755, MTimeSec: 1690000000,
		},
		{
			Path: "usr/share/demo", Kind: types.EntryKindDir,
			UID: 0, GID: 0, Mode: 0o755, MTimeSec: 1690000000,
		},
		{
			Path: "usr/share/demo/current", Kind: types.EntryKindLink,
			UID: 0, GID: 0, Mode: 0o777, MTimeSec: 1690000000,
			LinkTarget: "data.txt",
		},
		{
			Path: "usr/share/demo/data.txt", Kind: types.EntryKindFile,
			UID: 0, GID: 0, Mode: 0o644, MTimeSec: 1690000000,
			Size:   5,
			MD5:    "5d41402abc4b2a76b9719d911017c592",
			SHA256: "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	}
	return root, entries
}

func TestArchiveCreateAndReadBack(t *testing.T) {
	root, entries := stagedArchiveFixture(t)
	output := filepath.Join(t.TempDir(), "demo-1.0-1-x86_64.pkg.tar.zst")
	pkgInfo := []byte("# Generated by pacrepack\npkgname = demo\n")
	mtree := []byte{0x1f, 0x8b, 0x08, 0x00}

	archiver := NewTarZstdArchiver()
	require.NoError(t, archiver.Create(context.Background(), ports.ArchiveRequest{
		StagingRoot: root,
		PkgInfo:     pkgInfo,
		Mtree:       mtree,
		Entries:     entries,
		BuildDate:   1700000000,
		Compression: types.CompressionDefault,
		OutputPath:  output,
	}))
	assert.FileExists(t, output)
	assert.NoFileExists(t, output+".part")

	reader := NewTarZstdReader()
	content, err := reader.Read(context.Background(), output)
	require.NoError(t, err)
	assert.Equal(t, pkgInfo, content.PkgInfo)
	assert.Equal(t, mtree, content.Mtree)

	// Observed members carry the recorded attributes and freshly computed
	// digests, in archive order.
	if diff := cmp.Diff(entries, content.Entries); diff != "" {
		t.Errorf("read back mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveDeterministic(t *testing.T) {
	root, entries := stagedArchiveFixture(t)
	first := filepath.Join(t.TempDir(), "first.pkg.tar.zst")
	second := filepath.Join(t.TempDir(), "second.pkg.tar.zst")

	archiver := NewTarZstdArchiver()
	req := ports.ArchiveRequest{
		StagingRoot: root,
		PkgInfo:     []byte("pkgname = demo\n"),
		Mtree:       []byte("m"),
		Entries:     entries,
		BuildDate:   1700000000,
		OutputPath:  first,
	}
	require.NoError(t, archiver.Create(context.Background(), req))
	req.OutputPath = second
	require.NoError(t, archiver.Create(context.Background(), req))

	firstData, err := os.ReadFile(first)
	require.NoError(t, err)
	secondData, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, firstData, secondData)
}

func TestArchiveSizeMismatchFails(t *testing.T) {
	root, entries := stagedArchiveFixture(t)
	entries[4].Size = 999
	output := filepath.Join(t.TempDir(), "demo.pkg.tar.zst")

	archiver := NewTarZstdArchiver()
	err := archiver.Create(context.Background(), ports.ArchiveRequest{
		StagingRoot: root,
		Entries:     entries,
		OutputPath:  output,
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.NoFileExists(t, output)
	assert.NoFileExists(t, output+".part")
}

func TestArchiveMissingStagedFile(t *testing.T) {
	root, entries := stagedArchiveFixture(t)
	require.NoError(t, os.Remove(filepath.Join(root, "usr/share/demo/data.txt")))
	output := filepath.Join(t.TempDir(), "demo.pkg.tar.zst")

	archiver := NewTarZstdArchiver()
	err := archiver.Create(context.Background(), ports.ArchiveRequest{
		StagingRoot: root,
		Entries:     entries,
		OutputPath:  output,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open staged")
	assert.NoFileExists(t, output+".part")
}

func TestArchiveEmptyOutputPath(t *testing.T) {
	archiver := NewTarZstdArchiver()
	err := archiver.Create(context.Background(), ports.ArchiveRequest{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestReadMissingArchive(t *testing.T) {
	reader := NewTarZstdReader()
	_, err := reader.Read(context.Background(), filepath.Join(t.TempDir(), "ghost.pkg.tar.zst"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestReadNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("not compressed"), 0o644))

	reader := NewTarZstdReader()
	_, err := reader.Read(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
