package integration

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacrepack/internal/app"
	"pacrepack/internal/types"
	"pacrepack/tests/testutil"
)

// TestRepackDemoScenario drives the full pipeline through the real service
// wiring: the exec adapter queries a PATH-stubbed pacman, the local copier
// stages a fake installed tree, and the produced archive is verified by
// reading it back.
func TestRepackDemoScenario(t *testing.T) {
	// Step 1: fake installed tree plus the pacman stub that owns it.
	_, listing := testutil.DemoTree(t)
	binDir := t.TempDir()
	testutil.InstallStubTool(t, binDir, "pacman", testutil.PacmanStub("demo", listing, testutil.DemoPackageInfo))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	// Step 2: rebuild the package end to end.
	outDir := t.TempDir()
	service := app.NewService()
	result, err := service.Repack(context.Background(), app.RepackRequest{
		Package:   "demo",
		OutputDir: outDir,
		WorkRoot:  t.TempDir(),
		Workers:   4,
		Sudo:      types.SudoModeNever,
		Cleanup:   types.CleanupModeRemove,
	})
	require.NoError(t, err)

	// Step 3: naming contract and drift tolerance.
	assert.Equal(t, "demo", result.Package)
	assert.Equal(t, "1.2.3-1", result.Version)
	assert.Equal(t, "x86_64", result.Arch)
	assert.Equal(t, filepath.Join(outDir, "demo-1.2.3-1-x86_64.pkg.tar.zst"), result.ArchivePath)
	assert.Equal(t, 1, result.Skipped, "the vanished cache.db is drift, not a failure")
	assert.Zero(t, result.Failures)
	assert.NoDirExists(t, result.StagingRoot)

	// Step 4: checksum sidecar matches the archive bytes.
	require.FileExists(t, result.ArchivePath)
	data, err := os.ReadFile(result.ArchivePath)
	require.NoError(t, err)
	sum := md5.Sum(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), result.MD5)
	sidecar, err := os.ReadFile(result.ChecksumPath)
	require.NoError(t, err)
	assert.Equal(t, result.MD5+"  demo-1.2.3-1-x86_64.pkg.tar.zst\n", string(sidecar))

	// Step 5: the archive verifies against its own manifest.
	inspect, err := service.Inspect(context.Background(), app.InspectRequest{ArchivePath: result.ArchivePath})
	require.NoError(t, err)
	assert.Empty(t, inspect.Mismatches)
	assert.Equal(t, "demo", inspect.Meta.Name)
	assert.Equal(t, "integration demo package used by the rebuild pipeline tests", inspect.Meta.Description)
	assert.Equal(t, "https://example.com/demo", inspect.Meta.URL)
	assert.Equal(t, "MIT", inspect.Meta.License)
	assert.Equal(t, []string{"glibc", "zlib"}, inspect.Meta.Depends)
	assert.Equal(t, result.EntryCount, inspect.EntryCount)
	assert.Equal(t, result.TotalSize, inspect.TotalSize)
}

// TestRepackUnknownPackage checks that the stub's stderr phrase travels
// through the exec adapter into the not-installed error.
func TestRepackUnknownPackage(t *testing.T) {
	binDir := t.TempDir()
	testutil.InstallStubTool(t, binDir, "pacman", testutil.PacmanStub("demo", "", ""))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	service := app.NewService()
	_, err := service.Repack(context.Background(), app.RepackRequest{
		Package: "ghost",
		Cleanup: types.CleanupModeRemove,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package ghost is not installed")
}
