package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func seedStagingDir(t *testing.T, root string, name string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Join(path, "pkg"), 0o755))
	return path
}

func TestStagingDirAdapterList(t *testing.T) {
	root := t.TempDir()
	seedStagingDir(t, root, "demo-1111aaaa")
	seedStagingDir(t, root, "ca-certificates-a1b2c3d4")

	// Directories that do not look like staging runs stay untouched.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demo-2222bbbb"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "demo-xyz"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("keep"), 0o644))

	adapter := NewStagingDirAdapter(root)
	dirs, err := adapter.List(t.Context())
	require.NoError(t, err)
	require.Len(t, dirs, 2)

	byName := map[string]int{}
	for i, dir := range dirs {
		byName[dir.Name] = i
		require.False(t, dir.ModTime.IsZero())
	}
	require.Contains(t, byName, "demo-1111aaaa")
	require.Contains(t, byName, "ca-certificates-a1b2c3d4")

	dashed := dirs[byName["ca-certificates-a1b2c3d4"]]
	if diff := cmp.Diff("ca-certificates", dashed.Package); diff != "" {
		t.Fatalf("unexpected package (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("a1b2c3d4", dashed.RunID); diff != "" {
		t.Fatalf("unexpected run id (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(filepath.Join(root, "ca-certificates-a1b2c3d4"), dashed.Path); diff != "" {
		t.Fatalf("unexpected path (-want +got):\n%s", diff)
	}
}

func TestStagingDirAdapterListMissingRoot(t *testing.T) {
	adapter := NewStagingDirAdapter(filepath.Join(t.TempDir(), "absent"))
	dirs, err := adapter.List(t.Context())
	require.NoError(t, err)
	require.Empty(t, dirs)
}

func TestStagingDirAdapterListEmptyRoot(t *testing.T) {
	adapter := NewStagingDirAdapter("   ")
	_, err := adapter.List(t.Context())
	require.Error(t, err)
	if diff := cmp.Diff(errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err)); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}
}

func TestStagingDirAdapterRemove(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantErr  bool
		wantCode errbuilder.ErrCode
	}{
		{
			name:   "existing directory",
			target: "demo-1111aaaa",
		},
		{
			name:     "missing directory",
			target:   "demo-9999ffff",
			wantErr:  true,
			wantCode: errbuilder.CodeNotFound,
		},
		{
			name:     "empty name",
			target:   "",
			wantErr:  true,
			wantCode: errbuilder.CodeInvalidArgument,
		},
		{
			name:     "name with path separator",
			target:   "demo" + string(os.PathSeparator) + "pkg",
			wantErr:  true,
			wantCode: errbuilder.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := seedStagingDir(t, root, "demo-1111aaaa")
			adapter := NewStagingDirAdapter(root)

			err := adapter.Remove(t.Context(), tt.target)
			if tt.wantErr {
				require.Error(t, err)
				if diff := cmp.Diff(tt.wantCode, errbuilder.CodeOf(err)); diff != "" {
					t.Fatalf("unexpected error code (-want +got):\n%s", diff)
				}
				return
			}
			require.NoError(t, err)
			_, statErr := os.Stat(path)
			require.True(t, os.IsNotExist(statErr))
		})
	}
}
