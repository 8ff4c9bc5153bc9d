package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacrepack/internal/types"
)

// stubSudo puts a logging pass-through elevation tool first on PATH.
func stubSudo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %s\nexec \"$@\"\n", logPath)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sudo"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return logPath
}

func TestSudoCopyFile(t *testing.T) {
	logPath := stubSudo(t)
	src := filepath.Join(t.TempDir(), "src.txt")
	dst := filepath.Join(t.TempDir(), "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("protected"), 0o644))

	copier := NewSudoCopier()
	require.NoError(t, copier.CopyFile(context.Background(), src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "protected", string(content))

	calls, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(calls), "cp -a -- "+src+" "+dst)
	assert.Contains(t, string(calls), fmt.Sprintf("chown %d:%d -- %s", os.Getuid(), os.Getgid(), dst))
}

func TestSudoCopyFileFailure(t *testing.T) {
	stubSudo(t)

	copier := NewSudoCopier()
	err := copier.CopyFile(context.Background(), filepath.Join(t.TempDir(), "ghost"), filepath.Join(t.TempDir(), "dst"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodePermissionDenied, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "privileged copy failed")
}

func TestSudoCopyLinkStaysLocal(t *testing.T) {
	logPath := stubSudo(t)
	dst := filepath.Join(t.TempDir(), "current")

	copier := NewSudoCopier()
	require.NoError(t, copier.CopyLink(context.Background(), "data.txt", dst))

	target, err := os.Readlink(dst)
	require.NoError(t, err)
	assert.Equal(t, "data.txt", target)

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err), "symlink creation must not elevate")
}

func TestNewCopierFor(t *testing.T) {
	t.Run("never", func(t *testing.T) {
		copier, err := NewCopierFor(types.SudoModeNever)
		require.NoError(t, err)
		assert.IsType(t, LocalCopier{}, copier)
	})

	t.Run("always with sudo present", func(t *testing.T) {
		stubSudo(t)
		copier, err := NewCopierFor(types.SudoModeAlways)
		require.NoError(t, err)
		assert.IsType(t, SudoCopier{}, copier)
	})

	t.Run("always without sudo", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())
		_, err := NewCopierFor(types.SudoModeAlways)
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	})

	t.Run("auto without sudo falls back", func(t *testing.T) {
		t.Setenv("PATH", t.TempDir())
		copier, err := NewCopierFor(types.SudoModeAuto)
		require.NoError(t, err)
		assert.IsType(t, LocalCopier{}, copier)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := NewCopierFor(types.SudoMode("maybe"))
		require.Error(t, err)
		assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	})
}
