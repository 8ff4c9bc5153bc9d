// Package testutil provides shared test helpers used across integration,
// e2e, and unit test packages.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RepoRoot returns the absolute path to the repository root by walking
// up from the current working directory. It fails the test if the
// working directory cannot be determined.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(dir, "..", ".."))
}

// InstallStubTool writes an executable script named tool into dir and
// returns its path. Putting dir first on PATH makes the stub shadow the
// real tool for the duration of a test.
func InstallStubTool(t *testing.T, dir string, tool string, script string) string {
	t.Helper()
	path := filepath.Join(dir, tool)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

// PacmanStub renders a pacman replacement script that serves exactly one
// installed package: its -Qlq listing and -Qi output are baked in, every
// other package name gets the canonical "was not found" error on stderr.
func PacmanStub(name string, listing string, info string) string {
	return fmt.Sprintf(`#!/bin/sh
pkg="$2"
if [ "$pkg" != %q ]; then
	echo "error: package '$pkg' was not found" >&2
	exit 1
fi
case "$1" in
-Qq) echo %q ;;
-Qlq) cat <<'PKGEOF'
%sPKGEOF
;;
-Qi) cat <<'PKGEOF'
%sPKGEOF
;;
*) echo "error: invalid option '$1'" >&2; exit 1 ;;
esac
`, name, name, listing, info)
}

// DemoTree lays out a small installed package on disk and returns the tree
// root together with a -Qlq style listing of the owned paths (directories
// carry a trailing slash). The listing deliberately includes one path that
// does not exist on disk, mimicking database drift.
func DemoTree(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc/demo"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usr/share/demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc/demo/demo.conf"), []byte("answer = 42\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr/bin/demo-tool"), []byte("#!/bin/sh\necho demo\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usr/share/demo/data.bin"), []byte("hello"), 0o644))
	require.NoError(t, os.Symlink("demo-tool", filepath.Join(root, "usr/bin/demo")))

	listing := strings.Join([]string{
		root + "/etc/",
		root + "/etc/demo/",
		root + "/etc/demo/demo.conf",
		root + "/usr/",
		root + "/usr/bin/",
		root + "/usr/bin/demo",
		root + "/usr/bin/demo-tool",
		root + "/usr/share/",
		root + "/usr/share/demo/",
		root + "/usr/share/demo/data.bin",
		root + "/usr/share/demo/cache.db",
	}, "\n") + "\n"
	return root, listing
}

// DemoPackageInfo is LC_ALL=C pacman -Qi output for the demo package,
// including a wrapped Description and None sentinels.
const DemoPackageInfo = `Name            : demo
Version         : 1.2.3-1
Description     : integration demo package used by the
                  rebuild pipeline tests
Architecture    : x86_64
URL             : https://example.com/demo
Licenses        : MIT
Groups          : None
Provides        : None
Depends On      : glibc  zlib
Optional Deps   : None
Installed Size  : 12.00 KiB
Packager        : Demo Builder <demo@example.com>
Build Date      : Mon 01 Jan 2024 00:00:00 UTC
Install Script  : No
Validated By    : Signature
`
