package adapters

import (
	"context"
	"io"
	"os"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sys/unix"

	"pacrepack/internal/ports"
)

// LocalCopier copies in-process with the invoking user's privileges. Content,
// mode and timestamps are preserved; ownership is attempted and silently
// left as-is when the process may not chown.
type LocalCopier struct{}

func NewLocalCopier() LocalCopier {
	return LocalCopier{}
}

func (c LocalCopier) CopyFile(ctx context.Context, src string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return copyError("failed to stat "+src, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return copyError("failed to open "+src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return copyError("failed to create "+dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return copyError("failed to copy "+src, err)
	}
	if err := out.Close(); err != nil {
		return copyError("failed to flush "+dst, err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return copyError("failed to chmod "+dst, err)
	}
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		// Ownership transfer needs CAP_CHOWN; the recorded attributes are
		// authoritative either way, so a refusal is not a failure.
		_ = os.Chown(dst, int(stat.Uid), int(stat.Gid))
		times := []unix.Timespec{
			{Sec: stat.Atim.Sec, Nsec: stat.Atim.Nsec},
			{Sec: stat.Mtim.Sec, Nsec: stat.Mtim.Nsec},
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, dst, times, 0); err != nil {
			return copyError("failed to set times on "+dst, err)
		}
	}
	return nil
}

func (c LocalCopier) CopyLink(ctx context.Context, target string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Symlink(target, dst); err != nil {
		return copyError("failed to create symlink "+dst, err)
	}
	return nil
}

func (c LocalCopier) CopyFifo(ctx context.Context, dst string, mode uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := unix.Mkfifo(dst, mode); err != nil {
		return copyError("failed to create fifo "+dst, err)
	}
	return nil
}

func copyError(msg string, err error) error {
	code := errbuilder.CodeInternal
	if os.IsPermission(err) {
		code = errbuilder.CodePermissionDenied
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.FileCopier = LocalCopier{}
