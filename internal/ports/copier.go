package ports

import "context"

// FileCopier is the capability-scoped privileged reader/copier injected into
// the root stager. It is the only port allowed to touch protected paths; the
// privilege window closes when the copy loop ends.
//
// CopyFile must preserve content, mode and timestamps, and ownership where
// the implementation is able to. CopyLink recreates a symlink without
// dereferencing it.
type FileCopier interface {
	CopyFile(ctx context.Context, src string, dst string) error
	CopyLink(ctx context.Context, target string, dst string) error
	CopyFifo(ctx context.Context, dst string, mode uint32) error
}
