package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pacrepack/internal/ports"
	"pacrepack/internal/shared"
	"pacrepack/internal/types"
)

// SudoCopier reads protected file content through the privilege-elevation
// tool. Each staged copy is handed back to the invoking user afterwards so
// the in-process archiver can read it; the recorded staging attributes keep
// the real ownership. Links and fifos never need privilege because the
// staging tree itself is user-writable, so those fall through to the plain
// copier.
type SudoCopier struct {
	Tool  string
	local LocalCopier
}

func NewSudoCopier() SudoCopier {
	return SudoCopier{Tool: "sudo", local: NewLocalCopier()}
}

func (c SudoCopier) CopyFile(ctx context.Context, src string, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, c.Tool, "cp", "-a", "--", src, dst)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("privileged copy failed for " + src).
			WithCause(shared.CommandError(output, err))
	}

	owner := fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	cmd = exec.CommandContext(ctx, c.Tool, "chown", owner, "--", dst)
	if output, err := cmd.CombinedOutput(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("failed to reclaim staged copy " + dst).
			WithCause(shared.CommandError(output, err))
	}
	return nil
}

func (c SudoCopier) CopyLink(ctx context.Context, target string, dst string) error {
	return c.local.CopyLink(ctx, target, dst)
}

func (c SudoCopier) CopyFifo(ctx context.Context, dst string, mode uint32) error {
	return c.local.CopyFifo(ctx, dst, mode)
}

// NewCopierFor picks the copier implementation for the requested privilege
// mode. "always" requires the elevation tool and fails without it; "auto"
// elevates only when not already root, degrading to the plain copier with a
// warning when the tool is missing.
func NewCopierFor(mode types.SudoMode) (ports.FileCopier, error) {
	switch mode {
	case types.SudoModeNever:
		return NewLocalCopier(), nil
	case types.SudoModeAlways:
		if _, err := exec.LookPath("sudo"); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("sudo is not available on PATH").
				WithCause(err)
		}
		return NewSudoCopier(), nil
	case types.SudoModeAuto, "":
		if os.Geteuid() == 0 {
			return NewLocalCopier(), nil
		}
		if _, err := exec.LookPath("sudo"); err != nil {
			log.Warn().Msg("sudo not found, protected files may fail to stage")
			return NewLocalCopier(), nil
		}
		return NewSudoCopier(), nil
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown sudo mode: %s", mode))
	}
}

var _ ports.FileCopier = SudoCopier{}
