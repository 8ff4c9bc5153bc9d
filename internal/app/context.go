package app

import (
	"context"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-ps"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// RunContext pins down the identity of one pipeline run: a unique ID for
// namespacing the staging tree, the clock reading every timestamp derives
// from, and the packager/machine identity stamped into the metadata.
type RunContext struct {
	RunID       string
	StartedAt   time.Time
	Packager    string
	MachineArch string
}

func newRunContext(clock func() time.Time) RunContext {
	username := "unknown"
	if current, err := user.Current(); err == nil && current.Username != "" {
		username = current.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return RunContext{
		RunID:       uuid.NewString(),
		StartedAt:   clock(),
		Packager:    username + "@" + host,
		MachineArch: machineArch(),
	}
}

// ShortID is the staging-path form of the run ID.
func (r RunContext) ShortID() string {
	if len(r.RunID) < 8 {
		return r.RunID
	}
	return r.RunID[:8]
}

// machineArch asks the kernel for the machine hardware name, used when the
// package database does not report an architecture.
func machineArch() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return strings.TrimRight(string(uts.Machine[:]), "\x00")
}

// warnConcurrentRuns scans the process table for other live instances. Runs
// cannot collide thanks to per-run staging paths, but a parallel run usually
// means a stuck invocation the user forgot about.
func warnConcurrentRuns(ctx context.Context, selfName string) {
	procs, err := ps.Processes()
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("process listing unavailable")
		return
	}
	self := os.Getpid()
	others := 0
	for _, proc := range procs {
		if proc.Pid() == self {
			continue
		}
		if strings.HasPrefix(proc.Executable(), selfName) {
			others++
		}
	}
	if others > 0 {
		log.Ctx(ctx).Warn().Int("count", others).Msg("other active runs detected")
	}
}
