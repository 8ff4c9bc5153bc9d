package app

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pacrepack/internal/types"
)

// SweepStaging removes leftover staging directories under the work root
// according to the retention policy in the request. Directories from runs
// kept with --cleanup keep, or orphaned by killed processes, accumulate
// under the work root; this is their garbage collector.
func (s Service) SweepStaging(ctx context.Context, req SweepRequest) (SweepResult, error) {
	workRoot := strings.TrimSpace(req.WorkRoot)
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	store := s.StagingFactory(workRoot)
	dirs, err := store.List(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	policy := types.StagingRetentionPolicy{
		KeepLast:        req.KeepLast,
		KeepDays:        req.KeepDays,
		ProtectPackages: req.Protect,
		DryRun:          req.DryRun,
	}
	now := timeNow(s.Clock)
	plan := BuildSweepPlan(dirs, policy, now)
	log.Ctx(ctx).Debug().
		Str("work_root", workRoot).
		Int("keep", len(plan.Keep)).
		Int("delete", len(plan.Delete)).
		Bool("dry_run", policy.DryRun).
		Msg("planned staging sweep")
	if policy.DryRun {
		return SweepResult{
			KeepCount:   len(plan.Keep),
			DeleteCount: len(plan.Delete),
			DryRun:      true,
		}, nil
	}
	var removed []string
	for _, dir := range plan.Delete {
		if err := store.Remove(ctx, dir.Name); err != nil {
			return SweepResult{}, err
		}
		removed = append(removed, dir.Path)
	}
	return SweepResult{
		KeepCount:   len(plan.Keep),
		DeleteCount: len(removed),
		Removed:     removed,
		DryRun:      false,
	}, nil
}

func timeNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
