package app

import (
	"sort"
	"strings"
	"time"

	"pacrepack/internal/types"
)

func BuildSweepPlan(dirs []types.StagingDirInfo, policy types.StagingRetentionPolicy, now time.Time) types.StagingSweepPlan {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	normalized := normalizeSweepPolicy(policy)
	protected := normalizeSet(normalized.ProtectPackages)

	keepNames := map[string]struct{}{}
	grouped := map[string][]types.StagingDirInfo{}
	for _, dir := range dirs {
		group := strings.ToLower(strings.TrimSpace(dir.Package))
		if _, ok := protected[group]; ok {
			keepNames[dir.Name] = struct{}{}
		}
		if normalized.KeepDays > 0 && !dir.ModTime.IsZero() {
			cutoff := now.AddDate(0, 0, -normalized.KeepDays)
			if !dir.ModTime.Before(cutoff) {
				keepNames[dir.Name] = struct{}{}
			}
		}
		grouped[group] = append(grouped[group], dir)
	}

	if normalized.KeepLast > 0 {
		for _, group := range grouped {
			sorted := append([]types.StagingDirInfo(nil), group...)
			sort.Slice(sorted, func(i, j int) bool {
				if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
					return sorted[i].ModTime.After(sorted[j].ModTime)
				}
				return sorted[i].Name < sorted[j].Name
			})
			limit := normalized.KeepLast
			if limit > len(sorted) {
				limit = len(sorted)
			}
			for i := 0; i < limit; i++ {
				keepNames[sorted[i].Name] = struct{}{}
			}
		}
	}

	var keep []types.StagingDirInfo
	var del []types.StagingDirInfo
	for _, dir := range dirs {
		if _, ok := keepNames[dir.Name]; ok {
			keep = append(keep, dir)
		} else {
			del = append(del, dir)
		}
	}
	return types.StagingSweepPlan{Keep: keep, Delete: del}
}

func normalizeSweepPolicy(policy types.StagingRetentionPolicy) types.StagingRetentionPolicy {
	normalized := policy
	if normalized.KeepLast < 0 {
		normalized.KeepLast = 0
	}
	if normalized.KeepDays < 0 {
		normalized.KeepDays = 0
	}
	return normalized
}

func normalizeSet(values []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}
