package types

import "time"

type StagingDirInfo struct {
	Name    string
	Package string
	RunID   string
	Path    string
	ModTime time.Time
}

type StagingRetentionPolicy struct {
	KeepLast        int
	KeepDays        int
	ProtectPackages []string
	DryRun          bool
}

type StagingSweepPlan struct {
	Keep   []StagingDirInfo
	Delete []StagingDirInfo
}
