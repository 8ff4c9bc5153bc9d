package app

import "pacrepack/internal/types"

type RepackRequest struct {
	Package          string
	OutputDir        string
	WorkRoot         string
	Compression      types.CompressionLevel
	Workers          int
	CopyFailureLimit int
	Sudo             types.SudoMode
	Cleanup          types.CleanupMode
	OverridesPath    string
}

type RepackResult struct {
	Package      string
	Version      string
	Arch         string
	ArchivePath  string
	ChecksumPath string
	MD5          string
	EntryCount   int
	TotalSize    int64
	StagingRoot  string
	Skipped      int
	Failures     int
}

type SweepRequest struct {
	WorkRoot string
	KeepLast int
	KeepDays int
	Protect  []string
	DryRun   bool
}

type SweepResult struct {
	KeepCount   int
	DeleteCount int
	Removed     []string
	DryRun      bool
}

type InspectRequest struct {
	ArchivePath string
}

type InspectResult struct {
	Meta       types.PackageMeta
	EntryCount int
	TotalSize  int64
	Mismatches []string
}
