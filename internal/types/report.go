package types

// StagedEntry records one entry placed in the staging root together with the
// ownership, mode and timestamps observed on the live filesystem. These
// recorded attributes are the ownership-override map: the manifest and the
// archive take ownership from here, never from the staged copy's real owner.
type StagedEntry struct {
	Path       string
	Kind       EntryKind
	UID        int
	GID        int
	Mode       uint32
	MTimeSec   int64
	MTimeNsec  int64
	Size       int64
	LinkTarget string
}

type StageFailure struct {
	Path   string
	Reason string
}

type StageReport struct {
	Entries   []StagedEntry
	TotalSize int64
	Skipped   []string
	Failures  []StageFailure
}

// OverrideMap indexes staged attributes by relative path for the manifest
// builder and the archiver.
func (r StageReport) OverrideMap() map[string]StagedEntry {
	overrides := make(map[string]StagedEntry, len(r.Entries))
	for _, entry := range r.Entries {
		overrides[entry.Path] = entry
	}
	return overrides
}
