package types

// ManifestEntry is the integrity/attribute record for one staged path. The
// field set and both digest algorithms are what the consuming package manager
// checks at install time; none of them is optional for regular files.
type ManifestEntry struct {
	Path       string
	Kind       EntryKind
	UID        int
	GID        int
	Mode       uint32
	MTimeSec   int64
	MTimeNsec  int64
	Size       int64
	MD5        string
	SHA256     string
	LinkTarget string
}
