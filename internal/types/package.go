package types

// InstalledFile is one path owned by an installed package, tagged with the
// kind the package database claims for it. The live filesystem has the final
// word at staging time.
type InstalledFile struct {
	Path string
	Kind EntryKind
}

// PackageFields holds the raw free-text metadata fields reported by the
// package database for one installed package. Absent fields stay empty.
type PackageFields struct {
	Version      string
	Description  string
	URL          string
	Licenses     string
	Architecture string
	DependsOn    string
}

type PackageMeta struct {
	Name        string
	Version     string
	Description string
	URL         string
	BuildDate   int64
	Packager    string
	TotalSize   int64
	Arch        string
	License     string
	Depends     []string
}

// MetaOverrides are user-supplied replacements applied after metadata
// synthesis. Empty fields leave the synthesized value untouched.
type MetaOverrides struct {
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	Packager    string `yaml:"packager"`
	License     string `yaml:"license"`
}
