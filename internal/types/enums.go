package types

type EntryKind string

const (
	EntryKindFile EntryKind = "file"
	EntryKindDir  EntryKind = "dir"
	EntryKindLink EntryKind = "link"
	EntryKindFifo EntryKind = "fifo"
)

type SudoMode string

const (
	SudoModeAuto   SudoMode = "auto"
	SudoModeAlways SudoMode = "always"
	SudoModeNever  SudoMode = "never"
)

type CleanupMode string

const (
	CleanupModeAsk    CleanupMode = "ask"
	CleanupModeKeep   CleanupMode = "keep"
	CleanupModeRemove CleanupMode = "remove"
)

type CompressionLevel string

const (
	CompressionFastest CompressionLevel = "fastest"
	CompressionDefault CompressionLevel = "default"
	CompressionBetter  CompressionLevel = "better"
	CompressionBest    CompressionLevel = "best"
)
