package constants

// BatchState is the orchestrator lifecycle state.
type BatchState string

const (
	BatchIdle      BatchState = "IDLE"
	BatchRunning   BatchState = "RUNNING"
	BatchCompleted BatchState = "COMPLETED"
	BatchCancelled BatchState = "CANCELLED"
	BatchFailed    BatchState = "FAILED" // enumeration-level failure only
)

// Terminal reports whether s ends a run. Idle and terminal states accept a new start.
func (s BatchState) Terminal() bool {
	return s == BatchCompleted || s == BatchCancelled || s == BatchFailed
}

// FileStatus is the terminal status of a single file.
type FileStatus string

// Stable values (stored as-is in the run ledger).
const (
	FileRenamed FileStatus = "RENAMED" // matched, renamed in the source folder
	FileHeld    FileStatus = "HELD"    // unmatched, moved to the holding folder
	FileFailed  FileStatus = "FAILED"  // local error; file left untouched
	FileSkipped FileStatus = "SKIPPED" // cancelled before it started
)
