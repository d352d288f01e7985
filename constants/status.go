package constants

// RunStatus is the canonical status for rows in analysis_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// DocumentStatus records how a single document fared within a run.
type DocumentStatus string

const (
	DocumentStatusProcessed DocumentStatus = "PROCESSED"
	DocumentStatusEmpty     DocumentStatus = "EMPTY"  // read fine, no line items matched
	DocumentStatusFailed    DocumentStatus = "FAILED" // excluded from totals
)
