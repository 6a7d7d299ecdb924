package schema

import "time"

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// AnalysisStatus represents the lifecycle state of an analysis run.
	AnalysisStatus string

	// DatabaseBackend represents the database backend for persistence.
	DatabaseBackend string

	// RollupMode controls which commits feed contributor increments.
	RollupMode string

	// Impact grades an architectural shift or review guideline.
	Impact string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All analysis states.
const (
	PendingStatus    AnalysisStatus = "PENDING"
	ProcessingStatus AnalysisStatus = "PROCESSING"
	CompletedStatus  AnalysisStatus = "COMPLETED"
	FailedStatus     AnalysisStatus = "FAILED"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// All rollup modes supported.
const (
	NewCommitsRollup RollupMode = "new-commits" // default
	AdditiveRollup   RollupMode = "additive"
)

// Impact levels.
const (
	LowImpact    Impact = "low"
	MediumImpact Impact = "medium"
	HighImpact   Impact = "high"
)

// Pipeline constants.
const (
	DefaultCommitCap   = 500
	DefaultPageSize    = 100
	KeyCommitThreshold = 0.7
	TopContributorPct  = 0.2
)

// Progress checkpoints emitted by the orchestrator, in order.
const (
	ProgressStarted    = 0
	ProgressIngesting  = 10
	ProgressIngested   = 30
	ProgressScored     = 60
	ProgressSummarized = 80
	ProgressDone       = 100
)

// Health scoring windows.
const (
	ActiveWindow      = 30 * 24 * time.Hour
	MaintenanceWindow = 90 * 24 * time.Hour
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// ValidRollupModes lists all valid rollup modes.
var ValidRollupModes = map[RollupMode]struct{}{
	NewCommitsRollup: {},
	AdditiveRollup:   {},
}

// IsTerminal reports whether the status can no longer change.
func (s AnalysisStatus) IsTerminal() bool {
	return s == CompletedStatus || s == FailedStatus
}
