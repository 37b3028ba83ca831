// Package catalog implements the Catalog Store (spec.md §4.1): the
// durable record of every discovered file plus the operation-state and
// report rows the Operation Engine drives. It owns the SQLite schema,
// the indexed query paths the HTTP surface reads, and the aggregate
// statistics used throughout the service.
//
// Catalog-row, operation-state and report-insert mutations flow through
// the Write Serializer (internal/writer), which calls the package-level
// functions in apply.go from its single writer goroutine. The Store type
// exposes read paths directly; the admin tables (exclusions, ignored
// patterns, scan configurations, schedules) and report deletion are
// written directly by Store methods.
package catalog

import "time"

// ScanStatus is the lifecycle state of a ScanResult row.
type ScanStatus string

const (
	StatusPending  ScanStatus = "pending"
	StatusScanning ScanStatus = "scanning"
	StatusComplete ScanStatus = "completed"
	StatusError    ScanStatus = "error"
)

// ScanResult is one row per discovered file path (spec.md §3).
type ScanResult struct {
	ID                int64
	FilePath          string
	FileSize          int64
	FileType          string
	CreationDate      time.Time
	LastModified      time.Time
	ScanStatus        ScanStatus
	IsCorrupted       *bool // tri-state: nil = not yet scanned
	HasWarnings       bool
	WarningDetails    string
	CorruptionDetails string
	MarkedAsGood      bool
	ScanTool          string
	ScanDuration      float64 // seconds
	ScanOutput        string  // truncated per probe.TruncateOutput
	FileHash          string
	DiscoveredDate    *time.Time
	ScanDate          *time.Time
	DeepScan          bool
}

// EffectiveHealthy implements spec.md §4.1's healthy-file semantics:
// marked_as_good always wins over is_corrupted.
func (s *ScanResult) EffectiveHealthy() bool {
	if s.MarkedAsGood {
		return true
	}
	return s.IsCorrupted == nil || !*s.IsCorrupted
}

// EffectiveCorrupted implements effective_corrupted = is_corrupted AND
// NOT marked_as_good AND NOT has_warnings.
func (s *ScanResult) EffectiveCorrupted() bool {
	if s.MarkedAsGood || s.HasWarnings {
		return false
	}
	return s.IsCorrupted != nil && *s.IsCorrupted
}

// EffectiveWarning implements effective_warning = has_warnings AND NOT
// marked_as_good.
func (s *ScanResult) EffectiveWarning() bool {
	return s.HasWarnings && !s.MarkedAsGood
}

// OperationVariant identifies which of the three coupled operations an
// OperationState row belongs to.
type OperationVariant string

const (
	VariantScan        OperationVariant = "scan"
	VariantCleanup     OperationVariant = "cleanup"
	VariantFileChanges OperationVariant = "file_changes"
)

// OperationPhase names the current phase of a running or terminal
// operation. "interrupted" and "cancelled" are terminal-but-not-complete
// outcomes distinct from "completed" (spec.md §7).
type OperationPhase string

const (
	PhaseInterrupted OperationPhase = "interrupted"
	PhaseCancelled   OperationPhase = "cancelled"
	PhaseCompleted   OperationPhase = "completed"
	PhaseError       OperationPhase = "error"
)

// OperationState is the shared shape backing ScanState, CleanupState,
// and FileChangesState (spec.md §3). Variant-specific counters are
// optional fields populated only for their owning variant.
type OperationState struct {
	OperationID      string
	Variant          OperationVariant
	IsActive         bool
	Phase            string
	PhaseNumber      int
	PhaseCurrent     int64
	PhaseTotal       int64
	FilesProcessed   int64
	TotalFiles       int64
	CurrentFile      string
	ProgressMessage  string
	ErrorMessage     string
	CancelRequested  bool
	StartTime        time.Time
	EndTime          *time.Time

	// Scan-variant counters.
	EstimatedTotal int64
	DiscoveryCount int64

	// Cleanup-variant counters.
	OrphanedFound int64

	// File-changes-variant counters.
	ChangesFound      int64
	CorruptedFound    int64
	ChangedFilesJSON  string
}

// ScanReport is an immutable summary row written on terminal completion
// of a scan, cleanup, or file-changes operation (spec.md §3).
type ScanReport struct {
	ReportID        string
	ScanType        OperationVariant
	StartTime       time.Time
	EndTime         time.Time
	DirectoriesJSON string // snapshot of directories covered

	FilesScanned      int64
	FilesCorrupted    int64
	FilesHealthy      int64
	FilesWithWarnings int64

	OrphanedRecordsFound    int64
	OrphanedRecordsDeleted  int64

	FilesChanged       int64
	FilesCorruptedNew  int64
}

// IgnoredErrorPattern is a user-managed substring that suppresses a
// matching probe output line from contributing to a corruption verdict.
type IgnoredErrorPattern struct {
	ID      int64
	Pattern string
	Active  bool
}

// ScanConfiguration is an active scan-root path.
type ScanConfiguration struct {
	ID     int64
	Path   string
	Active bool
}

// ScanSchedule is a named trigger consumed only by internal/schedule;
// the Operation Engine treats it purely as a source of Submit() calls.
type ScanSchedule struct {
	ID             int64
	Name           string
	TimeExpression string // cron-style ("0 */6 * * *") or "@every 30m"
	Variant        OperationVariant
	Active         bool
}

// ExclusionType distinguishes path-prefix exclusions from
// extension exclusions, both consumed by the Discovery Walker.
type ExclusionType string

const (
	ExclusionPath      ExclusionType = "path"
	ExclusionExtension ExclusionType = "extension"
)

// Exclusion is a typed row consumed by the Discovery Walker.
type Exclusion struct {
	ID    int64
	Type  ExclusionType
	Value string
}
