// apply.go holds the mutation functions the Write Serializer (internal/writer)
// calls from its single writer goroutine. Every function here takes an
// execer (either the writer *sql.DB directly or a *sql.Tx) so the
// serializer controls transaction boundaries per spec.md §4.5 ("opens a
// transaction per message, or per batch"). Nothing outside
// internal/writer should call these.
package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// BeginWrite starts a transaction on the writer connection.
func (s *Store) BeginWrite() (*sql.Tx, error) {
	return s.writer.Begin()
}

// NewFileInsert describes a freshly discovered file, queued with
// scan_status=pending (spec.md §4.4.1 phase 2, "Adding").
type NewFileInsert struct {
	FilePath       string
	FileSize       int64
	FileType       string
	CreationDate   time.Time
	LastModified   time.Time
	DiscoveredDate time.Time
}

// InsertNewFile adds one pending ScanResult row. Conflicts on the unique
// file_path are ignored (a file already catalogued is left untouched).
func InsertNewFile(e execer, f NewFileInsert) error {
	_, err := e.Exec(`
		INSERT OR IGNORE INTO scan_results
			(file_path, file_size, file_type, creation_date, last_modified, scan_status, discovered_date)
		VALUES (?, ?, ?, ?, ?, 'pending', ?)`,
		f.FilePath, f.FileSize, f.FileType, f.CreationDate, f.LastModified, f.DiscoveredDate,
	)
	if err != nil {
		return fmt.Errorf("insert new file: %w", err)
	}
	return nil
}

// MarkScanning transitions a row to scan_status=scanning just before a
// probe starts working on it.
func MarkScanning(e execer, id int64) error {
	_, err := e.Exec("UPDATE scan_results SET scan_status = 'scanning' WHERE id = ?", id)
	return err
}

// ScanResultUpdate carries one probe verdict back into the catalog
// (spec.md §4.4.1 phase 3).
type ScanResultUpdate struct {
	ID                int64
	ScanStatus        ScanStatus
	IsCorrupted       *bool
	HasWarnings       bool
	WarningDetails    string
	CorruptionDetails string
	ScanTool          string
	ScanDuration      float64
	ScanOutput        string
	FileHash          string
	ScanDate          time.Time
}

// ApplyScanResult writes a completed (or errored) probe verdict.
func ApplyScanResult(e execer, u ScanResultUpdate) error {
	var isCorrupted interface{}
	if u.IsCorrupted != nil {
		isCorrupted = boolToInt(*u.IsCorrupted)
	}
	_, err := e.Exec(`
		UPDATE scan_results SET
			scan_status = ?, is_corrupted = ?, has_warnings = ?, warning_details = ?,
			corruption_details = ?, scan_tool = ?, scan_duration = ?, scan_output = ?,
			file_hash = ?, scan_date = ?
		WHERE id = ?`,
		string(u.ScanStatus), isCorrupted, boolToInt(u.HasWarnings), u.WarningDetails,
		u.CorruptionDetails, u.ScanTool, u.ScanDuration, u.ScanOutput,
		u.FileHash, u.ScanDate, u.ID,
	)
	if err != nil {
		return fmt.Errorf("apply scan result: %w", err)
	}
	return nil
}

// ResetToPending resets one row to pending for a rescan, clearing the
// prior scan_date and corruption_details. Targeted rescans use
// ResetToPendingByPath and crash recovery uses ResetStuckScanning.
func ResetToPending(e execer, id int64) error {
	_, err := e.Exec(`
		UPDATE scan_results SET scan_status = 'pending', scan_date = NULL, corruption_details = ''
		WHERE id = ?`, id)
	return err
}

// ResetToPendingByPath resets a row identified by path, used by the
// rescan-by-path-list entry point.
func ResetToPendingByPath(e execer, path string) error {
	_, err := e.Exec(`
		UPDATE scan_results SET scan_status = 'pending', scan_date = NULL, corruption_details = ''
		WHERE file_path = ?`, path)
	return err
}

// ResetStuckScanning resets every scan_status=scanning row to pending;
// this is both the startup crash-recovery sweep and the on-demand
// recover-stuck-scan admin endpoint (spec.md §4.4.5).
func ResetStuckScanning(e execer) (int64, error) {
	res, err := e.Exec(`
		UPDATE scan_results SET scan_status = 'pending', scan_date = NULL, corruption_details = ''
		WHERE scan_status = 'scanning'`)
	if err != nil {
		return 0, fmt.Errorf("reset stuck scanning rows: %w", err)
	}
	return res.RowsAffected()
}

// SetMarkedAsGood applies the user override described in spec.md §3.
func SetMarkedAsGood(e execer, id int64, marked bool) error {
	_, err := e.Exec("UPDATE scan_results SET marked_as_good = ? WHERE id = ?", boolToInt(marked), id)
	return err
}

// DeleteScanResults removes a batch of rows by id, used by the cleanup
// operation's deleting_entries phase (spec.md §4.4.2, 50 per commit).
func DeleteScanResults(e execer, ids []int64) error {
	for _, id := range ids {
		if _, err := e.Exec("DELETE FROM scan_results WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete scan result %d: %w", id, err)
		}
	}
	return nil
}

// --- Operation state ----------------------------------------------------

// CreateOperationState inserts a new is_active=1 row for a variant. The
// caller (Operation Engine) must already have verified via
// ActiveOperation that no row is currently active for this variant;
// this function does not repeat that check.
func CreateOperationState(e execer, st *OperationState) error {
	_, err := e.Exec(`
		INSERT INTO operation_states
			(operation_id, variant, is_active, phase, phase_number, phase_current, phase_total,
			 files_processed, total_files, current_file, progress_message, error_message,
			 cancel_requested, start_time, end_time, estimated_total, discovery_count,
			 orphaned_found, changes_found, corrupted_found, changed_files_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.OperationID, string(st.Variant), boolToInt(st.IsActive), st.Phase, st.PhaseNumber,
		st.PhaseCurrent, st.PhaseTotal, st.FilesProcessed, st.TotalFiles, st.CurrentFile,
		st.ProgressMessage, st.ErrorMessage, boolToInt(st.CancelRequested), st.StartTime,
		timeOrNil(st.EndTime), st.EstimatedTotal, st.DiscoveryCount, st.OrphanedFound,
		st.ChangesFound, st.CorruptedFound, st.ChangedFilesJSON,
	)
	if err != nil {
		return fmt.Errorf("create operation state: %w", err)
	}
	return nil
}

// UpdateOperationState overwrites the mutable progress fields of an
// existing row.
func UpdateOperationState(e execer, st *OperationState) error {
	_, err := e.Exec(`
		UPDATE operation_states SET
			is_active = ?, phase = ?, phase_number = ?, phase_current = ?, phase_total = ?,
			files_processed = ?, total_files = ?, current_file = ?, progress_message = ?,
			error_message = ?, cancel_requested = ?, end_time = ?, estimated_total = ?,
			discovery_count = ?, orphaned_found = ?, changes_found = ?, corrupted_found = ?,
			changed_files_json = ?
		WHERE operation_id = ?`,
		boolToInt(st.IsActive), st.Phase, st.PhaseNumber, st.PhaseCurrent, st.PhaseTotal,
		st.FilesProcessed, st.TotalFiles, st.CurrentFile, st.ProgressMessage,
		st.ErrorMessage, boolToInt(st.CancelRequested), timeOrNil(st.EndTime), st.EstimatedTotal,
		st.DiscoveryCount, st.OrphanedFound, st.ChangesFound, st.CorruptedFound,
		st.ChangedFilesJSON, st.OperationID,
	)
	if err != nil {
		return fmt.Errorf("update operation state: %w", err)
	}
	return nil
}

// RequestCancel sets cancel_requested=1 on the active row for a variant.
// Returns false if no row is currently active (spec.md §4.7: cancel
// returns 400 when no active operation exists).
func RequestCancel(e execer, variant OperationVariant) (bool, error) {
	res, err := e.Exec(
		"UPDATE operation_states SET cancel_requested = 1 WHERE variant = ? AND is_active = 1",
		string(variant),
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkInterrupted marks every currently-active row as interrupted; run
// once at process startup (spec.md §4.4.5).
func MarkInterrupted(e execer) (int64, error) {
	res, err := e.Exec(`
		UPDATE operation_states SET is_active = 0, phase = 'interrupted', end_time = CURRENT_TIMESTAMP
		WHERE is_active = 1`)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// InsertReport writes an immutable ScanReport row on terminal success.
func InsertReport(e execer, r *ScanReport) error {
	_, err := e.Exec(`
		INSERT INTO scan_reports
			(report_id, scan_type, start_time, end_time, directories_json, files_scanned,
			 files_corrupted, files_healthy, files_with_warnings, orphaned_records_found,
			 orphaned_records_deleted, files_changed, files_corrupted_new)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReportID, string(r.ScanType), r.StartTime, r.EndTime, r.DirectoriesJSON, r.FilesScanned,
		r.FilesCorrupted, r.FilesHealthy, r.FilesWithWarnings, r.OrphanedRecordsFound,
		r.OrphanedRecordsDeleted, r.FilesChanged, r.FilesCorruptedNew,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}
