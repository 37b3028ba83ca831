package catalog

import (
	"database/sql"
	"fmt"
)

const operationStateColumns = `operation_id, variant, is_active, phase, phase_number, phase_current,
	phase_total, files_processed, total_files, current_file, progress_message,
	error_message, cancel_requested, start_time, end_time, estimated_total,
	discovery_count, orphaned_found, changes_found, corrupted_found, changed_files_json`

// ActiveOperation returns the active (is_active=1) OperationState row for
// a variant, or nil if none is active. spec.md §4.4 invariant: at most
// one row per variant has is_active=true.
func (s *Store) ActiveOperation(variant OperationVariant) (*OperationState, error) {
	row := s.readers.QueryRow(
		"SELECT "+operationStateColumns+" FROM operation_states WHERE variant = ? AND is_active = 1 LIMIT 1",
		string(variant),
	)
	return operationStateRow(row)
}

// GetOperation looks up any OperationState row, active or terminal, by id.
func (s *Store) GetOperation(operationID string) (*OperationState, error) {
	row := s.readers.QueryRow(
		"SELECT "+operationStateColumns+" FROM operation_states WHERE operation_id = ?",
		operationID,
	)
	return operationStateRow(row)
}

// LatestOperationForVariant returns the most recently started
// OperationState row for a variant, active or terminal — the read path
// status polling uses once an operation has finished (spec.md §9's
// pull-only reader: the HTTP status endpoint reads the row directly
// rather than an in-memory mirror).
func (s *Store) LatestOperationForVariant(variant OperationVariant) (*OperationState, error) {
	row := s.readers.QueryRow(
		"SELECT "+operationStateColumns+" FROM operation_states WHERE variant = ? ORDER BY start_time DESC LIMIT 1",
		string(variant),
	)
	return operationStateRow(row)
}

// ActiveOperations returns every row with is_active=1, used by the
// crash-recovery sweep at startup (spec.md §4.4.5).
func (s *Store) ActiveOperations() ([]*OperationState, error) {
	rows, err := s.readers.Query("SELECT " + operationStateColumns + " FROM operation_states WHERE is_active = 1")
	if err != nil {
		return nil, fmt.Errorf("query active operations: %w", err)
	}
	defer rows.Close()

	var out []*OperationState
	for rows.Next() {
		st, err := operationStateRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func operationStateRow(row rowScanner) (*OperationState, error) {
	var st OperationState
	var isActive, cancelRequested int
	var startTime sql.NullTime
	var endTime sql.NullTime

	err := row.Scan(
		&st.OperationID, &st.Variant, &isActive, &st.Phase, &st.PhaseNumber, &st.PhaseCurrent,
		&st.PhaseTotal, &st.FilesProcessed, &st.TotalFiles, &st.CurrentFile, &st.ProgressMessage,
		&st.ErrorMessage, &cancelRequested, &startTime, &endTime, &st.EstimatedTotal,
		&st.DiscoveryCount, &st.OrphanedFound, &st.ChangesFound, &st.CorruptedFound, &st.ChangedFilesJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan operation_states row: %w", err)
	}
	st.IsActive = isActive != 0
	st.CancelRequested = cancelRequested != 0
	st.StartTime = startTime.Time
	if endTime.Valid {
		t := endTime.Time
		st.EndTime = &t
	}
	return &st, nil
}

// LatestReport returns the most recent ScanReport for a variant.
func (s *Store) LatestReport(variant OperationVariant) (*ScanReport, error) {
	row := s.readers.QueryRow(
		"SELECT "+reportColumns+" FROM scan_reports WHERE scan_type = ? ORDER BY end_time DESC LIMIT 1",
		string(variant),
	)
	return reportRow(row)
}

// GetReport looks up a single report by id.
func (s *Store) GetReport(reportID string) (*ScanReport, error) {
	row := s.readers.QueryRow("SELECT "+reportColumns+" FROM scan_reports WHERE report_id = ?", reportID)
	return reportRow(row)
}

// ListReports returns reports matching an optional variant filter, most
// recent first, paginated.
func (s *Store) ListReports(variant OperationVariant, limit, offset int) ([]*ScanReport, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if variant != "" {
		rows, err = s.readers.Query(
			"SELECT "+reportColumns+" FROM scan_reports WHERE scan_type = ? ORDER BY end_time DESC LIMIT ? OFFSET ?",
			string(variant), limit, offset,
		)
	} else {
		rows, err = s.readers.Query(
			"SELECT "+reportColumns+" FROM scan_reports ORDER BY end_time DESC LIMIT ? OFFSET ?",
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list scan_reports: %w", err)
	}
	defer rows.Close()

	var out []*ScanReport
	for rows.Next() {
		r, err := reportRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteReport removes one report row, used by the report-deletion
// admin endpoint.
func (s *Store) DeleteReport(reportID string) error {
	_, err := s.writer.Exec("DELETE FROM scan_reports WHERE report_id = ?", reportID)
	return err
}

const reportColumns = `report_id, scan_type, start_time, end_time, directories_json,
	files_scanned, files_corrupted, files_healthy, files_with_warnings,
	orphaned_records_found, orphaned_records_deleted, files_changed, files_corrupted_new`

func reportRow(row rowScanner) (*ScanReport, error) {
	var r ScanReport
	err := row.Scan(
		&r.ReportID, &r.ScanType, &r.StartTime, &r.EndTime, &r.DirectoriesJSON,
		&r.FilesScanned, &r.FilesCorrupted, &r.FilesHealthy, &r.FilesWithWarnings,
		&r.OrphanedRecordsFound, &r.OrphanedRecordsDeleted, &r.FilesChanged, &r.FilesCorruptedNew,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan scan_reports row: %w", err)
	}
	return &r, nil
}
