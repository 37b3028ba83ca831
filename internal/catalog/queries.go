package catalog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sortWhitelist is the fixed set of columns ListScanResults may sort by
// (spec.md §4.1: "a sort column from a fixed whitelist").
var sortWhitelist = map[string]string{
	"file_path":       "file_path",
	"file_size":       "file_size",
	"scan_status":     "scan_status",
	"scan_date":       "scan_date",
	"discovered_date": "discovered_date",
	"last_modified":   "last_modified",
	"id":              "id",
}

// ListFilter describes the filters and pagination accepted by
// ListScanResults (spec.md §4.1).
type ListFilter struct {
	Status       ScanStatus // "" = any
	Corrupted    *bool      // nil = any
	HasWarnings  *bool
	MarkedGood   *bool
	PathContains string
	SortColumn   string // must be in sortWhitelist; defaults to "id"
	SortDesc     bool
	Limit        int
	Offset       int
}

// ListScanResults returns a page of rows matching the filter, plus the
// total row count matching the same filter (for pagination headers).
func (s *Store) ListScanResults(f ListFilter) ([]*ScanResult, int64, error) {
	sortCol, ok := sortWhitelist[f.SortColumn]
	if !ok {
		sortCol = "id"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	where, args := buildWhere(f)

	var total int64
	countQuery := "SELECT COUNT(*) FROM scan_results" + where
	if err := s.readers.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scan_results: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	query := fmt.Sprintf(
		"SELECT %s FROM scan_results%s ORDER BY %s %s LIMIT ? OFFSET ?",
		scanResultColumns, where, sortCol, dir,
	)
	rows, err := s.readers.Query(query, append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scan_results: %w", err)
	}
	defer rows.Close()

	results, err := scanResultRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func buildWhere(f ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Status != "" {
		clauses = append(clauses, "scan_status = ?")
		args = append(args, string(f.Status))
	}
	if f.Corrupted != nil {
		clauses = append(clauses, "is_corrupted = ?")
		args = append(args, boolToInt(*f.Corrupted))
	}
	if f.HasWarnings != nil {
		clauses = append(clauses, "has_warnings = ?")
		args = append(args, boolToInt(*f.HasWarnings))
	}
	if f.MarkedGood != nil {
		clauses = append(clauses, "marked_as_good = ?")
		args = append(args, boolToInt(*f.MarkedGood))
	}
	if f.PathContains != "" {
		clauses = append(clauses, "file_path LIKE ?")
		args = append(args, "%"+f.PathContains+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const scanResultColumns = `id, file_path, file_size, file_type, creation_date, last_modified,
	scan_status, is_corrupted, has_warnings, warning_details, corruption_details,
	marked_as_good, scan_tool, scan_duration, scan_output, file_hash,
	discovered_date, scan_date, deep_scan`

// GetByID looks up a single ScanResult by surrogate id.
func (s *Store) GetByID(id int64) (*ScanResult, error) {
	row := s.readers.QueryRow("SELECT "+scanResultColumns+" FROM scan_results WHERE id = ?", id)
	return scanResultRow(row)
}

// GetByPath looks up a single ScanResult by its unique file path.
func (s *Store) GetByPath(path string) (*ScanResult, error) {
	row := s.readers.QueryRow("SELECT "+scanResultColumns+" FROM scan_results WHERE file_path = ?", path)
	return scanResultRow(row)
}

// AggregateStats is the single-pass aggregate computed by spec.md §4.1's
// "aggregate counts by status and corruption categories" requirement.
type AggregateStats struct {
	Total             int64
	Pending           int64
	Scanning          int64
	Completed         int64
	Errored           int64
	EffectiveHealthy  int64
	EffectiveCorrupted int64
	EffectiveWarning  int64
	MarkedGood        int64
}

// Aggregate computes catalog-wide counts in one pass over the table.
func (s *Store) Aggregate() (*AggregateStats, error) {
	row := s.readers.QueryRow(`
		SELECT
			COUNT(*),
			SUM(CASE WHEN scan_status = 'pending' THEN 1 ELSE 0 END),
			SUM(CASE WHEN scan_status = 'scanning' THEN 1 ELSE 0 END),
			SUM(CASE WHEN scan_status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN scan_status = 'error' THEN 1 ELSE 0 END),
			SUM(CASE WHEN marked_as_good = 1 OR is_corrupted IS NOT 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN is_corrupted = 1 AND marked_as_good = 0 AND has_warnings = 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN has_warnings = 1 AND marked_as_good = 0 THEN 1 ELSE 0 END),
			SUM(CASE WHEN marked_as_good = 1 THEN 1 ELSE 0 END)
		FROM scan_results`)

	stats := &AggregateStats{}
	var pending, scanning, completed, errored, healthy, corrupted, warning, marked sql.NullInt64
	if err := row.Scan(&stats.Total, &pending, &scanning, &completed, &errored, &healthy, &corrupted, &warning, &marked); err != nil {
		return nil, fmt.Errorf("aggregate scan_results: %w", err)
	}
	stats.Pending = pending.Int64
	stats.Scanning = scanning.Int64
	stats.Completed = completed.Int64
	stats.Errored = errored.Int64
	stats.EffectiveHealthy = healthy.Int64
	stats.EffectiveCorrupted = corrupted.Int64
	stats.EffectiveWarning = warning.Int64
	stats.MarkedGood = marked.Int64
	return stats, nil
}

// ExistingPaths returns the full set of catalogued file paths, in
// bounded batches, for the Discovery Walker's dedup check (spec.md
// §4.4.1 "Load existing file_path set from C1 in bounded batches").
func (s *Store) ExistingPaths(batchSize int, fn func(paths []string) error) error {
	if batchSize <= 0 {
		batchSize = 5000
	}
	var lastID int64
	for {
		rows, err := s.readers.Query(
			"SELECT id, file_path FROM scan_results WHERE id > ? ORDER BY id LIMIT ?",
			lastID, batchSize,
		)
		if err != nil {
			return fmt.Errorf("query existing paths: %w", err)
		}
		var batch []string
		n := 0
		for rows.Next() {
			var id int64
			var path string
			if err := rows.Scan(&id, &path); err != nil {
				rows.Close()
				return err
			}
			batch = append(batch, path)
			lastID = id
			n++
		}
		rows.Close()
		if n == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if n < batchSize {
			return nil
		}
	}
}

// PendingBatches iterates pending ScanResult rows in ID-paginated
// batches, invoking fn per batch until exhausted or fn returns an error
// or false to stop early (used for cancellation between batches).
func (s *Store) PendingBatches(batchSize int, fn func(batch []*ScanResult) (keepGoing bool, err error)) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var lastID int64
	for {
		rows, err := s.readers.Query(
			"SELECT "+scanResultColumns+" FROM scan_results WHERE scan_status = 'pending' AND id > ? ORDER BY id LIMIT ?",
			lastID, batchSize,
		)
		if err != nil {
			return fmt.Errorf("query pending batch: %w", err)
		}
		batch, err := scanResultRows(rows)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		lastID = batch[len(batch)-1].ID
		keepGoing, err := fn(batch)
		if err != nil {
			return err
		}
		if !keepGoing || len(batch) < batchSize {
			return nil
		}
	}
}

// CountPending returns the number of rows still pending, used by the
// scan operation's termination check (spec.md §4.4.1).
func (s *Store) CountPending() (int64, error) {
	var n int64
	err := s.readers.QueryRow("SELECT COUNT(*) FROM scan_results WHERE scan_status = 'pending'").Scan(&n)
	return n, err
}

// AllRows iterates every ScanResult row in ID-paginated batches, used by
// the cleanup and file-changes operations (spec.md §4.4.2, §4.4.3).
func (s *Store) AllRows(batchSize int, fn func(batch []*ScanResult) (keepGoing bool, err error)) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	var lastID int64
	for {
		rows, err := s.readers.Query(
			"SELECT "+scanResultColumns+" FROM scan_results WHERE id > ? ORDER BY id LIMIT ?",
			lastID, batchSize,
		)
		if err != nil {
			return fmt.Errorf("query all rows batch: %w", err)
		}
		batch, err := scanResultRows(rows)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		lastID = batch[len(batch)-1].ID
		keepGoing, err := fn(batch)
		if err != nil {
			return err
		}
		if !keepGoing || len(batch) < batchSize {
			return nil
		}
	}
}

// CountAll returns the total number of catalogued rows.
func (s *Store) CountAll() (int64, error) {
	var n int64
	err := s.readers.QueryRow("SELECT COUNT(*) FROM scan_results").Scan(&n)
	return n, err
}

func scanResultRows(rows *sql.Rows) ([]*ScanResult, error) {
	defer rows.Close()
	var out []*ScanResult
	for rows.Next() {
		sr, err := scanRowValues(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanResultRow/scanRowValues.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResultRow(row *sql.Row) (*ScanResult, error) {
	return scanRowValues(row)
}

func scanRowValues(row rowScanner) (*ScanResult, error) {
	var sr ScanResult
	var creationDate, lastModified, discoveredDate, scanDate sql.NullTime
	var isCorrupted sql.NullBool
	var hasWarnings, markedAsGood, deepScan int

	err := row.Scan(
		&sr.ID, &sr.FilePath, &sr.FileSize, &sr.FileType, &creationDate, &lastModified,
		&sr.ScanStatus, &isCorrupted, &hasWarnings, &sr.WarningDetails, &sr.CorruptionDetails,
		&markedAsGood, &sr.ScanTool, &sr.ScanDuration, &sr.ScanOutput, &sr.FileHash,
		&discoveredDate, &scanDate, &deepScan,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan scan_results row: %w", err)
	}

	sr.CreationDate = creationDate.Time
	sr.LastModified = lastModified.Time
	sr.HasWarnings = hasWarnings != 0
	sr.MarkedAsGood = markedAsGood != 0
	sr.DeepScan = deepScan != 0
	if isCorrupted.Valid {
		v := isCorrupted.Bool
		sr.IsCorrupted = &v
	}
	if discoveredDate.Valid {
		t := discoveredDate.Time
		sr.DiscoveredDate = &t
	}
	if scanDate.Valid {
		t := scanDate.Time
		sr.ScanDate = &t
	}
	return &sr, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
