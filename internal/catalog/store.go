package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mediaguard/internal/logger"
)

// Store is the Catalog Store (spec.md §4.1). It owns two *sql.DB handles
// against the same SQLite file: a reader pool (safe for concurrent use
// thanks to WAL) and a single-connection writer handle reserved for the
// Write Serializer (spec.md §4.5, §5 "one writer on the embedded
// database").
type Store struct {
	readers *sql.DB
	writer  *sql.DB
	path    string
}

// Open creates (if needed) the database file and its parent directory,
// applies the WAL/busy-timeout/synchronous pragmas spec.md §4.1
// requires, bootstraps the schema, and returns a ready Store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=30000&_synchronous=NORMAL&_foreign_keys=on", path)

	readers, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open reader pool: %w", err)
	}
	readers.SetMaxOpenConns(8)
	readers.SetConnMaxLifetime(5 * time.Minute)

	writer, err := sql.Open("sqlite3", dsn)
	if err != nil {
		readers.Close()
		return nil, fmt.Errorf("open writer handle: %w", err)
	}
	writer.SetMaxOpenConns(1)
	writer.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{readers: readers, writer: writer, path: path}
	if err := s.bootstrap(); err != nil {
		readers.Close()
		writer.Close()
		return nil, err
	}

	go s.prePingLoop()

	return s, nil
}

// Close releases both database handles.
func (s *Store) Close() error {
	werr := s.writer.Close()
	rerr := s.readers.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// WriterDB exposes the single writer connection to internal/writer.
// Nothing else should hold a reference to it.
func (s *Store) WriterDB() *sql.DB { return s.writer }

// prePingLoop keeps the connection pool warm, matching spec.md §4.1's
// "pre-ping and a 5-minute recycle" tuning note.
func (s *Store) prePingLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		if err := s.readers.Ping(); err != nil {
			logger.Warn("catalog: reader pool ping failed: %v", err)
		}
	}
}

// bootstrap creates every table and index idempotently. Run once at
// startup; safe to call against an existing database.
func (s *Store) bootstrap() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_path TEXT NOT NULL UNIQUE,
			file_size INTEGER NOT NULL DEFAULT 0,
			file_type TEXT NOT NULL DEFAULT '',
			creation_date DATETIME,
			last_modified DATETIME,
			scan_status TEXT NOT NULL DEFAULT 'pending',
			is_corrupted INTEGER,
			has_warnings INTEGER NOT NULL DEFAULT 0,
			warning_details TEXT NOT NULL DEFAULT '',
			corruption_details TEXT NOT NULL DEFAULT '',
			marked_as_good INTEGER NOT NULL DEFAULT 0,
			scan_tool TEXT NOT NULL DEFAULT '',
			scan_duration REAL NOT NULL DEFAULT 0,
			scan_output TEXT NOT NULL DEFAULT '',
			file_hash TEXT NOT NULL DEFAULT '',
			discovered_date DATETIME,
			scan_date DATETIME,
			deep_scan INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_status ON scan_results(scan_status)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_scan_date ON scan_results(scan_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_corrupted ON scan_results(is_corrupted)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_marked_good ON scan_results(marked_as_good)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_discovered ON scan_results(discovered_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_hash ON scan_results(file_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_modified ON scan_results(last_modified)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_status_date ON scan_results(scan_status, scan_date)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_results_corrupted_marked ON scan_results(is_corrupted, marked_as_good)`,

		`CREATE TABLE IF NOT EXISTS operation_states (
			operation_id TEXT PRIMARY KEY,
			variant TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL DEFAULT '',
			phase_number INTEGER NOT NULL DEFAULT 0,
			phase_current INTEGER NOT NULL DEFAULT 0,
			phase_total INTEGER NOT NULL DEFAULT 0,
			files_processed INTEGER NOT NULL DEFAULT 0,
			total_files INTEGER NOT NULL DEFAULT 0,
			current_file TEXT NOT NULL DEFAULT '',
			progress_message TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			cancel_requested INTEGER NOT NULL DEFAULT 0,
			start_time DATETIME,
			end_time DATETIME,
			estimated_total INTEGER NOT NULL DEFAULT 0,
			discovery_count INTEGER NOT NULL DEFAULT 0,
			orphaned_found INTEGER NOT NULL DEFAULT 0,
			changes_found INTEGER NOT NULL DEFAULT 0,
			corrupted_found INTEGER NOT NULL DEFAULT 0,
			changed_files_json TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_operation_states_variant_active ON operation_states(variant, is_active)`,

		`CREATE TABLE IF NOT EXISTS scan_reports (
			report_id TEXT PRIMARY KEY,
			scan_type TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			directories_json TEXT NOT NULL DEFAULT '',
			files_scanned INTEGER NOT NULL DEFAULT 0,
			files_corrupted INTEGER NOT NULL DEFAULT 0,
			files_healthy INTEGER NOT NULL DEFAULT 0,
			files_with_warnings INTEGER NOT NULL DEFAULT 0,
			orphaned_records_found INTEGER NOT NULL DEFAULT 0,
			orphaned_records_deleted INTEGER NOT NULL DEFAULT 0,
			files_changed INTEGER NOT NULL DEFAULT 0,
			files_corrupted_new INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_reports_type_end ON scan_reports(scan_type, end_time)`,

		`CREATE TABLE IF NOT EXISTS ignored_error_patterns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pattern TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS scan_configurations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS scan_schedules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			time_expression TEXT NOT NULL,
			variant TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS exclusions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.writer.Exec(stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
