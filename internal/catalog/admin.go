package catalog

import "fmt"

// --- Exclusions -------------------------------------------------------

func (s *Store) ListExclusions() ([]*Exclusion, error) {
	rows, err := s.readers.Query("SELECT id, type, value FROM exclusions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()
	var out []*Exclusion
	for rows.Next() {
		e := &Exclusion{}
		if err := rows.Scan(&e.ID, &e.Type, &e.Value); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) AddExclusion(typ ExclusionType, value string) (int64, error) {
	res, err := s.writer.Exec("INSERT INTO exclusions (type, value) VALUES (?, ?)", string(typ), value)
	if err != nil {
		return 0, fmt.Errorf("add exclusion: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) RemoveExclusion(id int64) error {
	_, err := s.writer.Exec("DELETE FROM exclusions WHERE id = ?", id)
	return err
}

// --- Ignored error patterns --------------------------------------------

func (s *Store) ListIgnoredPatterns() ([]*IgnoredErrorPattern, error) {
	rows, err := s.readers.Query("SELECT id, pattern, active FROM ignored_error_patterns ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list ignored patterns: %w", err)
	}
	defer rows.Close()
	var out []*IgnoredErrorPattern
	for rows.Next() {
		p := &IgnoredErrorPattern{}
		var active int
		if err := rows.Scan(&p.ID, &p.Pattern, &active); err != nil {
			return nil, err
		}
		p.Active = active != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveIgnoredPatterns returns only the active pattern strings, the
// form the Media Prober consumes.
func (s *Store) ActiveIgnoredPatterns() ([]string, error) {
	rows, err := s.readers.Query("SELECT pattern FROM ignored_error_patterns WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("list active ignored patterns: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AddIgnoredPattern(pattern string) (int64, error) {
	res, err := s.writer.Exec("INSERT INTO ignored_error_patterns (pattern, active) VALUES (?, 1)", pattern)
	if err != nil {
		return 0, fmt.Errorf("add ignored pattern: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) RemoveIgnoredPattern(id int64) error {
	_, err := s.writer.Exec("DELETE FROM ignored_error_patterns WHERE id = ?", id)
	return err
}

// --- Scan configurations (active roots) --------------------------------

func (s *Store) ListScanConfigurations() ([]*ScanConfiguration, error) {
	rows, err := s.readers.Query("SELECT id, path, active FROM scan_configurations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list scan configurations: %w", err)
	}
	defer rows.Close()
	var out []*ScanConfiguration
	for rows.Next() {
		c := &ScanConfiguration{}
		var active int
		if err := rows.Scan(&c.ID, &c.Path, &active); err != nil {
			return nil, err
		}
		c.Active = active != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// ActiveRoots returns only the active root paths, the form the
// Discovery Walker consumes.
func (s *Store) ActiveRoots() ([]string, error) {
	rows, err := s.readers.Query("SELECT path FROM scan_configurations WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("list active roots: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) AddScanConfiguration(path string) (int64, error) {
	res, err := s.writer.Exec("INSERT OR IGNORE INTO scan_configurations (path, active) VALUES (?, 1)", path)
	if err != nil {
		return 0, fmt.Errorf("add scan configuration: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) RemoveScanConfiguration(id int64) error {
	_, err := s.writer.Exec("DELETE FROM scan_configurations WHERE id = ?", id)
	return err
}

// --- Schedules -----------------------------------------------------------

func (s *Store) ListSchedules() ([]*ScanSchedule, error) {
	rows, err := s.readers.Query("SELECT id, name, time_expression, variant, active FROM scan_schedules ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()
	var out []*ScanSchedule
	for rows.Next() {
		sc := &ScanSchedule{}
		var active int
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.TimeExpression, &sc.Variant, &active); err != nil {
			return nil, err
		}
		sc.Active = active != 0
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) AddSchedule(name, timeExpr string, variant OperationVariant) (int64, error) {
	res, err := s.writer.Exec(
		"INSERT INTO scan_schedules (name, time_expression, variant, active) VALUES (?, ?, ?, 1)",
		name, timeExpr, string(variant),
	)
	if err != nil {
		return 0, fmt.Errorf("add schedule: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) RemoveSchedule(id int64) error {
	_, err := s.writer.Exec("DELETE FROM scan_schedules WHERE id = ?", id)
	return err
}
