// Package store persists finished reasoning paths and reflection cycles to
// SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"axiomind/internal/engine"
	"axiomind/internal/reflection"
)

// LocalStore is a write-through sink for pipeline records. Records are
// stored as JSON alongside the columns queries filter on.
type LocalStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal_mode: %w", err)
	}

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	pathTable := `
	CREATE TABLE IF NOT EXISTS reasoning_paths (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		depth INTEGER NOT NULL,
		certainty REAL NOT NULL,
		lambda_total REAL NOT NULL,
		safe INTEGER NOT NULL,
		record TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_paths_safe ON reasoning_paths(safe);
	`

	cycleTable := `
	CREATE TABLE IF NOT EXISTS reflection_cycles (
		id TEXT PRIMARY KEY,
		level INTEGER NOT NULL,
		emergence REAL NOT NULL,
		lambda_impact REAL NOT NULL,
		record TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_level ON reflection_cycles(level);
	`

	for _, table := range []string{pathTable, cycleTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// SavePath persists one finished reasoning path.
func (s *LocalStore) SavePath(p *engine.PathRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal path record: %w", err)
	}

	safe := 0
	if p.Safety.Passed() {
		safe = 1
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO reasoning_paths
		 (id, query, depth, certainty, lambda_total, safe, record)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Query, p.Depth, p.Certainty, p.LambdaTotal, safe, string(record),
	)
	if err != nil {
		return fmt.Errorf("failed to store path: %w", err)
	}
	return nil
}

// SaveCycle persists one finished reflection cycle.
func (s *LocalStore) SaveCycle(c *reflection.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle record: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO reflection_cycles
		 (id, level, emergence, lambda_impact, record)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, int(c.LevelReached), c.Emergence, c.LambdaImpact, string(record),
	)
	if err != nil {
		return fmt.Errorf("failed to store cycle: %w", err)
	}
	return nil
}

// RecentPaths returns up to limit paths, newest first.
func (s *LocalStore) RecentPaths(limit int) ([]engine.PathRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT record FROM reasoning_paths ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var out []engine.PathRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		var p engine.PathRecord
		if err := json.Unmarshal([]byte(record), &p); err != nil {
			return nil, fmt.Errorf("failed to decode path record: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CycleCount returns how many reflection cycles have been persisted.
func (s *LocalStore) CycleCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM reflection_cycles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cycles: %w", err)
	}
	return n, nil
}

// UnsafePathCount returns how many persisted paths failed the safety screen.
func (s *LocalStore) UnsafePathCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM reasoning_paths WHERE safe = 0").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unsafe paths: %w", err)
	}
	return n, nil
}
