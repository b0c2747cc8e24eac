package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/reverie-ai/reverie/memory"
)

// SQLite implements memory.Backend on a single-file SQLite database.
type SQLite struct {
	db *sql.DB
}

// Interface compliance (compile-time assertion)
var _ memory.Backend = (*SQLite)(nil)

// NewSQLite opens or creates a SQLite database at the given path and applies
// the schema. WAL mode is enabled for concurrent readers.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		type          TEXT NOT NULL,
		importance    REAL NOT NULL,
		valence       REAL NOT NULL,
		confidence    REAL NOT NULL,
		source        TEXT,
		tags          TEXT,
		created_at    TEXT NOT NULL,
		last_accessed TEXT NOT NULL,
		access_count  INTEGER NOT NULL,
		decay_rate    REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_source ON memories(source);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_accessed ON memories(last_accessed DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save implements Backend. INSERT OR REPLACE makes saves last-write-wins by id.
func (s *SQLite) Save(e *memory.Entry) error {
	rec := e.ToRecord()
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO memories
		(id, content, type, importance, valence, confidence, source, tags,
		 created_at, last_accessed, access_count, decay_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Content, rec.Type, rec.Importance, rec.Valence,
		rec.Confidence, nullable(rec.Source), string(tags),
		rec.CreatedAt, rec.LastAccessed, rec.AccessCount, rec.DecayRate,
	)
	if err != nil {
		return fmt.Errorf("save memory %s: %w", rec.ID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Load implements Backend.
func (s *SQLite) Load(id string) (*memory.Entry, error) {
	row := s.db.QueryRow(`
		SELECT id, content, type, importance, valence, confidence, source, tags,
		       created_at, last_accessed, access_count, decay_rate
		FROM memories WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, memory.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load memory %s: %w", id, err)
	}
	return e, nil
}

// LoadAll implements Backend. Rows that fail to decode are skipped.
func (s *SQLite) LoadAll() ([]*memory.Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, content, type, importance, valence, confidence, source, tags,
		       created_at, last_accessed, access_count, decay_rate
		FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("load all memories: %w", err)
	}
	defer rows.Close()

	var entries []*memory.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*memory.Entry, error) {
	var rec memory.Record
	var source sql.NullString
	var tags sql.NullString
	if err := row.Scan(
		&rec.ID, &rec.Content, &rec.Type, &rec.Importance, &rec.Valence,
		&rec.Confidence, &source, &tags, &rec.CreatedAt, &rec.LastAccessed,
		&rec.AccessCount, &rec.DecayRate,
	); err != nil {
		return nil, err
	}
	rec.Source = source.String
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return memory.FromRecord(rec)
}

// Delete implements Backend. Returns false when the id was unknown.
func (s *SQLite) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete memory %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count implements Backend.
func (s *SQLite) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return n, nil
}

// Backup implements Backend using VACUUM INTO, which produces a consistent
// standalone database file.
func (s *SQLite) Backup(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
	}
	// VACUUM INTO fails if the target exists.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale backup: %w", err)
	}
	if _, err := s.db.Exec(`VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("backup to %s: %w", path, err)
	}
	return nil
}

// ClearAll implements Backend.
func (s *SQLite) ClearAll() error {
	if _, err := s.db.Exec(`DELETE FROM memories`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	return nil
}

// Close implements Backend.
func (s *SQLite) Close() error {
	return s.db.Close()
}
