package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wlchewing/internal/ime"
)

// Store represents the SQLite statistics store.
type Store struct {
	db *sql.DB
}

var _ ime.Recorder = (*Store)(nil)

// Open opens or creates the SQLite database at the given path and runs migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=1000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordSession inserts one activation.
func (s *Store) RecordSession(st ime.Stats) error {
	_, err := s.db.Exec(`
		INSERT INTO activations (started_ns, ended_ns, keys_handled, keys_forwarded, commits, commit_runes, selections, toggles, repeats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.Started.UnixNano(), st.Ended.UnixNano(),
		st.KeysHandled, st.KeysForwarded, st.Commits, st.CommitRunes,
		st.Selections, st.Toggles, st.Repeats,
	)
	if err != nil {
		return fmt.Errorf("insert activation: %w", err)
	}
	return nil
}

// Totals aggregates activations.
type Totals struct {
	Activations   int64
	Active        time.Duration
	KeysHandled   uint64
	KeysForwarded uint64
	Commits       uint64
	CommitRunes   uint64
	Selections    uint64
	Toggles       uint64
	Repeats       uint64
}

// Totals sums every activation that started at or after since.
func (s *Store) Totals(since time.Time) (Totals, error) {
	var t Totals
	var activeNs int64
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(ended_ns - started_ns), 0),
		       COALESCE(SUM(keys_handled), 0),
		       COALESCE(SUM(keys_forwarded), 0),
		       COALESCE(SUM(commits), 0),
		       COALESCE(SUM(commit_runes), 0),
		       COALESCE(SUM(selections), 0),
		       COALESCE(SUM(toggles), 0),
		       COALESCE(SUM(repeats), 0)
		FROM activations WHERE started_ns >= ?`, since.UnixNano(),
	).Scan(&t.Activations, &activeNs, &t.KeysHandled, &t.KeysForwarded,
		&t.Commits, &t.CommitRunes, &t.Selections, &t.Toggles, &t.Repeats)
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}
	t.Active = time.Duration(activeNs)
	return t, nil
}

// Recent returns up to limit activations, newest first.
func (s *Store) Recent(limit int) ([]ime.Stats, error) {
	rows, err := s.db.Query(`
		SELECT started_ns, ended_ns, keys_handled, keys_forwarded, commits, commit_runes, selections, toggles, repeats
		FROM activations ORDER BY started_ns DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activations: %w", err)
	}
	defer rows.Close()

	var out []ime.Stats
	for rows.Next() {
		var st ime.Stats
		var started, ended int64
		if err := rows.Scan(&started, &ended, &st.KeysHandled, &st.KeysForwarded,
			&st.Commits, &st.CommitRunes, &st.Selections, &st.Toggles, &st.Repeats); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		st.Started = time.Unix(0, started)
		st.Ended = time.Unix(0, ended)
		out = append(out, st)
	}
	return out, rows.Err()
}

// Prune deletes activations that started before cutoff and returns the
// number removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM activations WHERE started_ns < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune activations: %w", err)
	}
	return res.RowsAffected()
}
