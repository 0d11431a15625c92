// Package local is the on-device workout store: everything the user
// logs lands here first, flagged unsynced, so a dead network can never
// lose a session. Records are keyed rows in a SQLite database, one row
// per workout, giving per-record durability instead of rewriting a
// whole serialized collection on every mutation.
package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meltforce/fittrack/internal/models"
)

// Store is the durable keyed collection of workout records on-device.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the workout database at dir/workouts.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "workouts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening workout db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS workouts (
		id       TEXT PRIMARY KEY,
		synced   INTEGER NOT NULL DEFAULT 0,
		saved_at INTEGER NOT NULL,
		record   TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating workouts table: %w", err)
	}

	return &Store{db: db}, nil
}

// Save inserts a finalized workout. Records are returned
// most-recently-saved first, so a new save sorts to the front.
func (s *Store) Save(ctx context.Context, w models.Workout) error {
	record, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workouts (id, synced, saved_at, record) VALUES (?, ?, ?, ?)`,
		w.ID, boolToInt(w.Synced), time.Now().UnixNano(), record)
	if err != nil {
		return fmt.Errorf("saving workout: %w", err)
	}
	return nil
}

// Update replaces the record matching w.ID. A missing id is a silent
// no-op: callers must Save before Update.
func (s *Store) Update(ctx context.Context, w models.Workout) error {
	record, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE workouts SET synced = ?, record = ? WHERE id = ?`,
		boolToInt(w.Synced), record, w.ID)
	if err != nil {
		return fmt.Errorf("updating workout: %w", err)
	}
	return nil
}

// Replace rewrites the record stored under oldID with w, adopting w.ID
// as the new key. The sync client uses this to swap the client-generated
// identifier for the server-assigned one in a single write.
func (s *Store) Replace(ctx context.Context, oldID string, w models.Workout) error {
	record, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE workouts SET id = ?, synced = ?, record = ? WHERE id = ?`,
		w.ID, boolToInt(w.Synced), record, oldID)
	if err != nil {
		return fmt.Errorf("replacing workout %s: %w", oldID, err)
	}
	return nil
}

// GetAll returns all records, most-recently-saved first. Unreadable
// storage degrades to an empty collection: a missing cache must never
// block logging.
func (s *Store) GetAll(ctx context.Context) []models.Workout {
	return s.query(ctx, `SELECT record FROM workouts ORDER BY saved_at DESC`)
}

// GetUnsynced returns the records not yet acknowledged by the server,
// most-recently-saved first.
func (s *Store) GetUnsynced(ctx context.Context) []models.Workout {
	return s.query(ctx, `SELECT record FROM workouts WHERE synced = 0 ORDER BY saved_at DESC`)
}

func (s *Store) query(ctx context.Context, q string) []models.Workout {
	workouts := []models.Workout{}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return workouts
	}
	defer rows.Close()

	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			continue
		}
		var w models.Workout
		if err := json.Unmarshal(record, &w); err != nil {
			// Corrupt row; skip it rather than fail the read.
			continue
		}
		workouts = append(workouts, w)
	}
	return workouts
}

// Delete removes the matching record if present; no-op otherwise.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workouts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting workout: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
