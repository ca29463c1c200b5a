// Package store persists population snapshots in SQLite so runs can be
// inspected, exported, or curated later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"elcs/internal/logging"
	"elcs/internal/population"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for an unknown snapshot id.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotInfo describes a stored snapshot without its classifiers.
type SnapshotInfo struct {
	ID        string
	Label     string
	Iteration int
	Size      int
	CreatedAt time.Time
}

// Snapshot is a stored population.
type Snapshot struct {
	SnapshotInfo
	Records []population.Record
}

// SnapshotStore is a SQLite-backed snapshot database.
type SnapshotStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	// One connection keeps writes serialized for SQLite.
	db.SetMaxOpenConns(1)

	s := &SnapshotStore{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logging.Store("snapshot store opened: path=%s", path)
	return s, nil
}

func (s *SnapshotStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL DEFAULT '',
		iteration INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_classifiers (
		snapshot_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		condition TEXT NOT NULL,
		phenotype TEXT NOT NULL,
		fitness REAL NOT NULL,
		accuracy REAL NOT NULL,
		numerosity INTEGER NOT NULL,
		match_count INTEGER NOT NULL,
		correct_count INTEGER NOT NULL,
		ave_match_set_size REAL NOT NULL,
		init_time_stamp INTEGER NOT NULL,
		time_stamp_ga INTEGER NOT NULL,
		PRIMARY KEY (snapshot_id, position),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path is the database file.
func (s *SnapshotStore) Path() string { return s.path }

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Save stores records as a new snapshot and returns its id.
func (s *SnapshotStore) Save(ctx context.Context, label string, iteration int, records []population.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, label, iteration, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, label, iteration, len(records), time.Now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_classifiers
		(snapshot_id, position, condition, phenotype, fitness, accuracy, numerosity,
		 match_count, correct_count, ave_match_set_size, init_time_stamp, time_stamp_ga)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare classifier insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx,
			id, i, r.Condition, r.Phenotype, r.Fitness, r.Accuracy, r.Numerosity,
			r.MatchCount, r.CorrectCount, r.AveMatchSetSize, r.InitTimeStamp, r.TimeStampGA,
		); err != nil {
			return "", fmt.Errorf("failed to insert classifier %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logging.StoreError("snapshot %s commit failed: %v", id, err)
		return "", fmt.Errorf("failed to commit snapshot: %w", err)
	}
	logging.Store("snapshot saved: id=%s label=%q iteration=%d size=%d", id, label, iteration, len(records))
	return id, nil
}

// Load returns the snapshot with id, or ErrNotFound.
func (s *SnapshotStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		snap    Snapshot
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, iteration, size, created_at FROM snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.Label, &snap.Iteration, &snap.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.CreatedAt = time.Unix(0, created)

	rows, err := s.db.QueryContext(ctx, `
		SELECT condition, phenotype, fitness, accuracy, numerosity, match_count,
		       correct_count, ave_match_set_size, init_time_stamp, time_stamp_ga
		FROM snapshot_classifiers WHERE snapshot_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r population.Record
		if err := rows.Scan(&r.Condition, &r.Phenotype, &r.Fitness, &r.Accuracy, &r.Numerosity,
			&r.MatchCount, &r.CorrectCount, &r.AveMatchSetSize, &r.InitTimeStamp, &r.TimeStampGA); err != nil {
			return nil, fmt.Errorf("failed to scan classifier: %w", err)
		}
		snap.Records = append(snap.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns every snapshot, newest first.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, iteration, size, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info    SnapshotInfo
			created int64
		)
		if err := rows.Scan(&info.ID, &info.Label, &info.Iteration, &info.Size, &created); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.CreatedAt = time.Unix(0, created)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a snapshot and its classifiers.
func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_classifiers WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete classifiers: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logging.Store("snapshot deleted: id=%s", id)
	return nil
}
