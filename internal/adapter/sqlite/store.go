// Package sqlite keeps the last good copy of each dashboard panel in a local
// SQLite database so reads can fall back to it when the hosted backend fails.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver
)

// ErrNotFound is returned by Load when no snapshot exists for the key.
var ErrNotFound = errors.New("snapshot not found")

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA temp_store = MEMORY",
}

// Store saves and loads JSON snapshots keyed by panel name.
// It implements dashboard.SnapshotStore.
type Store struct {
	db *sqlx.DB
}

type snapshotRow struct {
	Payload   []byte `db:"payload"`
	UpdatedAt int64  `db:"updated_at"`
}

// Open opens (creating if needed) the database at dbSpec. ":memory:" gives a
// private in-memory database.
func Open(dbSpec string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbSpec)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// One connection: an in-memory database is per connection, and the
	// write volume is a handful of rows.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping snapshot db: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot schema: %w", err)
	}

	logger.Info("snapshot store opened", "db", dbSpec)
	return &Store{db: db}, nil
}

// Save replaces the snapshot for key with the JSON encoding of v.
func (s *Store) Save(ctx context.Context, key string, v any, at time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot (key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, payload, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

// Load decodes the snapshot for key into out and returns when it was saved.
func (s *Store) Load(ctx context.Context, key string, out any) (time.Time, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `SELECT payload, updated_at FROM snapshot WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(row.Payload, out); err != nil {
		return time.Time{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return time.UnixMilli(row.UpdatedAt).UTC(), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
