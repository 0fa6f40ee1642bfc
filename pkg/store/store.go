// Package store manages all SQLite persistence for norepeat.
//
// SQLite in WAL mode is the only thing processes share: the main app, a
// widget renderer and a background watcher each open the same file and
// reconcile against it. Every rotation lives in its own namespace, so one
// database can drive several display surfaces.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/daviddao/norepeat/pkg/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups that find no row.
var ErrNotFound = errors.New("store: not found")

// Keys inside a rotation namespace.
const (
	keyState    = "state"
	keySchedule = "schedule"
	keyMarker   = "marker"
	keyCurrent  = "current"
)

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations should use this to handle transient SQLite
// errors (BUSY, LOCKED, IOERR_SHORT_READ) under concurrent access.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rotation_kv (
		rotation   TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (rotation, key)
	);

	CREATE TABLE IF NOT EXISTS history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		rotation    TEXT NOT NULL,
		item_id     TEXT NOT NULL,
		previous_id TEXT,
		reason      TEXT NOT NULL,
		marker      TEXT NOT NULL,
		at          TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_rotation ON history(rotation, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Adapter returns the persistence adapter for one rotation namespace.
func (s *Store) Adapter(rotation string) *Adapter {
	if rotation == "" {
		rotation = model.DefaultRotation
	}
	return &Adapter{s: s, rotation: rotation}
}

// ---------------------------------------------------------------------------
// Key/value
// ---------------------------------------------------------------------------

// get returns the stored value, or ErrNotFound.
func (s *Store) get(rotation, key string) (string, error) {
	var v string
	err := s.db.QueryRow(
		`SELECT value FROM rotation_kv WHERE rotation = ? AND key = ?`, rotation, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// getAll returns every key of a namespace, read inside one transaction.
func (s *Store) getAll(rotation string) (map[string]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	rows, err := tx.Query(`SELECT key, value FROM rotation_kv WHERE rotation = ?`, rotation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kv := make(map[string]string, 4)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return kv, tx.Commit()
}

// put upserts a value. Idempotent via ON CONFLICT.
func (s *Store) put(rotation, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return retryOnContention(func() error {
		_, err := s.db.Exec(
			`INSERT INTO rotation_kv (rotation, key, value, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(rotation, key) DO UPDATE SET
			   value = excluded.value,
			   updated_at = excluded.updated_at`,
			rotation, key, value, now,
		)
		return err
	})
}

// del removes a value. Deleting a missing key is not an error.
func (s *Store) del(rotation, key string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM rotation_kv WHERE rotation = ? AND key = ?`, rotation, key)
		return err
	})
}

// ListRotations returns every namespace that has persisted state, ordered
// by name.
func (s *Store) ListRotations() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT rotation FROM rotation_kv ORDER BY rotation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteRotation drops all state and history of a namespace.
func (s *Store) DeleteRotation(rotation string) error {
	return retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
		if _, err := tx.Exec(`DELETE FROM rotation_kv WHERE rotation = ?`, rotation); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM history WHERE rotation = ?`, rotation); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// AppendHistory records a visible-item change. Returns the row ID.
func (s *Store) AppendHistory(c model.Change) (int64, error) {
	if c.At.IsZero() {
		c.At = time.Now()
	}
	var lastID int64
	err := retryOnContention(func() error {
		res, err := s.db.Exec(
			`INSERT INTO history (rotation, item_id, previous_id, reason, marker, at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.Rotation, c.ItemID, nullStr(c.PreviousID), string(c.Reason), c.Marker,
			c.At.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		lastID, err = res.LastInsertId()
		return err
	})
	return lastID, err
}

// ListHistory returns the most recent entries of a rotation, newest first.
func (s *Store) ListHistory(rotation string, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, rotation, item_id, COALESCE(previous_id,''), reason, marker, at
		 FROM history WHERE rotation = ?
		 ORDER BY id DESC LIMIT ?`,
		rotation, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistory(rows)
}

// CountHistory returns the number of history entries of a rotation.
func (s *Store) CountHistory(rotation string) int64 {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM history WHERE rotation = ?`, rotation).Scan(&n); err != nil {
		return 0
	}
	return n
}

func scanHistory(rows *sql.Rows) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	for rows.Next() {
		var h model.HistoryEntry
		var reason, atStr string
		if err := rows.Scan(&h.ID, &h.Rotation, &h.ItemID, &h.PreviousID, &reason, &h.Marker, &atStr); err != nil {
			return nil, err
		}
		h.Reason = model.ChangeReason(reason)
		var parseErr error
		h.At, parseErr = time.Parse(time.RFC3339Nano, atStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse at time for history %d: %w", h.ID, parseErr)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}
