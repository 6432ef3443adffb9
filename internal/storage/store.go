// Package storage persists projects and time intervals in a SQLite database.
//
// Timestamps are stored as naive wall-clock strings so that string order is
// chronological order and the overlap checks can run in SQL.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const stampLayout = "2006-01-02 15:04:05"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the SQLite backed interval and project store.
type Store struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BaseDir returns the default data directory (~/.timescribe).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".timescribe"), nil
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. Timestamps are interpreted in the local time zone.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "storage error creating directories")
	}
	return openDSN(fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path), true)
}

// OpenReadOnly opens the database at path without writing to it. A missing
// file yields an empty in-memory store so lookups behave as on a fresh
// install while nothing is created on disk.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("database missing, using an empty in-memory store", "path", path)
		return openDSN("file::memory:?_pragma=foreign_keys(1)", true)
	} else if err != nil {
		return nil, errors.Wrapf(err, "storage error opening %s", path)
	}
	return openDSN(fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path), false)
}

func openDSN(dsn string, withMigrations bool) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "storage error opening %s", dsn)
	}
	// A single connection keeps transactions and reads on the same view of the file.
	db.SetMaxOpenConns(1)

	if withMigrations {
		if err := migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &Store{db: db, loc: time.Local, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type migration struct {
	version int
	name    string
	sql     string
}

func loadMigrations() ([]migration, error) {
	files, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + f.Name())
		if err != nil {
			return nil, err
		}
		var v int
		if _, err := fmt.Sscanf(f.Name(), "%d_", &v); err != nil {
			return nil, errors.Wrapf(err, "invalid migration filename %s", f.Name())
		}
		out = append(out, migration{version: v, name: f.Name(), sql: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// migrate applies embedded migrations newer than the recorded schema version.
func migrate(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS schema_version(version INTEGER NOT NULL)`); err != nil {
		return errors.Wrap(err, "create schema_version")
	}
	var current int
	err = tx.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.Exec(`INSERT INTO schema_version(version) VALUES (0)`); err != nil {
			return errors.Wrap(err, "init schema_version")
		}
	} else if err != nil {
		return errors.Wrap(err, "read schema_version")
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := tx.Exec(m.sql); err != nil {
			return errors.Wrapf(err, "migration %s", m.name)
		}
		if _, err := tx.Exec(`UPDATE schema_version SET version=?`, m.version); err != nil {
			return errors.Wrap(err, "update schema_version")
		}
		slog.Debug("applied migration", "name", m.name)
		current = m.version
	}
	return tx.Commit()
}

func (s *Store) stamp(t time.Time) string {
	return t.In(s.loc).Format(stampLayout)
}

func (s *Store) nullStamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.stamp(*t)
}

func (s *Store) parseStamp(v string) (time.Time, error) {
	t, err := time.ParseInLocation(stampLayout, v, s.loc)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "corrupt timestamp %q", v)
	}
	return t, nil
}

func (s *Store) parseNullStamp(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := s.parseStamp(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
