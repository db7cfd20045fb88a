/*
Package sqlite provides a SQLite-backed architecture classification table.

PURPOSE:
  The technology mix needs a license -> architecture table. Files loaded by
  package architecture seed it; operators edit it through the HTTP API. This
  package keeps that table across restarts.

KEY TABLES:
  architectures: license (PK), architecture, updated_at

SNAPSHOTS:
  The view engine never talks to the database. Table(ctx) reads the whole
  table into a license.MapTable which is handed to license.WithArchitectures,
  so a request sees one consistent classification even if the table is
  edited while it runs.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, otherwise every pooled connection would see its own
  empty database.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/licenses.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  table, err := store.Table(ctx)
  engine := license.NewEngine(records, license.WithArchitectures(table))

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - license/architecture.go: ArchitectureTable and MapTable
  - architecture/architecture.go: File loaders used for seeding
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/license"
)

// ErrArchitectureNotFound is returned when deleting a license that has no
// classification.
var ErrArchitectureNotFound = errors.New("architecture not found")

// Store persists the architecture table in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS architectures (
		license TEXT PRIMARY KEY,
		architecture TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_architectures_architecture
		ON architectures(architecture);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ARCHITECTURE STORE
// =============================================================================

// ArchitectureRecord is one stored classification.
type ArchitectureRecord struct {
	License      string
	Architecture string
	UpdatedAt    time.Time
}

const upsertArchitecture = `
	INSERT INTO architectures (license, architecture, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(license) DO UPDATE SET
		architecture = excluded.architecture,
		updated_at = excluded.updated_at
`

// SaveArchitecture inserts or replaces the classification of one license.
func (s *Store) SaveArchitecture(ctx context.Context, e architecture.Entry) error {
	if err := validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, upsertArchitecture, e.License, e.Architecture, now)
	return err
}

// SaveArchitectures upserts every entry in one transaction: either all are
// stored or none.
func (s *Store) SaveArchitectures(ctx context.Context, entries []architecture.Entry) error {
	for _, e := range entries {
		if err := validate(e); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if _, err := sqlTx.ExecContext(ctx, upsertArchitecture, e.License, e.Architecture, now); err != nil {
			return fmt.Errorf("failed to save architecture for %q: %w", e.License, err)
		}
	}

	return sqlTx.Commit()
}

// SeedTable stores every entry of table. Used at startup to load a file.
func (s *Store) SeedTable(ctx context.Context, table license.MapTable) error {
	entries := make([]architecture.Entry, 0, len(table))
	for name, category := range table {
		entries = append(entries, architecture.Entry{License: name, Architecture: category})
	}
	return s.SaveArchitectures(ctx, entries)
}

// ListArchitectures returns every classification ordered by license name.
func (s *Store) ListArchitectures(ctx context.Context) ([]ArchitectureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT license, architecture, updated_at FROM architectures ORDER BY license",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ArchitectureRecord, 0)
	for rows.Next() {
		var r ArchitectureRecord
		var updatedAt string
		if err := rows.Scan(&r.License, &r.Architecture, &updatedAt); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteArchitecture removes the classification of one license.
func (s *Store) DeleteArchitecture(ctx context.Context, licenseName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM architectures WHERE license = ?", licenseName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrArchitectureNotFound, licenseName)
	}
	return nil
}

// Table returns a snapshot of the whole table for the view engine.
func (s *Store) Table(ctx context.Context) (license.MapTable, error) {
	records, err := s.ListArchitectures(ctx)
	if err != nil {
		return nil, err
	}
	table := make(license.MapTable, len(records))
	for _, r := range records {
		table[r.License] = r.Architecture
	}
	return table, nil
}

// Reset removes every classification.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM architectures")
	return err
}

func validate(e architecture.Entry) error {
	if strings.TrimSpace(e.License) == "" {
		return fmt.Errorf("%w: empty license name", architecture.ErrInvalidTable)
	}
	return nil
}
