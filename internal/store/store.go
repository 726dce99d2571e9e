// Package store persists telemetry in sqlite and serves the live control
// subscription the control loop consumes.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/rover/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrClosed is returned by operations on a closed store and reported by
	// subscriptions ended by Close.
	ErrClosed = errors.New("store: closed")
	// ErrSubscriberLagging ends a subscription whose buffer filled up.
	ErrSubscriberLagging = errors.New("store: subscriber lagging")
	// ErrNotFound is returned when a control record does not exist.
	ErrNotFound = errors.New("store: not found")
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Store is the rover's telemetry database.
type Store struct {
	*sql.DB
	path string
	now  func() time.Time

	mu     sync.Mutex
	closed bool
	subs   map[string]*Subscription
}

// Open opens (creating if needed) the database at path and applies every
// pending migration.
func Open(path string) (*Store, error) {
	s, err := OpenNoMigrate(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.DB.Close()
		return nil, err
	}
	version, _, err := s.MigrateVersion()
	if err != nil {
		s.DB.Close()
		return nil, err
	}
	monitoring.Logf("[DB] opened %s at schema version %d", path, version)
	return s, nil
}

// OpenNoMigrate opens the database without touching its schema. It is used
// by the migrate subcommand, which manages the schema itself.
func OpenNoMigrate(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return &Store{DB: db, path: path, now: time.Now, subs: make(map[string]*Subscription)}, nil
}

// MigrateUp runs all pending migrations.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back one migration.
func (s *Store) MigrateDown() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// MigrateTo migrates up or down to version.
func (s *Store) MigrateTo(version uint) error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration to %d failed: %w", version, err)
	}
	return nil
}

// MigrateForce records version as current and clears the dirty flag
// without running anything. Recovery only.
func (s *Store) MigrateForce(version int) error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	return m.Force(version)
}

// MigrateVersion returns the current schema version and dirty state.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Close ends every live subscription with ErrClosed and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		sub.terminate(ErrClosed)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.DB.Close()
}
