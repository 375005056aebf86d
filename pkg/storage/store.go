/*
Package storage is cogbot's domain cache store: the structured local
mirror of the campaign spreadsheets, described in spec.md §4.1.

It is backed by SQLite (modernc.org/sqlite, no cgo) across two files —
Primary for campaign state, Reference for the read-mostly system/station
catalog and spy-feed snapshots — rather than the teacher's embedded bbolt
KV store, because the spec's own invariants (uniqueness across columns,
substring search, derived joins like summed contributions) are relational.

All mutation goes through a Session, a thin wrapper around a *sql.Tx:

	sess, err := store.Begin(ctx)
	if err != nil { return err }
	defer sess.Finish(&err)
	...
	err = sess.CreateFortTarget(t)

Finish commits if the pointed-to error is nil and rolls back otherwise.
Nested sessions are not supported — Begin always starts a fresh
transaction against the primary database.
*/
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var primaryMigrations embed.FS

//go:embed migrations/reference/*.sql
var referenceMigrations embed.FS

const sqliteDSNSuffix = "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"

// Store is cogbot's domain cache store.
type Store struct {
	Primary   *sql.DB
	Reference *sql.DB
}

// Open opens (creating if necessary) the primary and reference databases
// at the given paths and applies any pending migrations to both.
func Open(primaryPath, referencePath string) (*Store, error) {
	primary, err := openMigrated(primaryPath, primaryMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	reference, err := openMigrated(referencePath, referenceMigrations, "migrations/reference")
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("open reference store: %w", err)
	}
	return &Store{Primary: primary, Reference: reference}, nil
}

func openMigrated(path string, fsys embed.FS, dir string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+sqliteDSNSuffix)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

// Close closes both databases.
func (s *Store) Close() error {
	err1 := s.Primary.Close()
	err2 := s.Reference.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Session is a scoped transactional handle over the primary database.
type Session struct {
	tx *sql.Tx
}

// Begin starts a new Session. The caller must call Finish exactly once.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.Primary.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &Session{tx: tx}, nil
}

// Finish commits the session if *errp is nil, otherwise rolls back. It is
// meant to be deferred immediately after Begin:
//
//	sess, err := store.Begin(ctx)
//	if err != nil { return err }
//	defer sess.Finish(&err)
func (s *Session) Finish(errp *error) {
	if *errp != nil {
		_ = s.tx.Rollback()
		return
	}
	if err := s.tx.Commit(); err != nil {
		*errp = fmt.Errorf("commit session: %w", err)
	}
}

// EmptyTables drops all scan-owned rows (contributors, targets,
// contributions); when includePermanent is true it also drops
// dispatcher-owned rows (permissions, globals, tracked systems/carriers,
// KOS, admins), per spec.md §4.1.
func (sess *Session) EmptyTables(includePermanent bool) error {
	scanOwned := []string{
		"fort_contributions", "um_contributions",
		"fort_contributors", "um_contributors",
		"fort_targets", "um_targets",
	}
	for _, t := range scanOwned {
		if _, err := sess.tx.Exec("DELETE FROM " + t); err != nil {
			return fmt.Errorf("empty %s: %w", t, err)
		}
	}
	if !includePermanent {
		return nil
	}
	permanent := []string{
		"fort_order_overrides", "admin_permissions",
		"channel_permissions", "role_permissions", "kos_entries",
		"tracked_systems", "tracked_systems_cached", "tracked_carriers",
		"globals",
	}
	for _, t := range permanent {
		if _, err := sess.tx.Exec("DELETE FROM " + t); err != nil {
			return fmt.Errorf("empty %s: %w", t, err)
		}
	}
	return nil
}
