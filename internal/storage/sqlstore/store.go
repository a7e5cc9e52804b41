// Package sqlstore implements storage.Provider on database/sql for the
// sqlite (modernc.org/sqlite) and postgres (github.com/lib/pq) drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/julianstephens/dayledger/internal/constants"
	apperrors "github.com/julianstephens/dayledger/internal/errors"
	"github.com/julianstephens/dayledger/internal/logger"
	"github.com/julianstephens/dayledger/internal/migration"
	"github.com/julianstephens/dayledger/internal/storage"
	"github.com/julianstephens/dayledger/migrations"
)

type dialect struct {
	name        string
	driver      string
	placeholder string
	txOptions   *sql.TxOptions
	viewOptions *sql.TxOptions
}

var (
	sqliteDialect = dialect{
		name:        constants.BackendSQLite,
		driver:      "sqlite",
		placeholder: "?",
	}
	postgresDialect = dialect{
		name:        constants.BackendPostgres,
		driver:      "postgres",
		placeholder: "$1",
		txOptions:   &sql.TxOptions{Isolation: sql.LevelSerializable},
		viewOptions: &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true},
	}
)

// Store is a SQL-backed storage.Provider.
type Store struct {
	d    dialect
	dsn  string
	path string // sqlite file path; empty for postgres
	db   *sql.DB
}

var _ storage.Provider = (*Store)(nil)

// NewSQLite returns a store for the sqlite database file at path.
func NewSQLite(path string) *Store {
	return &Store{d: sqliteDialect, path: path, dsn: sqliteDSN(path)}
}

// NewPostgres returns a store for a postgres connection string. The
// connection string must not carry a password; see ValidateConnString.
func NewPostgres(connStr string) *Store {
	return &Store{d: postgresDialect, dsn: ensureSearchPath(connStr)}
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (s *Store) Init() error {
	if s.d.name == constants.BackendSQLite {
		if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := s.open(); err != nil {
		return err
	}

	ctx := context.Background()
	if s.d.name == constants.BackendPostgres {
		if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	runner, err := s.migrationRunner()
	if err != nil {
		return err
	}
	if _, err := runner.ApplyMigrations(ctx, func(msg string) { logger.Info(msg) }); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}
	if s.d.name == constants.BackendSQLite {
		if _, err := os.Stat(s.path); os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run 'dayledger init' first")
		}
	}
	if err := s.open(); err != nil {
		return err
	}

	runner, err := s.migrationRunner()
	if err != nil {
		return err
	}
	return runner.ValidateVersion(context.Background())
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open(s.d.driver, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if s.d.name == constants.BackendSQLite {
		// A single connection serialises every transaction: the process is
		// the only writer and sqlite allows one writer at a time anyway.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) migrationRunner() (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, s.d.name)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s migrations: %w", s.d.name, err)
	}
	return migration.NewRunner(s.db, subFS, s.d.placeholder), nil
}

// SchemaVersion reports the applied and the latest available schema
// versions.
func (s *Store) SchemaVersion(ctx context.Context) (current, latest int, err error) {
	if s.db == nil {
		return 0, 0, fmt.Errorf("storage not loaded")
	}
	runner, err := s.migrationRunner()
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.GetCurrentVersion(ctx); err != nil {
		return 0, 0, err
	}
	if latest, err = runner.GetLatestVersion(); err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Backend() string { return s.d.name }

func (s *Store) GetConfigPath() string {
	if s.path != "" {
		return s.path
	}
	return Redact(s.dsn)
}

// GetDB returns the underlying database connection, or nil before Init/Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) Update(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, s.d.txOptions, fn)
}

func (s *Store) View(ctx context.Context, fn func(storage.Tx) error) error {
	return s.run(ctx, s.d.viewOptions, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(storage.Tx) error) error {
	if s.db == nil {
		return fmt.Errorf("storage not loaded")
	}
	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}
	if err := fn(&tx{ctx: ctx, tx: sqlTx, d: s.d}); err != nil {
		_ = sqlTx.Rollback()
		return classify(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// classify marks lock contention and serialization failures as transient so
// callers know a verbatim retry is safe.
func classify(err error) error {
	if err == nil || apperrors.IsTransient(err) {
		return err
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return apperrors.Transient(err)
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 40: transaction rollback (serialization_failure, deadlock_detected).
		if pqErr.Code.Class() == "40" || pqErr.Code == "55P03" {
			return apperrors.Transient(err)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(code == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE"))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// tx adapts *sql.Tx to storage.Tx.
type tx struct {
	ctx context.Context
	tx  *sql.Tx
	d   dialect
}

// bind rewrites ? placeholders into the dialect's form.
func (t *tx) bind(query string) string {
	if t.d.placeholder == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (t *tx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, t.bind(query), args...)
}

func (t *tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, t.bind(query), args...)
}

func (t *tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, t.bind(query), args...)
}

// mustAffect turns a zero-row mutation into a NotFound error.
func mustAffect(res sql.Result, entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.NotFound(entity, key)
	}
	return nil
}

// ClearRecords empties the tracking tables, children first so the foreign
// keys hold throughout.
func (t *tx) ClearRecords() error {
	for _, table := range []string{"habit_completions", "goal_updates", "tasks", "daily_trackers", "goals", "habits"} {
		if _, err := t.exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString, field string) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func notFoundOr(err error, entity, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, key)
	}
	return err
}
