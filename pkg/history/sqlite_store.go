package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/openfroyo/themecfg/pkg/config"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const defaultListLimit = 50

// SQLiteStore keeps the load history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	// Each connection to ":memory:" is its own database.
	if cfg.Path == ":memory:" {
		cfg.MaxOpenConns = 1
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init opens the database connection.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.path + "?_pragma=busy_timeout(5000)"
	if s.path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Open creates, initializes and migrates a store at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	s, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Append stores e. A missing ID or LoadedAt is filled in.
func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.LoadedAt.IsZero() {
		e.LoadedAt = time.Now()
	}
	e.LoadedAt = e.LoadedAt.UTC()

	query := `
		INSERT INTO reloads (id, source, format, result, error_class, error, issues, warnings, digest, duration_ms, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Source,
		e.Format,
		e.Result,
		e.ErrorClass,
		e.Error,
		e.Issues,
		e.Warnings,
		e.Digest,
		e.Duration.Milliseconds(),
		e.LoadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}

	return nil
}

// List returns entries newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	var (
		where []string
		args  []interface{}
	)
	if opts.Source != "" {
		where = append(where, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.Result != "" {
		where = append(where, "result = ?")
		args = append(args, opts.Result)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, source, format, result, error_class, error, issues, warnings, digest, duration_ms, loaded_at
		FROM reloads
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY loaded_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMS int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.Source,
			&e.Format,
			&e.Result,
			&e.ErrorClass,
			&e.Error,
			&e.Issues,
			&e.Warnings,
			&e.Digest,
			&durationMS,
			&e.LoadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	return entries, nil
}

// LastSuccess returns the newest successful entry for source.
func (s *SQLiteStore) LastSuccess(ctx context.Context, source string) (*Entry, error) {
	entries, err := s.List(ctx, ListOptions{Source: source, Result: ResultSuccess, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no successful load recorded for %s", source)
	}
	return &entries[0], nil
}

// Prune deletes all but the newest keep entries and returns how many were
// removed.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	query := `
		DELETE FROM reloads
		WHERE id NOT IN (
			SELECT id FROM reloads ORDER BY loaded_at DESC, rowid DESC LIMIT ?
		)
	`
	res, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune entries: %w", err)
	}
	return res.RowsAffected()
}

// RecordReload stores the outcome of loading path.
func (s *SQLiteStore) RecordReload(ctx context.Context, path string, doc *config.Document, loadErr error, duration time.Duration) error {
	entry, err := NewEntry(path, doc, loadErr, duration)
	if err != nil {
		return err
	}
	return s.Append(ctx, entry)
}

// NewEntry builds an entry from the outcome of a load.
func NewEntry(path string, doc *config.Document, loadErr error, duration time.Duration) (*Entry, error) {
	e := &Entry{
		Source:   path,
		Duration: duration,
		LoadedAt: time.Now(),
	}

	if loadErr != nil {
		e.Result = ResultFailure
		e.Error = loadErr.Error()

		var ce *config.ConfigError
		if errors.As(loadErr, &ce) {
			e.ErrorClass = string(ce.Class)
			e.Issues = len(ce.Issues)
		}
		return e, nil
	}

	e.Result = ResultSuccess
	e.Format = string(doc.Format)
	e.Warnings = len(doc.Report.Warnings())

	digest, err := Digest(doc.Config)
	if err != nil {
		return nil, err
	}
	e.Digest = digest
	return e, nil
}

// Digest returns the sha256 of cfg's JSON form.
func Digest(cfg *config.BuildConfiguration) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
