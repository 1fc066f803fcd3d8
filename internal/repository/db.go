// Package repository implements persistence for URLs and their checks on
// top of database/sql. PostgreSQL (pgx) is the primary target; SQLite
// (modernc) and libSQL DSNs are accepted for local runs and tests.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrConflict is returned when an insert violates a unique constraint.
	ErrConflict = errors.New("data conflict")
	// ErrNotFound is returned when a lookup by primary key misses.
	ErrNotFound = errors.New("not found")
)

// Dialect selects the SQL flavour spoken by the underlying driver.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

var placeholder = regexp.MustCompile(`\$\d+`)

var migrations = map[Dialect][]string{
	DialectPostgres: {
		`CREATE TABLE IF NOT EXISTS urls (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS url_checks (
			id BIGSERIAL PRIMARY KEY,
			url_id BIGINT NOT NULL REFERENCES urls (id),
			status_code INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS url_checks_url_id_idx ON url_checks (url_id, id);`,
	},
	DialectSQLite: {
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS urls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(255) NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS url_checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url_id INTEGER NOT NULL REFERENCES urls (id),
			status_code INTEGER,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS url_checks_url_id_idx ON url_checks (url_id, id);`,
	},
}

// DB is the database gateway shared by the repositories. Queries are
// written with $N placeholders and rebound for SQLite.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewDB wraps an already opened connection pool.
func NewDB(conn *sql.DB, dialect Dialect, logger *zap.Logger) *DB {
	return &DB{
		conn:    conn,
		dialect: dialect,
		logger:  logger,
	}
}

// InitDB opens the pool for dsn, checks connectivity and creates the
// schema if it does not exist yet.
func InitDB(ctx context.Context, dsn string, logger *zap.Logger) (*DB, error) {
	driver, source, dialect := driverFor(dsn)

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == DialectSQLite {
		// in-memory databases are per connection
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	db := NewDB(conn, dialect, logger)
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("database connected and tables ready", zap.String("driver", driver))
	return db, nil
}

// driverFor picks the database/sql driver from the shape of the DSN.
func driverFor(dsn string) (driver, source string, dialect Dialect) {
	switch {
	case strings.HasPrefix(dsn, "libsql://"), strings.HasPrefix(dsn, "wss://"):
		return "libsql", dsn, DialectSQLite
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), DialectSQLite
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return "sqlite", dsn, DialectSQLite
	default:
		return "pgx", dsn, DialectPostgres
	}
}

// Migrate creates the tables and indexes used by the repositories.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations[d.dialect] {
		if _, err := d.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

func (d *DB) rebind(query string) string {
	if d.dialect == DialectSQLite {
		return placeholder.ReplaceAllString(query, "?")
	}
	return query
}

// QueryContext runs a parameterized query returning rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.conn.QueryContext(ctx, d.rebind(query), args...)
}

// QueryRowContext runs a parameterized query returning at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.conn.QueryRowContext(ctx, d.rebind(query), args...)
}

// ExecContext runs a parameterized statement.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.conn.ExecContext(ctx, d.rebind(query), args...)
}

func (d *DB) PingContext(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// isUniqueViolation reports whether err was caused by a unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}

	// libsql reports constraint failures as plain text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
