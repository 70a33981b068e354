// Package database provides database abstraction and connection management.
// It supports multiple database dialects (MySQL, PostgreSQL, SQLite) with
// automatic dialect detection from connection strings.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DialectType represents the type of database dialect
type DialectType string

const (
	DialectPostgres DialectType = "postgres"
	DialectMySQL    DialectType = "mysql"
	DialectSQLite   DialectType = "sqlite"
)

// Connection pool defaults applied when Config leaves them zero.
const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
)

// Driver defines the interface for database operations
type Driver interface {
	// Connect establishes a connection to the database
	Connect(ctx context.Context) error

	// Close closes the database connection
	Close() error

	// Exec executes a query without returning rows
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// Ping verifies the connection to the database is still alive
	Ping(ctx context.Context) error

	// Dialect returns the database dialect type
	Dialect() DialectType
}

// Config holds database connection configuration
type Config struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// baseDriver implements common functionality for all database drivers
type baseDriver struct {
	db      *sql.DB
	dialect DialectType
	dsn     string
	config  Config
}

// Connect establishes a connection to the database
func (d *baseDriver) Connect(ctx context.Context) error {
	var err error

	d.db, err = sql.Open(string(d.dialect), d.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	d.db.SetMaxOpenConns(d.config.MaxOpenConns)
	d.db.SetMaxIdleConns(d.config.MaxIdleConns)
	d.db.SetConnMaxLifetime(d.config.ConnMaxLifetime)

	// Verify connection
	if err := d.db.PingContext(ctx); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *baseDriver) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Exec executes a query without returning rows
func (d *baseDriver) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}
	return d.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows
func (d *baseDriver) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}
	return d.db.QueryContext(ctx, query, args...)
}

// Ping verifies the connection to the database is still alive
func (d *baseDriver) Ping(ctx context.Context) error {
	if d.db == nil {
		return ErrNotConnected
	}
	return d.db.PingContext(ctx)
}

// Dialect returns the database dialect type
func (d *baseDriver) Dialect() DialectType {
	return d.dialect
}

// NewDriver creates a new database driver based on the connection string
func NewDriver(config Config) (Driver, error) {
	dialect, dsn, err := detectDialect(config.ConnectionString)
	if err != nil {
		return nil, err
	}

	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = defaultMaxOpenConns
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = defaultMaxIdleConns
	}
	if config.ConnMaxLifetime <= 0 {
		config.ConnMaxLifetime = defaultConnMaxLifetime
	}

	driver := &baseDriver{
		dialect: dialect,
		dsn:     dsn,
		config:  config,
	}

	return driver, nil
}

// detectDialect maps a scheme-prefixed connection string to its dialect and
// the DSN handed to database/sql. Accepted forms are postgres:// (or
// postgresql://) URLs, mysql:// followed by a go-sql-driver DSN, and
// sqlite:// followed by a file path or ":memory:".
// Error messages never echo the connection string, which may carry a password.
func detectDialect(connectionString string) (DialectType, string, error) {
	if connectionString == "" {
		return "", "", ErrEmptyConnectionString
	}

	scheme, rest, ok := strings.Cut(connectionString, "://")
	if !ok {
		return "", "", ErrUnknownDialect
	}

	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		// lib/pq parses the URL itself
		return DialectPostgres, connectionString, nil
	case "mysql":
		return DialectMySQL, rest, nil
	case "sqlite":
		// A shared cache lets every pooled connection see the same in-memory database
		if rest == ":memory:" {
			rest = "file::memory:?mode=memory&cache=shared"
		}
		return DialectSQLite, rest, nil
	default:
		return "", "", ErrUnknownDialect
	}
}
