// Package storage owns the relational database handle shared by the catalog,
// the borrow ledger and the journal.
//
// Three drivers are supported:
//   - "postgres": PostgreSQL through lib/pq
//   - "pgx": PostgreSQL through pgx's database/sql adapter
//   - "sqlite3": SQLite through mattn/go-sqlite3, for local runs and tests
//
// SQL is built with goqu so the same statements render with the right
// placeholders and quoting for each dialect.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	_ "github.com/jackc/pgx/v5/stdlib"                  // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
)

const (
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
	DriverSQLite   = "sqlite3"

	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite3"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrUnsupportedDriver is returned by Open for unknown driver names.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

func init() {
	// Every statement is sent with bind parameters, never interpolated.
	goqu.SetDefaultPrepared(true)
}

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so data access
// functions can run standalone or inside a caller's transaction.
type Querier = sqlx.ExtContext

// Tx is the transaction handed to InTx callbacks.
type Tx = *sqlx.Tx

// Config describes how to reach the database.
type Config struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DB is a database handle bound to a goqu dialect.
type DB struct {
	*sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.URL
	if cfg.Driver == DriverSQLite {
		dsn = sqliteDSN(cfg.URL)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite allows a single writer. One connection turns every
		// transaction into a serialized critical section instead of
		// SQLITE_BUSY errors.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if cfg.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{DB: db, driver: cfg.Driver, dialect: goqu.Dialect(dialect)}, nil
}

// OpenSQLite opens (or creates) a SQLite database file at path.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	return Open(ctx, Config{Driver: DriverSQLite, URL: path})
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// Dialect returns the goqu dialect used to build statements for this database.
func (db *DB) Dialect() goqu.DialectWrapper {
	return db.dialect
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func (db *DB) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case DriverPostgres, DriverPGX:
		return dialectPostgres, nil
	case DriverSQLite:
		return dialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// sqliteDSN enables foreign keys, waits on locks instead of failing, and
// takes the write lock when a transaction begins.
func sqliteDSN(path string) string {
	params := "_busy_timeout=5000&_foreign_keys=1&_txlock=immediate"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + params
}
