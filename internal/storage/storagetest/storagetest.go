// Package storagetest opens throwaway databases for tests.
package storagetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"bookledger/internal/storage"
)

// Backend opens a fresh, schema-initialised database for one test.
type Backend struct {
	Name string
	Open func(t testing.TB) *storage.DB
}

// Backends returns SQLite and PostgreSQL. The PostgreSQL backend skips the
// test when no server is reachable.
func Backends() []Backend {
	return []Backend{
		{Name: "sqlite", Open: SQLite},
		{Name: "postgres", Open: Postgres},
	}
}

// SQLite opens a new SQLite database file in t.TempDir().
func SQLite(t testing.TB) *storage.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bookledger.db")
	db, err := storage.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.ApplySchema(context.Background()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return db
}

// Postgres connects using the PG* environment variables, creates a private
// schema for the test and drops it afterwards.
func Postgres(t testing.TB) *storage.DB {
	t.Helper()
	ctx := context.Background()

	base := postgresDSN()
	admin, err := storage.Open(ctx, storage.Config{Driver: storage.DriverPostgres, URL: base})
	if err != nil {
		t.Skipf("skipping postgres tests: could not connect to postgres: %v", err)
	}
	t.Cleanup(func() { admin.Close() })

	schema := "bookledger_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("failed to create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		admin.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	db, err := storage.Open(ctx, storage.Config{
		Driver:       storage.DriverPostgres,
		URL:          base + " search_path=" + schema,
		MaxOpenConns: 16,
	})
	if err != nil {
		t.Fatalf("failed to open postgres database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.ApplySchema(ctx); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return db
}

func postgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("PGHOST", "localhost"),
		getEnv("PGPORT", "5432"),
		getEnv("PGUSER", "user"),
		getEnv("PGPASSWORD", "password"),
		getEnv("PGDATABASE", "testdb"),
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
