package storage

import (
	"context"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Tables lists the application tables, children before parents.
var Tables = []string{"borrow_events", "borrow_records", "members", "books"}

// ApplySchema creates any missing tables and indexes. It is safe to run on
// every start.
func (db *DB) ApplySchema(ctx context.Context) error {
	name := "schema/postgres.sql"
	if db.driver == DriverSQLite {
		name = "schema/sqlite.sql"
	}

	ddl, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	for _, stmt := range splitStatements(string(ddl)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func splitStatements(ddl string) []string {
	var stmts []string
	for _, part := range strings.Split(ddl, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
