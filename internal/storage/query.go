package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Statement is any goqu dataset that can render itself to SQL.
type Statement interface {
	ToSQL() (string, []interface{}, error)
}

// Get runs stmt and scans exactly one row into dest.
// It returns ErrNotFound when no row matches.
func Get(ctx context.Context, q Querier, dest interface{}, stmt Statement) error {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if err := sqlx.GetContext(ctx, q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Select runs stmt and scans all rows into dest, a pointer to a slice.
func Select(ctx context.Context, q Querier, dest interface{}, stmt Statement) error {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

// Exec runs stmt and returns the number of affected rows.
func Exec(ctx context.Context, q Querier, stmt Statement) (int64, error) {
	query, args, err := stmt.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build statement: %w", err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
