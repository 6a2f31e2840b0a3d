package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can run
// either on the pool or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
