package database

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool used by repositories. pgxmock pools and
// transactions satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Migrator is DBTX plus transactions, as needed by RunMigrations.
type Migrator interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

var connPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"connect: connection",
	"dial tcp",
	"EOF",
	"connection timed out",
	"server closed the connection unexpectedly",
	"could not connect",
	"closed pool",
}

// IsConnectionError reports whether err looks like the database could not be
// reached, as opposed to the database rejecting the statement. Server-side
// errors (*pgconn.PgError) are never connection errors.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return true
	}

	msg := err.Error()
	for _, p := range connPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
