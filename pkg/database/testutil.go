package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

// NewMockPool creates a pgxmock pool for repository tests. It satisfies both
// DBTX and Migrator.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}
