package settings

import (
	"context"
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ClosableStore is a Store holding external resources.
type ClosableStore interface {
	Store
	Close() error
}

type nopCloser struct{ Store }

func (nopCloser) Close() error { return nil }

// Open creates a store for the given driver. dsn is a file path for sqlite
// and a connection string for postgres; it is ignored for memory.
func Open(ctx context.Context, driver, dsn string) (ClosableStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite, "sqlite3":
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store requires a path")
		}
		return OpenSQLite(dsn)
	case DriverPostgres, "postgresql", "pgx":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		return OpenPostgres(ctx, dsn)
	case DriverMemory:
		return nopCloser{NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown settings driver %q", driver)
	}
}
