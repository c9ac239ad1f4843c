//go:build !no_postgres

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// Adapter provides PostgreSQL connectivity checks.
// The pool belongs to this adapter alone and is closed by Close.
type Adapter struct {
	pool *pgxpool.Pool
}

// NewAdapter creates a PostgreSQL adapter. The pool connects lazily, so no
// network I/O happens until TestConnection.
func NewAdapter(ctx context.Context, databaseURL string, opts datasource.Options) (*Adapter, error) {
	cfg, err := ParseConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Adapter{pool: pool}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
// It checks:
// 1. Server connectivity (ping)
// 2. Database access (server version and current database)
func (a *Adapter) TestConnection(ctx context.Context) (*datasource.ServerInfo, error) {
	if err := a.pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	info := &datasource.ServerInfo{}
	if err := a.pool.QueryRow(ctx, "SELECT version(), current_database()").Scan(&info.ServerVersion, &info.Database); err != nil {
		return nil, fmt.Errorf("test query failed: %w", err)
	}

	return info, nil
}

// Close releases the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
