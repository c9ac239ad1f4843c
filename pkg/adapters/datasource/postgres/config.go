//go:build !no_postgres

package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/config"
)

// ParseConfig builds a single-connection pool config from a postgres:// or
// postgresql:// URL. sslmode and the other libpq parameters in the URL are
// honored by pgx; sslmode=require encrypts without verifying the certificate.
// When running in Docker, localhost is resolved to host.docker.internal.
func ParseConfig(databaseURL string, opts datasource.Options) (*pgxpool.Config, error) {
	opts = opts.WithDefaults()

	cfg, err := pgxpool.ParseConfig(config.ResolveURLForDocker(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL connection string: %w", err)
	}

	cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	cfg.MaxConns = 1
	cfg.MinConns = 0

	return cfg, nil
}
