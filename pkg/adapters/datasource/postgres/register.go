//go:build !no_postgres

package postgres

import (
	"context"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypePostgreSQL,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.ConnectionTester, error) {
			return NewAdapter(ctx, databaseURL, opts)
		},
		QueryExecutorFactory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, databaseURL, opts)
		},
	})
}
