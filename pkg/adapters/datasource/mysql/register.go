//go:build !no_mysql

package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypeMySQL,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB, PlanetScale",
		},
		Factory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.ConnectionTester, error) {
			return NewAdapter(ctx, databaseURL, opts)
		},
		QueryExecutorFactory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, databaseURL, opts)
		},
	})
}
