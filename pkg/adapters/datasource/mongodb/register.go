//go:build !no_mongodb

package mongodb

import (
	"context"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        datasource.TypeMongoDB,
			DisplayName: "MongoDB",
			Description: "Connect to MongoDB 5+ and MongoDB Atlas",
		},
		Factory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.ConnectionTester, error) {
			return NewAdapter(ctx, databaseURL, opts)
		},
		QueryExecutorFactory: func(ctx context.Context, databaseURL string, opts datasource.Options) (datasource.QueryExecutor, error) {
			return NewQueryExecutor(ctx, databaseURL, opts)
		},
	})
}
