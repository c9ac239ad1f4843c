//go:build !no_mongodb

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
)

// QueryExecutor runs a find against the first collection of the target database.
type QueryExecutor struct {
	*client
	limit int64
}

// NewQueryExecutor creates a MongoDB query executor with its own client.
func NewQueryExecutor(ctx context.Context, databaseURL string, opts datasource.Options) (*QueryExecutor, error) {
	return &QueryExecutor{
		client: newClient(databaseURL, opts),
		limit:  int64(opts.WithDefaults().DocumentLimit),
	}, nil
}

// Query parses the query text as a filter, then finds up to the document limit
// in the first collection the server lists. The filter is validated before any
// connection is made. A database without collections is an error.
func (e *QueryExecutor) Query(ctx context.Context, query string) ([]datasource.Record, error) {
	filter, err := ParseFilter(query)
	if err != nil {
		return nil, err
	}

	db, err := e.database(ctx)
	if err != nil {
		return nil, err
	}

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", markTimeout(err))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoCollections, db.Name())
	}

	cursor, err := db.Collection(names[0]).Find(ctx, filter, options.Find().SetLimit(e.limit))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	records := make([]datasource.Record, len(docs))
	for i, doc := range docs {
		records[i] = datasource.Record(doc)
	}
	return records, nil
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
