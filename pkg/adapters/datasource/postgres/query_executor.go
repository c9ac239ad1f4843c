//go:build !no_postgres

package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// QueryExecutor provides PostgreSQL query execution over a pool scoped to one call.
type QueryExecutor struct {
	pool *pgxpool.Pool
}

// NewQueryExecutor creates a PostgreSQL query executor with its own pool.
func NewQueryExecutor(ctx context.Context, databaseURL string, opts datasource.Options) (*QueryExecutor, error) {
	cfg, err := ParseConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &QueryExecutor{pool: pool}, nil
}

// Query runs the literal SQL text over the simple query protocol and returns
// every row the server sends back. No limit is applied.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string) ([]datasource.Record, error) {
	rows, err := e.pool.Query(ctx, sqlQuery, pgx.QueryExecModeSimpleProtocol)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}

	records := make([]datasource.Record, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		record := make(datasource.Record, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return records, nil
}

// normalizeValue converts pgx values that would not serialize to JSON the way
// clients expect.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	default:
		return v
	}
}

// Close releases the pool.
func (e *QueryExecutor) Close() error {
	if e.pool != nil {
		e.pool.Close()
	}
	return nil
}

// Ensure QueryExecutor implements datasource.QueryExecutor at compile time.
var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
