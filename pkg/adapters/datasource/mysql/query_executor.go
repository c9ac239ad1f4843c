//go:build !no_mysql

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// QueryExecutor provides MySQL query execution over a handle scoped to one call.
type QueryExecutor struct {
	db *sql.DB
}

// NewQueryExecutor creates a MySQL query executor with its own handle.
func NewQueryExecutor(ctx context.Context, databaseURL string, opts datasource.Options) (*QueryExecutor, error) {
	db, err := openDB(databaseURL, opts)
	if err != nil {
		return nil, err
	}
	return &QueryExecutor{db: db}, nil
}

// Query runs the literal SQL text and returns every row. Statements without a
// result set (INSERT, UPDATE, DDL) yield an empty slice.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string) ([]datasource.Record, error) {
	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	records := make([]datasource.Record, 0)
	for rows.Next() {
		values := make([]any, len(columnTypes))
		ptrs := make([]any, len(columnTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		record := make(datasource.Record, len(columnTypes))
		for i, ct := range columnTypes {
			record[ct.Name()] = convertValue(ct.DatabaseTypeName(), values[i])
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return records, nil
}

// convertValue turns the driver's raw bytes into numbers for integer and
// floating point columns and into strings for everything else. DECIMAL stays
// a string so no precision is lost.
func convertValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	s := string(b)
	switch strings.TrimPrefix(dbType, "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// Close releases the handle.
func (e *QueryExecutor) Close() error {
	return e.db.Close()
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
