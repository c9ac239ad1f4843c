package datasource

import (
	"context"
	"time"
)

// Record is a single result row or document, keyed by column or field name.
type Record = map[string]any

// DefaultConnectTimeout bounds how long acquiring a connection may block.
const DefaultConnectTimeout = 5 * time.Second

// MaxDocumentLimit is the cap on documents returned by document-store queries.
// Relational engines return whatever the driver yields.
const MaxDocumentLimit = 1000

// Options tune how adapters acquire connections.
type Options struct {
	ConnectTimeout time.Duration
	DocumentLimit  int
}

// WithDefaults fills zero fields with their defaults.
func (o Options) WithDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.DocumentLimit <= 0 || o.DocumentLimit > MaxDocumentLimit {
		o.DocumentLimit = MaxDocumentLimit
	}
	return o
}

// ServerInfo is what a connection probe learns about the server.
type ServerInfo struct {
	ServerVersion string `json:"serverVersion,omitempty"`
	Database      string `json:"database,omitempty"`
}

// ConnectionTester tests database connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials
	// and reports what it found.
	TestConnection(ctx context.Context) (*ServerInfo, error)

	// Close releases the database connection.
	Close() error
}

// QueryExecutor runs one caller-supplied query.
// Each implementation owns its connection, is never shared between calls,
// and must be closed when done.
type QueryExecutor interface {
	// Query executes the literal query text and returns the records in the
	// order the engine produced them.
	Query(ctx context.Context, query string) ([]Record, error)

	// Close releases any resources held by the executor.
	Close() error
}
