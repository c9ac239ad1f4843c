//go:build !no_mysql

package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// openDB returns a lazily-connecting handle limited to one connection.
func openDB(databaseURL string, opts datasource.Options) (*sql.DB, error) {
	cfg, err := ParseConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Adapter provides MySQL connectivity checks.
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a MySQL adapter. Nothing is dialed until TestConnection.
func NewAdapter(ctx context.Context, databaseURL string, opts datasource.Options) (*Adapter, error) {
	db, err := openDB(databaseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Adapter{db: db}, nil
}

// TestConnection pings the server and reads its version and current database.
func (a *Adapter) TestConnection(ctx context.Context) (*datasource.ServerInfo, error) {
	if err := a.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	var version string
	var database sql.NullString
	if err := a.db.QueryRowContext(ctx, "SELECT VERSION(), DATABASE()").Scan(&version, &database); err != nil {
		return nil, fmt.Errorf("test query failed: %w", err)
	}

	return &datasource.ServerInfo{ServerVersion: version, Database: database.String}, nil
}

// Close releases the connection.
func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
