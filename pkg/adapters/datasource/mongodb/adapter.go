//go:build !no_mongodb

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// Adapter provides MongoDB connectivity checks.
type Adapter struct {
	*client
}

// NewAdapter creates a MongoDB adapter. Nothing is dialed until TestConnection.
func NewAdapter(ctx context.Context, databaseURL string, opts datasource.Options) (*Adapter, error) {
	return &Adapter{client: newClient(databaseURL, opts)}, nil
}

// TestConnection pings the primary and reads the server version.
func (a *Adapter) TestConnection(ctx context.Context) (*datasource.ServerInfo, error) {
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}

	if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping failed: %w", markTimeout(err))
	}

	var buildInfo struct {
		Version string `bson:"version"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&buildInfo); err != nil {
		return nil, fmt.Errorf("test query failed: %w", err)
	}

	return &datasource.ServerInfo{ServerVersion: buildInfo.Version, Database: db.Name()}, nil
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
