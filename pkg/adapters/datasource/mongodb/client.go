//go:build !no_mongodb

package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
)

// client parses its URI and connects on first use, and disconnects on Close.
// Parsing a mongodb+srv URI already resolves DNS, and the driver starts dialing
// as soon as a client exists, so both wait until the caller's input is validated.
type client struct {
	databaseURL string
	opts        datasource.Options
	client      *mongo.Client
	dbName      string
}

func newClient(databaseURL string, opts datasource.Options) *client {
	return &client{databaseURL: databaseURL, opts: opts}
}

func (c *client) database(ctx context.Context) (*mongo.Database, error) {
	if c.client == nil {
		cfg, err := ParseConfig(c.databaseURL, c.opts)
		if err != nil {
			return nil, err
		}
		mc, err := mongo.Connect(ctx, cfg.Client)
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		c.client = mc
		c.dbName = cfg.Database
	}
	return c.client.Database(c.dbName), nil
}

// Close disconnects the client if it was ever connected.
func (c *client) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), datasource.DefaultConnectTimeout)
	defer cancel()
	err := c.client.Disconnect(ctx)
	c.client = nil
	return err
}

// markTimeout tags server selection and socket timeouts with
// apperrors.ErrConnectTimeout.
func markTimeout(err error) error {
	if err != nil && mongo.IsTimeout(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrConnectTimeout, err)
	}
	return err
}
