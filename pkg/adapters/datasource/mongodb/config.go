//go:build !no_mongodb

package mongodb

import (
	"bytes"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/config"
)

// DefaultDatabase is used when the URI names no database.
const DefaultDatabase = "test"

// Config holds the client options and target database derived from a URI.
type Config struct {
	Client   *options.ClientOptions
	Database string
}

// ParseConfig validates a mongodb:// or mongodb+srv:// URI and builds client
// options with the server selection and connect timeouts applied.
// When running in Docker, localhost is resolved to host.docker.internal.
func ParseConfig(databaseURL string, opts datasource.Options) (*Config, error) {
	opts = opts.WithDefaults()
	uri := config.ResolveURLForDocker(databaseURL)

	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB connection string: %w", err)
	}

	database := cs.Database
	if database == "" {
		database = DefaultDatabase
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(opts.ConnectTimeout).
		SetConnectTimeout(opts.ConnectTimeout).
		SetMaxPoolSize(1)

	return &Config{Client: clientOpts, Database: database}, nil
}

// ParseFilter parses query text as a relaxed Extended JSON object used as a
// find filter. Anything that is not a JSON object is rejected.
func ParseFilter(query string) (bson.M, error) {
	trimmed := bytes.TrimSpace([]byte(query))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, filterError(fmt.Errorf("expected a JSON object"))
	}

	var filter bson.M
	if err := bson.UnmarshalExtJSON(trimmed, false, &filter); err != nil {
		return nil, filterError(err)
	}
	if filter == nil {
		filter = bson.M{}
	}
	return filter, nil
}

func filterError(err error) error {
	return fmt.Errorf(`%w: MongoDB query must be valid JSON format, e.g., {"status": "active"}: %v`, apperrors.ErrInvalidFilter, err)
}
