package datasource

import (
	"context"
	"fmt"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
)

// DatasourceAdapterFactory creates adapters from the registry.
type DatasourceAdapterFactory interface {
	// NewConnectionTester creates a connection tester for the given database type.
	NewConnectionTester(ctx context.Context, dbType DatabaseType, databaseURL string) (ConnectionTester, error)

	// NewQueryExecutor creates a query executor for the given database type.
	NewQueryExecutor(ctx context.Context, dbType DatabaseType, databaseURL string) (QueryExecutor, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	opts Options
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
func NewDatasourceAdapterFactory(opts Options) DatasourceAdapterFactory {
	return &registryFactory{
		opts: opts.WithDefaults(),
	}
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, dbType DatabaseType, databaseURL string) (ConnectionTester, error) {
	if err := checkSupported(dbType); err != nil {
		return nil, err
	}
	factory := GetFactory(dbType)
	if factory == nil {
		return nil, driverUnavailable(dbType)
	}
	return factory(ctx, databaseURL, f.opts)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, dbType DatabaseType, databaseURL string) (QueryExecutor, error) {
	if err := checkSupported(dbType); err != nil {
		return nil, err
	}
	factory := GetQueryExecutorFactory(dbType)
	if factory == nil {
		return nil, driverUnavailable(dbType)
	}
	return factory(ctx, databaseURL, f.opts)
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

func checkSupported(dbType DatabaseType) error {
	if _, ok := driverHints[dbType]; !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedType, dbType)
	}
	return nil
}

func driverUnavailable(dbType DatabaseType) error {
	return fmt.Errorf("%w: %s", apperrors.ErrDriverUnavailable, dbType.DriverHint())
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
