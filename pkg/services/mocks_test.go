package services

import (
	"context"
	"testing"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
)

// mockConnectionTester is a mock implementation of datasource.ConnectionTester.
type mockConnectionTester struct {
	info    *datasource.ServerInfo
	testErr error
	closed  bool
}

func (m *mockConnectionTester) TestConnection(ctx context.Context) (*datasource.ServerInfo, error) {
	return m.info, m.testErr
}

func (m *mockConnectionTester) Close() error {
	m.closed = true
	return nil
}

// mockQueryExecutor is a mock implementation of datasource.QueryExecutor.
type mockQueryExecutor struct {
	records  []datasource.Record
	queryErr error
	closed   bool

	capturedQuery string
}

func (m *mockQueryExecutor) Query(ctx context.Context, query string) ([]datasource.Record, error) {
	m.capturedQuery = query
	return m.records, m.queryErr
}

func (m *mockQueryExecutor) Close() error {
	m.closed = true
	return nil
}

// mockAdapterFactory is a mock implementation of datasource.DatasourceAdapterFactory.
type mockAdapterFactory struct {
	tester     *mockConnectionTester
	executor   *mockQueryExecutor
	factoryErr error

	capturedType datasource.DatabaseType
	capturedURL  string
}

func (m *mockAdapterFactory) NewConnectionTester(ctx context.Context, dbType datasource.DatabaseType, databaseURL string) (datasource.ConnectionTester, error) {
	m.capturedType = dbType
	m.capturedURL = databaseURL
	if m.factoryErr != nil {
		return nil, m.factoryErr
	}
	if m.tester == nil {
		m.tester = &mockConnectionTester{}
	}
	return m.tester, nil
}

func (m *mockAdapterFactory) NewQueryExecutor(ctx context.Context, dbType datasource.DatabaseType, databaseURL string) (datasource.QueryExecutor, error) {
	m.capturedType = dbType
	m.capturedURL = databaseURL
	if m.factoryErr != nil {
		return nil, m.factoryErr
	}
	if m.executor == nil {
		m.executor = &mockQueryExecutor{}
	}
	return m.executor, nil
}

func (m *mockAdapterFactory) ListTypes() []datasource.AdapterInfo {
	return []datasource.AdapterInfo{
		{Type: datasource.TypePostgreSQL, DisplayName: "PostgreSQL", Schemes: datasource.TypePostgreSQL.Schemes()},
	}
}

// failingAdapterFactory fails the test if any adapter is requested.
type failingAdapterFactory struct {
	t *testing.T
}

func (f *failingAdapterFactory) NewConnectionTester(ctx context.Context, dbType datasource.DatabaseType, databaseURL string) (datasource.ConnectionTester, error) {
	f.t.Fatalf("unexpected NewConnectionTester(%s)", dbType)
	return nil, nil
}

func (f *failingAdapterFactory) NewQueryExecutor(ctx context.Context, dbType datasource.DatabaseType, databaseURL string) (datasource.QueryExecutor, error) {
	f.t.Fatalf("unexpected NewQueryExecutor(%s)", dbType)
	return nil, nil
}

func (f *failingAdapterFactory) ListTypes() []datasource.AdapterInfo {
	return nil
}
