package handlers

import (
	"context"
	"encoding/json"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/services"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/telegram"
)

// mockDatabaseService is a mock implementation of services.DatabaseService.
type mockDatabaseService struct {
	queryResult *models.QueryResult
	queryErr    error
	testResult  *models.ConnectionTestResult
	testErr     error
	types       []datasource.AdapterInfo

	capturedQuery *models.QueryRequest
	capturedURL   string
}

func (m *mockDatabaseService) ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	m.capturedQuery = req
	return m.queryResult, m.queryErr
}

func (m *mockDatabaseService) TestConnection(ctx context.Context, databaseURL string) (*models.ConnectionTestResult, error) {
	m.capturedURL = databaseURL
	return m.testResult, m.testErr
}

func (m *mockDatabaseService) ListTypes() []datasource.AdapterInfo {
	return m.types
}

var _ services.DatabaseService = (*mockDatabaseService)(nil)

// mockTelegramClient is a mock implementation of TelegramClient.
type mockTelegramClient struct {
	result      json.RawMessage
	err         error
	diagnostics *telegram.Diagnostics

	capturedReq *telegram.SendRequest
}

func (m *mockTelegramClient) Send(ctx context.Context, req *telegram.SendRequest) (json.RawMessage, error) {
	m.capturedReq = req
	return m.result, m.err
}

func (m *mockTelegramClient) Diagnose(ctx context.Context) *telegram.Diagnostics {
	return m.diagnostics
}

// mockPinger is a mock implementation of StatePinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}
