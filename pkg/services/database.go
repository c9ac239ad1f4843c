package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
)

// DemoMessage accompanies every demo-mode result.
const DemoMessage = "Demo mode: Returning sample data. Install database drivers for real queries."

// DatabaseService proxies queries and connectivity checks to user databases.
type DatabaseService interface {
	// ExecuteQuery runs req.Query against req.DatabaseURL, or returns the demo
	// sample when req.DemoMode is set.
	ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error)

	// TestConnection connects to databaseURL and reports the outcome.
	// Only a missing URL is returned as an error.
	TestConnection(ctx context.Context, databaseURL string) (*models.ConnectionTestResult, error)

	// ListTypes returns the engines compiled into this binary.
	ListTypes() []datasource.AdapterInfo
}

// databaseService implements DatabaseService.
type databaseService struct {
	adapterFactory datasource.DatasourceAdapterFactory
	logger         *zap.Logger
}

// NewDatabaseService creates a database service. URLs reach the adapters
// unchanged; each adapter applies the Docker host rewrite when parsing.
func NewDatabaseService(adapterFactory datasource.DatasourceAdapterFactory, logger *zap.Logger) DatabaseService {
	return &databaseService{
		adapterFactory: adapterFactory,
		logger:         logger.Named("database"),
	}
}

func (s *databaseService) ExecuteQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResult, error) {
	if req.DatabaseURL == "" || req.Query == "" {
		return nil, fmt.Errorf("%w: databaseUrl and query are required", apperrors.ErrMissingParameter)
	}

	dbType := datasource.Classify(req.DatabaseURL)

	if req.DemoMode {
		data := DemoRecords(dbType)
		s.logger.Debug("Returning demo data", zap.String("type", string(dbType)), zap.Int("count", len(data)))
		return &models.QueryResult{
			Success:  true,
			Data:     data,
			Count:    len(data),
			DemoMode: true,
			Message:  DemoMessage,
		}, nil
	}

	executor, err := s.adapterFactory.NewQueryExecutor(ctx, dbType, req.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := executor.Close(); err != nil {
			s.logger.Warn("Failed to close query executor", zap.String("type", string(dbType)), zap.Error(err))
		}
	}()

	start := time.Now()
	data, err := executor.Query(ctx, req.Query)
	if err != nil {
		s.logger.Info("Query failed",
			zap.String("type", string(dbType)),
			zap.String("url", logging.SanitizeConnectionString(req.DatabaseURL)),
			zap.String("query", logging.SanitizeQuery(req.Query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, err
	}
	if data == nil {
		data = []datasource.Record{}
	}

	s.logger.Debug("Query executed",
		zap.String("type", string(dbType)),
		zap.String("query", logging.SanitizeQuery(req.Query)),
		zap.Int("count", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	return &models.QueryResult{
		Success:  true,
		Data:     data,
		Count:    len(data),
		DemoMode: false,
	}, nil
}

func (s *databaseService) TestConnection(ctx context.Context, databaseURL string) (*models.ConnectionTestResult, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%w: databaseUrl is required", apperrors.ErrMissingParameter)
	}

	dbType := datasource.Classify(databaseURL)
	if dbType == datasource.TypeUnknown {
		return &models.ConnectionTestResult{
			Success: false,
			Message: "Unsupported database type",
			Error:   "connection string must start with one of postgres://, postgresql://, mysql://, mongodb:// or mongodb+srv://",
		}, nil
	}

	display := dbType.DisplayName()

	tester, err := s.adapterFactory.NewConnectionTester(ctx, dbType, databaseURL)
	if err != nil {
		if errors.Is(err, apperrors.ErrDriverUnavailable) {
			return &models.ConnectionTestResult{
				Success: false,
				Type:    string(dbType),
				Message: dbType.DriverHint(),
				Error:   logging.SanitizeError(err),
			}, nil
		}
		return s.failedTest(dbType, databaseURL, err), nil
	}
	defer func() {
		if err := tester.Close(); err != nil {
			s.logger.Warn("Failed to close connection tester", zap.String("type", string(dbType)), zap.Error(err))
		}
	}()

	start := time.Now()
	info, err := tester.TestConnection(ctx)
	if err != nil {
		return s.failedTest(dbType, databaseURL, err), nil
	}
	latency := time.Since(start)

	s.logger.Info("Connection test successful",
		zap.String("type", string(dbType)),
		zap.Duration("latency", latency))

	details := &models.ConnectionDetails{LatencyMs: latency.Milliseconds()}
	if info != nil {
		details.ServerVersion = info.ServerVersion
		details.Database = info.Database
	}

	return &models.ConnectionTestResult{
		Success: true,
		Type:    string(dbType),
		Message: fmt.Sprintf("Successfully connected to %s database", display),
		Details: details,
	}, nil
}

func (s *databaseService) failedTest(dbType datasource.DatabaseType, databaseURL string, err error) *models.ConnectionTestResult {
	sanitized := logging.SanitizeError(err)
	s.logger.Info("Connection test failed",
		zap.String("type", string(dbType)),
		zap.String("url", logging.SanitizeConnectionString(databaseURL)),
		zap.String("error", sanitized))

	return &models.ConnectionTestResult{
		Success: false,
		Type:    string(dbType),
		Message: fmt.Sprintf("Failed to connect to %s database", dbType.DisplayName()),
		Error:   sanitized,
	}
}

func (s *databaseService) ListTypes() []datasource.AdapterInfo {
	return s.adapterFactory.ListTypes()
}

// Ensure databaseService implements DatabaseService at compile time.
var _ DatabaseService = (*databaseService)(nil)
