package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/audit"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/services"
)

// TestConnectionRequest for POST /api/database/testConnection.
type TestConnectionRequest struct {
	DatabaseURL string `json:"databaseUrl"`
}

// DatabaseHandler handles the database proxy endpoints.
type DatabaseHandler struct {
	databaseService services.DatabaseService
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewDatabaseHandler creates a new database handler. auditor may be nil.
func NewDatabaseHandler(databaseService services.DatabaseService, auditor *audit.SecurityAuditor, logger *zap.Logger) *DatabaseHandler {
	return &DatabaseHandler{
		databaseService: databaseService,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the database handler's routes on the given mux.
func (h *DatabaseHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/database/query", authMiddleware.RequireAuth(h.Query))
	mux.HandleFunc("POST /api/database/testConnection", authMiddleware.RequireAuth(h.TestConnection))
	mux.HandleFunc("GET /api/database/types", authMiddleware.RequireAuth(h.ListTypes))
}

// Query handles POST /api/database/query
// Runs a query against the database named by databaseUrl, or returns demo data.
func (h *DatabaseHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("Failed to decode request body", zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.databaseService.ExecuteQuery(r.Context(), &req)
	details := audit.QueryDetails{
		DatabaseType: string(datasource.Classify(req.DatabaseURL)),
		DatabaseURL:  req.DatabaseURL,
		Query:        req.Query,
		DemoMode:     bool(req.DemoMode),
	}
	if err != nil {
		status, code, message := classifyError(err)
		if status != http.StatusBadRequest {
			details.Error = message
			h.auditor.LogQueryExecution(r.Context(), details, r.RemoteAddr)
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("Query failed", zap.Int("status", status), zap.String("error", message))
		}
		if err := ErrorResponse(w, status, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	details.RowCount = result.Count
	h.auditor.LogQueryExecution(r.Context(), details, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TestConnection handles POST /api/database/testConnection
// Always answers 200 with a structured result unless databaseUrl is missing.
func (h *DatabaseHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req TestConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.databaseService.TestConnection(r.Context(), req.DatabaseURL)
	if err != nil {
		status, code, message := classifyError(err)
		if err := ErrorResponse(w, status, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.auditor.LogConnectionTest(r.Context(), result.Type, req.DatabaseURL, result.Success, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListTypes handles GET /api/database/types
func (h *DatabaseHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types := h.databaseService.ListTypes()

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: types}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
