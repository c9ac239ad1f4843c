package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/telegram"
)

// TelegramClient is the subset of telegram.Client the handler needs.
type TelegramClient interface {
	Send(ctx context.Context, req *telegram.SendRequest) (json.RawMessage, error)
	Diagnose(ctx context.Context) *telegram.Diagnostics
}

// TelegramHandler forwards bot messages to the Telegram Bot API.
type TelegramHandler struct {
	client TelegramClient
	logger *zap.Logger
}

// NewTelegramHandler creates a new Telegram handler.
func NewTelegramHandler(client TelegramClient, logger *zap.Logger) *TelegramHandler {
	return &TelegramHandler{
		client: client,
		logger: logger,
	}
}

// RegisterRoutes registers the Telegram handler's routes on the given mux.
func (h *TelegramHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/telegram/sendMessage", authMiddleware.RequireAuth(h.SendMessage))
	mux.HandleFunc("GET /api/telegram/diagnostics", authMiddleware.RequireAuth(h.Diagnostics))
}

// SendMessage handles POST /api/telegram/sendMessage
// Sends a text message, or a photo with an optional caption.
func (h *TelegramHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req telegram.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.client.Send(r.Context(), &req)
	if err != nil {
		status, code, _ := classifyError(err)
		message := logging.SanitizeError(err)
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) {
			message = logging.SanitizeMessage(apiErr.Message)
		}
		if status >= http.StatusInternalServerError {
			h.logger.Warn("Telegram send failed", zap.Int("status", status), zap.String("error", logging.SanitizeError(err)))
		}
		if err := ErrorResponse(w, status, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Diagnostics handles GET /api/telegram/diagnostics
func (h *TelegramHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.client.Diagnose(r.Context())); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Ensure telegram.Client implements TelegramClient at compile time.
var _ TelegramClient = (*telegram.Client)(nil)
