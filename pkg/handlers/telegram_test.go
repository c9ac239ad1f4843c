package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/telegram"
)

func newTelegramMux(client *mockTelegramClient) *http.ServeMux {
	mux := http.NewServeMux()
	NewTelegramHandler(client, zap.NewNop()).RegisterRoutes(mux, auth.NewMiddleware(nil, zap.NewNop()))
	return mux
}

func TestTelegramHandler_SendMessage_Success(t *testing.T) {
	client := &mockTelegramClient{result: json.RawMessage(`{"message_id":42}`)}
	mux := newTelegramMux(client)

	req := httptest.NewRequest(http.MethodPost, "/api/telegram/sendMessage",
		bytes.NewBufferString(`{"botToken":"123:abc","chatId":-1001234567890,"text":"hello"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"message_id":42}}`, rec.Body.String())
	require.NotNil(t, client.capturedReq)
	assert.Equal(t, "-1001234567890", string(client.capturedReq.ChatID))
	assert.Equal(t, "hello", client.capturedReq.Text)
}

func TestTelegramHandler_SendMessage_Errors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"missing fields", &telegram.APIError{Status: http.StatusBadRequest, Message: "Bot token and chat ID are required"}, http.StatusBadRequest, "Bot token and chat ID are required"},
		{"unreachable", &telegram.APIError{Status: http.StatusServiceUnavailable, Message: telegram.MsgUnreachable}, http.StatusServiceUnavailable, telegram.MsgUnreachable},
		{"timed out", &telegram.APIError{Status: http.StatusGatewayTimeout, Message: telegram.MsgTimedOut}, http.StatusGatewayTimeout, telegram.MsgTimedOut},
		{"rejected", &telegram.APIError{Status: http.StatusForbidden, Message: "Forbidden: bot was blocked by the user"}, http.StatusForbidden, "Forbidden: bot was blocked by the user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTelegramMux(&mockTelegramClient{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/telegram/sendMessage",
				bytes.NewBufferString(`{"botToken":"123:abc","chatId":"1","text":"hi"}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantStatus, body.StatusCode)
		})
	}
}

func TestTelegramHandler_Diagnostics(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	client := &mockTelegramClient{diagnostics: &telegram.Diagnostics{
		Timestamp: ts,
		Checks: map[string]telegram.Check{
			"dns":  {Status: "success", Addresses: []string{"149.154.167.220"}},
			"http": {Status: "failed", Error: "connection refused", Code: "ECONNREFUSED"},
		},
	}}
	mux := newTelegramMux(client)

	req := httptest.NewRequest(http.MethodGet, "/api/telegram/diagnostics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"timestamp":"2026-01-02T03:04:05Z",
		"checks":{
			"dns":{"status":"success","addresses":["149.154.167.220"]},
			"http":{"status":"failed","error":"connection refused","code":"ECONNREFUSED"}
		}
	}`, rec.Body.String())
}
