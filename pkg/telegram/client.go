// Package telegram forwards messages to the Telegram Bot API and checks
// whether the API is reachable from this host.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Client-facing messages for transport failures.
const (
	MsgUnreachable = "Cannot reach Telegram API. Please check your internet connection or DNS settings."
	MsgTimedOut    = "Connection to Telegram API timed out. Please try again."
)

// SendRequest is one outgoing message. A non-empty Photo sends a photo with
// Text as its caption.
type SendRequest struct {
	BotToken  string                  `json:"botToken"`
	ChatID    jsonutil.FlexibleString `json:"chatId"`
	Text      string                  `json:"text,omitempty"`
	Photo     string                  `json:"photo,omitempty"`
	ParseMode string                  `json:"parseMode,omitempty"`
}

// APIError carries the HTTP status a failed send should be reported with.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for this error.
func (e *APIError) StatusCode() int { return e.Status }

// botResponse is the Bot API envelope.
type botResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Client talks to the Bot API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	resolver    *net.Resolver
	diagTimeout time.Duration
	logger      *zap.Logger
}

// NewClient creates a Bot API client. timeout bounds each send;
// diagTimeout bounds each diagnostics probe.
func NewClient(baseURL string, timeout, diagTimeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
		resolver:    net.DefaultResolver,
		diagTimeout: diagTimeout,
		logger:      logger.Named("telegram"),
	}
}

// Send delivers req and returns the Bot API "result" object.
func (c *Client) Send(ctx context.Context, req *SendRequest) (json.RawMessage, error) {
	if req.BotToken == "" || req.ChatID == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Bot token and chat ID are required"}
	}
	if req.Text == "" && req.Photo == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Either text or photo is required"}
	}

	method := "sendMessage"
	payload := map[string]any{"chat_id": string(req.ChatID)}
	if req.Photo != "" {
		method = "sendPhoto"
		payload["photo"] = req.Photo
		if req.Text != "" {
			payload["caption"] = req.Text
		}
	} else {
		payload["text"] = req.Text
	}
	if req.ParseMode != "" {
		payload["parse_mode"] = req.ParseMode
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", method, err)
	}

	endpoint := c.baseURL + "/bot" + url.PathEscape(req.BotToken) + "/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Invalid bot token", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		apiErr := classifyTransportError(err)
		c.logger.Warn("Telegram request failed",
			zap.String("method", method),
			zap.Int("status", apiErr.Status),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apiErr
	}
	defer resp.Body.Close()

	var envelope botResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{
			Status:  http.StatusBadGateway,
			Message: "Failed to send message",
			Err:     fmt.Errorf("unreadable Telegram response (HTTP %d): %w", resp.StatusCode, err),
		}
	}

	if !envelope.OK {
		status := envelope.ErrorCode
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		msg := envelope.Description
		if msg == "" {
			msg = "Failed to send message"
		}
		c.logger.Info("Telegram rejected message",
			zap.String("method", method),
			zap.Int("error_code", envelope.ErrorCode),
			zap.String("description", envelope.Description))
		return nil, &APIError{Status: status, Message: msg}
	}

	c.logger.Debug("Telegram message sent", zap.String("method", method))
	return envelope.Result, nil
}

// classifyTransportError maps a failed round trip onto the status and message
// reported to the caller.
func classifyTransportError(err error) *APIError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.IsTimeout {
		return &APIError{Status: http.StatusServiceUnavailable, Message: MsgUnreachable}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Status: http.StatusGatewayTimeout, Message: MsgTimedOut}
	}

	return &APIError{
		Status:  http.StatusInternalServerError,
		Message: "Failed to send message",
		Err:     errors.New(logging.SanitizeError(err)),
	}
}
