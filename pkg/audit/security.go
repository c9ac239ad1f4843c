// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQueryExecution is logged for every proxied query, successful or not.
	EventQueryExecution SecurityEventType = "query_execution"
	// EventConnectionTest is logged for every connectivity check.
	EventConnectionTest SecurityEventType = "connection_test"
	// EventProfileChange is logged when a saved connection profile is created,
	// changed, deleted or activated.
	EventProfileChange SecurityEventType = "profile_change"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	EventID   string            `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning
}

// QueryDetails describes a proxied query. DatabaseURL and Query must already
// be sanitized; the auditor sanitizes them again regardless.
type QueryDetails struct {
	DatabaseType string `json:"database_type"`
	DatabaseURL  string `json:"database_url"`
	Query        string `json:"query"`
	DemoMode     bool   `json:"demo_mode"`
	RowCount     int    `json:"row_count"`
	Error        string `json:"error,omitempty"`
}

// ProfileDetails describes a profile mutation.
type ProfileDetails struct {
	Action    string `json:"action"` // create, update, delete, activate
	ProfileID string `json:"profile_id"`
	Name      string `json:"name,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
// A nil *SecurityAuditor discards every event.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func userIDFromContext(ctx context.Context) string {
	if claims, ok := auth.GetClaims(ctx); ok && claims != nil {
		return claims.Subject
	}
	return ""
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity, clientIP string, details any) SecurityEvent {
	return SecurityEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userIDFromContext(ctx),
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

// LogQueryExecution records a proxied query. Failed queries are logged at
// WARN with "warning" severity, successful ones at INFO.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, details QueryDetails, clientIP string) {
	if a == nil {
		return
	}
	details.DatabaseURL = logging.SanitizeConnectionString(details.DatabaseURL)
	details.Query = logging.SanitizeQuery(details.Query)
	details.Error = logging.SanitizeMessage(details.Error)

	severity := "info"
	if details.Error != "" {
		severity = "warning"
	}
	event := a.newEvent(ctx, EventQueryExecution, severity, clientIP, details)

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("database_type", details.DatabaseType),
		zap.String("database_url", details.DatabaseURL),
		zap.Bool("demo_mode", details.DemoMode),
		zap.Int("row_count", details.RowCount),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", severity),
	}
	if details.Error != "" {
		a.logger.Warn("Query failed", fields...)
		return
	}
	a.logger.Info("Query executed", fields...)
}

// LogConnectionTest records a connectivity check against databaseURL.
func (a *SecurityAuditor) LogConnectionTest(ctx context.Context, databaseType, databaseURL string, success bool, clientIP string) {
	if a == nil {
		return
	}
	details := map[string]any{
		"database_type": databaseType,
		"database_url":  logging.SanitizeConnectionString(databaseURL),
		"success":       success,
	}
	event := a.newEvent(ctx, EventConnectionTest, "info", clientIP, details)
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Connection tested",
		zap.String("event_json", string(eventJSON)),
		zap.String("database_type", databaseType),
		zap.Bool("success", success),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", "info"),
	)
}

// LogProfileChange records a profile mutation.
func (a *SecurityAuditor) LogProfileChange(ctx context.Context, details ProfileDetails, clientIP string) {
	if a == nil {
		return
	}
	event := a.newEvent(ctx, EventProfileChange, "info", clientIP, details)
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Profile changed",
		zap.String("event_json", string(eventJSON)),
		zap.String("action", details.Action),
		zap.String("profile_id", details.ProfileID),
		zap.String("client_ip", clientIP),
		zap.String("user_id", event.UserID),
		zap.String("severity", "info"),
	)
}
