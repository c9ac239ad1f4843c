package models

import (
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/jsonutil"
)

// QueryRequest is one proxied query.
type QueryRequest struct {
	DatabaseURL string                `json:"databaseUrl"`
	Query       string                `json:"query"`
	DemoMode    jsonutil.FlexibleBool `json:"demoMode"`
}

// QueryResult is the envelope returned for a successful query.
// Count always equals len(Data).
type QueryResult struct {
	Success  bool                `json:"success"`
	Data     []datasource.Record `json:"data"`
	Count    int                 `json:"count"`
	DemoMode bool                `json:"demoMode"`
	Message  string              `json:"message,omitempty"`
}

// ConnectionDetails is what a successful connectivity check learned.
type ConnectionDetails struct {
	ServerVersion string `json:"serverVersion,omitempty"`
	Database      string `json:"database,omitempty"`
	LatencyMs     int64  `json:"latencyMs"`
}

// ConnectionTestResult is the outcome of a connectivity check.
// Failures are reported here rather than as errors.
type ConnectionTestResult struct {
	Success bool               `json:"success"`
	Type    string             `json:"type,omitempty"`
	Message string             `json:"message"`
	Details *ConnectionDetails `json:"details,omitempty"`
	Error   string             `json:"error,omitempty"`
}
