package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches the password part of URL userinfo. Greedy up to the last '@'
	// before the path so unescaped '@' in passwords is covered too.
	userinfoPattern = regexp.MustCompile(`(://[^:/@\s]*):[^/\s]*@`)

	// Pattern to match JWT tokens (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Telegram bot tokens appear in request paths: /bot123456:AAE.../sendMessage
	botTokenPattern = regexp.MustCompile(`/bot\d+:[A-Za-z0-9_-]+`)
)

// SanitizeConnectionString removes passwords from connection strings while
// keeping scheme, user, host and database visible.
// Use this before logging any connection string.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := userinfoPattern.ReplaceAllString(connStr, "${1}:"+RedactedText+"@")
	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Driver and HTTP client errors often echo the URL they failed on.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage applies every redaction to free text.
func SanitizeMessage(msg string) string {
	sanitized := userinfoPattern.ReplaceAllString(msg, "${1}:"+RedactedText+"@")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	return botTokenPattern.ReplaceAllString(sanitized, "/bot"+RedactedText)
}

// SanitizeQuery truncates a query for logging and removes inline passwords.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}

	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}
