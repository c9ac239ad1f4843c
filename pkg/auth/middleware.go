package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// Middleware guards handlers with bearer-token authentication.
// A Middleware with a nil validator lets every request through.
type Middleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewMiddleware creates auth middleware. Pass a nil validator to disable auth.
func NewMiddleware(validator TokenValidator, logger *zap.Logger) *Middleware {
	return &Middleware{
		validator: validator,
		logger:    logger,
	}
}

// Enabled reports whether requests are checked.
func (m *Middleware) Enabled() bool {
	return m != nil && m.validator != nil
}

// RequireAuth validates the bearer token and stores its claims in the request context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !m.Enabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			m.logger.Debug("No usable bearer token",
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
				zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		claims, err := m.validator.ValidateToken(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("JWT validation failed", zap.String("path", r.URL.Path), zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthorization
	}

	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", ErrInvalidAuthFormat
	}
	return token, nil
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="ekaya-dbproxy"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "unauthorized",
		"message":    message,
		"statusCode": http.StatusUnauthorized,
	})
}
