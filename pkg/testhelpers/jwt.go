// Package testhelpers provides utilities for testing ekaya-dbproxy components.
package testhelpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestHMACSecret is the shared secret used by SignTestJWT.
const TestHMACSecret = "test-hmac-secret-for-unit-tests"

// SignTestJWT returns an HS256 token for sub signed with secret, valid for ttl.
// A negative ttl yields an already-expired token.
func SignTestJWT(t *testing.T, secret, sub string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

// BearerTestJWT returns a valid SignTestJWT token with the "Bearer " prefix
// for the Authorization header.
func BearerTestJWT(t *testing.T, sub string) string {
	t.Helper()
	return "Bearer " + SignTestJWT(t, TestHMACSecret, sub, time.Hour)
}
