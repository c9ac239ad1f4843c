package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoVerifier is returned when neither a secret nor a JWKS endpoint is configured.
	ErrNoVerifier = errors.New("no token verifier configured")
	// ErrUnauthorizedIssuer is returned for asymmetric tokens from an unknown issuer.
	ErrUnauthorizedIssuer = errors.New("unauthorized issuer")
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	// ValidateToken verifies the signature and time claims of tokenString.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
	// Close stops background JWKS refreshes.
	Close()
}

// ValidatorConfig selects how tokens are verified.
type ValidatorConfig struct {
	// HMACSecret verifies HS256/HS384/HS512 tokens when set.
	HMACSecret string
	// JWKSEndpoints maps issuer URLs to their JWKS endpoint URLs.
	// RSA and ECDSA tokens are only accepted from these issuers.
	JWKSEndpoints map[string]string
}

// validator implements TokenValidator.
type validator struct {
	secret    []byte
	endpoints map[string]keyfunc.Keyfunc
	cancel    context.CancelFunc
	parser    *jwt.Parser
}

// NewTokenValidator creates a validator. JWKS endpoints are fetched in the
// background and refreshed until Close is called.
func NewTokenValidator(ctx context.Context, cfg ValidatorConfig) (TokenValidator, error) {
	if cfg.HMACSecret == "" && len(cfg.JWKSEndpoints) == 0 {
		return nil, ErrNoVerifier
	}

	ctx, cancel := context.WithCancel(ctx)
	v := &validator{
		endpoints: make(map[string]keyfunc.Keyfunc, len(cfg.JWKSEndpoints)),
		cancel:    cancel,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512", "RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}),
			jwt.WithExpirationRequired(),
		),
	}
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
	}

	for issuer, jwksURL := range cfg.JWKSEndpoints {
		jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create JWKS client for %s: %w", issuer, err)
		}
		v.endpoints[issuer] = jwks
	}

	return v, nil
}

func (v *validator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
			if v.secret == nil {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, errors.New("invalid claims type")
		}
		jwks, exists := v.endpoints[claims.Issuer]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnauthorizedIssuer, claims.Issuer)
		}
		return jwks.KeyfuncCtx(ctx)(token)
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}

func (v *validator) Close() {
	v.cancel()
}

// Ensure validator implements TokenValidator at compile time.
var _ TokenValidator = (*validator)(nil)
