// Package auth resolves the bearer token used for export-service requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/osm-exports/exportctl/internal/logging"
)

// Token errors.
var (
	ErrNoToken      = errors.New("no bearer token available")
	ErrTokenExpired = errors.New("bearer token is expired")
)

// TokenProvider yields the bearer token for a request. The token is
// read-only shared state refreshed externally; providers must be safe for
// concurrent use.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token. Used by tests and one-shot commands.
type StaticProvider string

// Token implements TokenProvider.
func (p StaticProvider) Token(ctx context.Context) (string, error) {
	if p == "" {
		return "", ErrNoToken
	}
	return string(p), nil
}

// RefProvider resolves a token from a credential reference: "env:NAME" reads
// an environment variable, anything else is treated as a file path. The
// reference is re-resolved on every call so external refreshes are picked up.
type RefProvider struct {
	// Ref is the credential reference.
	Ref string

	// RejectExpired makes Token fail instead of warn when the token's JWT
	// expiry has passed.
	RejectExpired bool
}

// Token implements TokenProvider.
func (p *RefProvider) Token(ctx context.Context) (string, error) {
	token, err := p.resolve()
	if err != nil {
		return "", err
	}

	if exp, ok := Expiry(token); ok && time.Now().After(exp) {
		if p.RejectExpired {
			return "", fmt.Errorf("%w (expired %s)", ErrTokenExpired, exp.Format(time.RFC3339))
		}
		logger := logging.Component("auth")
		logger.Warn().
			Time("expired_at", exp).
			Msg("bearer token appears expired; requests will likely be rejected")
	}

	return token, nil
}

func (p *RefProvider) resolve() (string, error) {
	ref := strings.TrimSpace(p.Ref)
	if ref == "" {
		return "", ErrNoToken
	}

	if name, ok := strings.CutPrefix(ref, "env:"); ok {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return "", fmt.Errorf("%w: environment variable %s is empty", ErrNoToken, name)
		}
		return value, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: token file %s is empty", ErrNoToken, ref)
	}
	return value, nil
}

// Expiry extracts the exp claim from a JWT bearer token without verifying
// the signature. Returns ok=false when the token is not a JWT or carries no
// expiry.
func Expiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
