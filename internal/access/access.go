// Package access implements the session-scoped authorization cache for
// password-gated companies. A successful password check issues a signed
// token for that company; later requests present their tokens and the
// resulting Set decides which gated companies may appear in views.
//
// This replaces the per-company local-storage flag the browser used to
// keep. Like the original it is a client-trust convenience, not a
// security boundary.
package access

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for expired, malformed or foreign tokens.
var ErrInvalidToken = errors.New("invalid company access token")

// TokenManager issues and verifies company-access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager signing with the given secret.
func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl}
}

// Issue creates a signed token granting access to one company.
func (m *TokenManager) Issue(companyID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   companyID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the company it grants access to.
func (m *TokenManager) Verify(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Set is the collection of company IDs the caller is authorized to see.
type Set map[uuid.UUID]struct{}

// NewSet builds an empty authorization set.
func NewSet() Set {
	return make(Set)
}

// Grant marks a company as authorized.
func (s Set) Grant(id uuid.UUID) {
	s[id] = struct{}{}
}

// Has reports whether a company is authorized.
func (s Set) Has(id uuid.UUID) bool {
	if s == nil {
		return false
	}
	_, ok := s[id]
	return ok
}

// FromTokens builds a Set from presented tokens. Invalid tokens are
// skipped rather than rejected: the caller just loses access to that
// company, matching how a stale browser flag behaved.
func FromTokens(m *TokenManager, tokens []string) Set {
	set := NewSet()
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if id, err := m.Verify(tok); err == nil {
			set.Grant(id)
		}
	}
	return set
}
