// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spade Contributors

package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token constants fixed for the deployment.
const (
	TokenAudience = "spadementalhealth.com"
	TokenIssuer   = "auth.spadementalhealth.com"

	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 14 * 24 * time.Hour
)

// Claims are the registered JWT claims carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// TokenManager issues and validates HS256 access and refresh tokens.
// It is the only component that encodes or decodes tokens.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	now           func() time.Time
}

// NewTokenManager creates a TokenManager. The secrets must be non-empty and distinct.
func NewTokenManager(accessSecret, refreshSecret []byte, opts ...TokenOption) (*TokenManager, error) {
	if len(accessSecret) == 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").Errorf("access token secret is required")
	}
	if len(refreshSecret) == 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").Errorf("refresh token secret is required")
	}
	if bytes.Equal(accessSecret, refreshSecret) {
		return nil, oops.Code("AUTH_TOKEN_CONFIG").Errorf("access and refresh token secrets must differ")
	}

	m := &TokenManager{
		accessSecret:  bytes.Clone(accessSecret),
		refreshSecret: bytes.Clone(refreshSecret),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AccessTTL returns the lifetime of access tokens.
func (m *TokenManager) AccessTTL() time.Duration { return AccessTokenTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (m *TokenManager) RefreshTTL() time.Duration { return RefreshTokenTTL }

// IssueAccess mints an access token for subject.
func (m *TokenManager) IssueAccess(subject string) (string, error) {
	return m.issue(subject, AccessTokenTTL, m.accessSecret)
}

// IssueRefresh mints a refresh token for subject.
func (m *TokenManager) IssueRefresh(subject string) (string, error) {
	return m.issue(subject, RefreshTokenTTL, m.refreshSecret)
}

// DecodeAccess validates an access token and returns its claims.
func (m *TokenManager) DecodeAccess(token string) (*Claims, error) {
	return m.decode(token, m.accessSecret)
}

// DecodeRefresh validates a refresh token and returns its claims.
func (m *TokenManager) DecodeRefresh(token string) (*Claims, error) {
	return m.decode(token, m.refreshSecret)
}

func (m *TokenManager) issue(subject string, ttl time.Duration, secret []byte) (string, error) {
	if subject == "" {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("token subject cannot be empty")
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   subject,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").Wrap(err)
	}
	return signed, nil
}

// decode collapses every failure into the same invalid-token error so callers
// cannot learn why a token was rejected.
func (m *TokenManager) decode(token string, secret []byte) (*Claims, error) {
	if token == "" {
		return nil, errInvalidToken()
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(TokenAudience),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, errInvalidToken()
	}
	return claims, nil
}

// HashToken returns the hex-encoded SHA-256 digest stored in place of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
