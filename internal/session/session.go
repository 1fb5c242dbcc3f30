// Package session wraps provider-issued access tokens in self-contained
// session tokens, so the HTTP edge can hand browsers one cookie format
// regardless of which provider produced the inner token.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/splitsheet/splitsheet/internal/common"
)

// Session is the decoded content of a session token.
type Session struct {
	ProviderToken string    `json:"providerToken"`
	IssuedAt      time.Time `json:"issuedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Valid reports whether the session has not expired yet.
func (s *Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

type claims struct {
	jwt.RegisteredClaims
	ProviderToken string `json:"providerToken"`
}

// Manager issues and validates HS256-signed session tokens.
type Manager struct {
	secretKey []byte
	validity  time.Duration
}

func NewManager(secretKey []byte, validity time.Duration) *Manager {
	return &Manager{secretKey: secretKey, validity: validity}
}

// Issue wraps the provider token in a signed session token.
func (m *Manager) Issue(providerToken string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
		},
		ProviderToken: providerToken,
	})

	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature and expiry and returns the decoded
// session. Expired tokens fail with common.ErrTokenExpired, everything else
// with common.ErrInvalidToken.
func (m *Manager) Validate(tokenString string) (*Session, error) {
	parsed := &claims{}

	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return &Session{
		ProviderToken: parsed.ProviderToken,
		IssuedAt:      parsed.IssuedAt.Time,
		ExpiresAt:     parsed.ExpiresAt.Time,
	}, nil
}
