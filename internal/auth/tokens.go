// Package auth issues and verifies the JWT token pairs that
// authenticate every workout API request. Access tokens are short-lived;
// refresh tokens mint new access tokens without re-entering credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired token")
	ErrWrongTokenType = errors.New("wrong token type")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// TokenPair is what login/register hand back to the device.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 tokens with a shared secret.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssuePair mints an access/refresh token pair for the given user.
func (m *Manager) IssuePair(userID string) (TokenPair, error) {
	access, err := m.sign(userID, typeAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := m.sign(userID, typeRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("signing refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and mints a new access token.
func (m *Manager) Refresh(refreshToken string) (string, error) {
	userID, err := m.verify(refreshToken, typeRefresh)
	if err != nil {
		return "", err
	}
	access, err := m.sign(userID, typeAccess, m.accessTTL)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return access, nil
}

// VerifyAccess returns the user ID carried by a valid access token.
func (m *Manager) VerifyAccess(token string) (string, error) {
	return m.verify(token, typeAccess)
}

func (m *Manager) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

func (m *Manager) verify(token, wantType string) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if c.TokenType != wantType {
		return "", ErrWrongTokenType
	}
	if c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
