package helpers

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by VerifyToken for any token that cannot be
// accepted: bad signature, expired, missing subject, or revoked.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager handles generation, validation and revocation of JWT tokens.
// The signing secret and the revoked set are process-wide state owned by
// the manager; revocation is best-effort and lost on restart.
type TokenManager struct {
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	mu      sync.RWMutex
	revoked map[string]struct{}
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		revoked:    make(map[string]struct{}),
	}
}

// Claims is the payload embedded in every token. The registered Subject
// field carries the username.
type Claims struct {
	jwt.RegisteredClaims
}

// Username returns the identity the token was issued for.
func (c *Claims) Username() string { return c.Subject }

// IssueToken signs a token for subject expiring at now + ttl.
func (m *TokenManager) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.secret)
	return s, exp, err
}

// GenerateAccessToken issues a short-lived token (minutes).
func (m *TokenManager) GenerateAccessToken(subject string) (string, time.Time, error) {
	return m.IssueToken(subject, m.AccessTTL)
}

// GenerateRefreshToken issues a long-lived token (days).
func (m *TokenManager) GenerateRefreshToken(subject string) (string, time.Time, error) {
	return m.IssueToken(subject, m.RefreshTTL)
}

// VerifyToken parses and validates a token. It fails with ErrInvalidToken
// when the signature does not match, the expiry has passed, the subject
// claim is absent, or the token has been revoked.
func (m *TokenManager) VerifyToken(tokenStr string) (*Claims, error) {
	if m.IsRevoked(tokenStr) {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Revoke adds the token to the revoked set. Revoking an already revoked
// token is a no-op.
func (m *TokenManager) Revoke(tokenStr string) {
	m.mu.Lock()
	m.revoked[tokenStr] = struct{}{}
	m.mu.Unlock()
}

// IsRevoked reports whether the token has been revoked in this process.
func (m *TokenManager) IsRevoked(tokenStr string) bool {
	m.mu.RLock()
	_, ok := m.revoked[tokenStr]
	m.mu.RUnlock()
	return ok
}
