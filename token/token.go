// Package token issues and parses the signed access and refresh tokens used
// by the engine. Both kinds are HS256 JWTs carrying the user id, session id,
// and a typ claim that keeps one kind from being accepted in place of the
// other. Refresh tokens additionally carry a unique jti so every issued
// token hashes to a distinct server-side record.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks short-lived stateless tokens.
	KindAccess Kind = "access"
	// KindRefresh marks long-lived single-use tokens.
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalidToken covers a bad signature, malformed payload, expiry, or
	// a kind mismatch.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload carried by both token kinds.
type Claims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	Role      string `json:"role,omitempty"`
	TokenKind Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// Config holds the signing material and lifetimes for a [Manager].
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Manager signs and verifies tokens with a single symmetric secret.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Manager{config: cfg}, nil
}

// IssueAccess signs an access token for the given user, session, and role.
func (m *Manager) IssueAccess(userID, sessionID, role string) (string, error) {
	return m.sign(Claims{
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		TokenKind: KindAccess,
	}, m.config.AccessTTL)
}

// IssueRefresh signs a refresh token for the given user and session. The
// embedded jti makes every refresh token unique even within one second.
func (m *Manager) IssueRefresh(userID, sessionID string) (string, error) {
	return m.sign(Claims{
		UserID:    userID,
		SessionID: sessionID,
		TokenKind: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: uuid.NewString(),
		},
	}, m.config.RefreshTTL)
}

func (m *Manager) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Issuer = m.config.Issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies the signature, expiry, and kind of raw. Any failure maps to
// [ErrInvalidToken]; callers never see library internals.
func (m *Manager) Parse(raw string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return m.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenKind != kind || claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshTTL exposes the configured refresh lifetime so the server-side
// record can expire in step with the token itself.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}
