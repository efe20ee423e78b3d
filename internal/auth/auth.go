// Package auth handles password hashing and JWT issuance and
// verification for the API.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/storage"
	"github.com/warepick/warepick/internal/types"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload: the user id in sub plus username, role,
// and token type.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the login/refresh response payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Manager signs and verifies tokens and hashes passwords.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewManager creates a token manager with the given signing secret and
// lifetimes.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// HashPassword hashes a plaintext password with bcrypt
func (m *Manager) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a plaintext password against a bcrypt hash
func (m *Manager) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueTokens creates an access/refresh token pair for a user
func (m *Manager) IssueTokens(user *types.User) (*TokenPair, error) {
	access, err := m.sign(user, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(user, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(m.accessTTL.Seconds()),
	}, nil
}

func (m *Manager) sign(user *types.User, tokenType string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		Type:     tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccess validates an access token and returns its claims
func (m *Manager) VerifyAccess(token string) (*Claims, error) {
	return m.verify(token, TokenTypeAccess)
}

// VerifyRefresh validates a refresh token and returns its claims
func (m *Manager) VerifyRefresh(token string) (*Claims, error) {
	return m.verify(token, TokenTypeRefresh)
}

func (m *Manager) verify(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired()
		}
		return nil, apperr.TokenInvalid()
	}
	if !parsed.Valid || claims.Type != wantType {
		return nil, apperr.TokenInvalid()
	}
	return claims, nil
}

// EnsureDefaultAdmin inserts the bootstrap admin account iff no active
// admin exists. Idempotent across restarts.
func EnsureDefaultAdmin(ctx context.Context, store storage.Storage, m *Manager, username, password string, logger *zap.Logger) error {
	count, err := store.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := m.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Role:         types.RoleAdmin,
		Active:       true,
		PasswordHash: hash,
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		return err
	}
	if logger != nil {
		logger.Warn("default admin created, change the password immediately",
			zap.String("username", username))
	}
	return nil
}
