package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/storage/sqlite"
	"github.com/warepick/warepick/internal/types"
)

func testManager() *Manager {
	return NewManager("test-secret-key-16ch", 30*time.Minute, 7*24*time.Hour)
}

func testUser() *types.User {
	return &types.User{ID: "u1", Username: "alice", Role: types.RoleRequester, Active: true}
}

func TestPasswordHashing(t *testing.T) {
	m := testManager()
	hash, err := m.HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, m.CheckPassword(hash, "admin123"))
	assert.False(t, m.CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	m := testManager()
	pair, err := m.IssueTokens(testUser())
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, 1800, pair.ExpiresIn)

	claims, err := m.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, string(types.RoleRequester), claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)

	claims, err = m.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
}

// A refresh token is not accepted where an access token is expected,
// and vice versa.
func TestTokenTypeConfusion(t *testing.T) {
	m := testManager()
	pair, err := m.IssueTokens(testUser())
	require.NoError(t, err)

	_, err = m.VerifyAccess(pair.RefreshToken)
	assertCode(t, err, apperr.CodeTokenInvalid)

	_, err = m.VerifyRefresh(pair.AccessToken)
	assertCode(t, err, apperr.CodeTokenInvalid)
}

func TestExpiredToken(t *testing.T) {
	m := testManager()
	pair, err := m.IssueTokens(testUser())
	require.NoError(t, err)

	// Move the clock past the access TTL.
	m.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	_, err = m.VerifyAccess(pair.AccessToken)
	assertCode(t, err, apperr.CodeTokenExpired)
}

func TestGarbageToken(t *testing.T) {
	m := testManager()
	_, err := m.VerifyAccess("not.a.token")
	assertCode(t, err, apperr.CodeTokenInvalid)

	// Token signed with a different secret.
	other := NewManager("another-secret-key-x", time.Minute, time.Hour)
	pair, err := other.IssueTokens(testUser())
	require.NoError(t, err)
	_, err = m.VerifyAccess(pair.AccessToken)
	assertCode(t, err, apperr.CodeTokenInvalid)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()
	m := testManager()

	require.NoError(t, EnsureDefaultAdmin(ctx, store, m, "admin", "admin123", nil))

	admin, err := store.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, admin.Role)
	assert.True(t, m.CheckPassword(admin.PasswordHash, "admin123"))

	// Second run is a no-op.
	require.NoError(t, EnsureDefaultAdmin(ctx, store, m, "admin", "admin123", nil))
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "error = %v, want tagged %s", err, code)
	assert.Equal(t, code, appErr.Code)
}
