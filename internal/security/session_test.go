package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	keys, err := DeriveKeys("test-secret")
	require.NoError(t, err)
	return NewSessionManager(keys.Session, time.Hour)
}

func TestSessionManager_IssueAndParse(t *testing.T) {
	m := newTestSessionManager(t)
	identity := &models.Identity{UserID: "u1", Email: "t@example.com", Name: "Teacher", Role: models.RoleAdmin}

	token, issued, err := m.Issue(identity)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)
	assert.Equal(t, *identity, *got.Identity)
	assert.True(t, got.Identity.IsAdmin())
}

func TestSessionManager_RejectsBadTokens(t *testing.T) {
	m := newTestSessionManager(t)
	token, _, err := m.Issue(&models.Identity{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	other, err := DeriveKeys("another-secret")
	require.NoError(t, err)
	foreign, _, err := NewSessionManager(other.Session, time.Hour).Issue(&models.Identity{UserID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"tampered":  token[:len(token)-2] + "xx",
		"wrong key": foreign,
		"alg none":  unsigned,
		"truncated": strings.Join(strings.Split(token, ".")[:2], "."),
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	m := newTestSessionManager(t)
	start := time.Now()
	m.now = func() time.Time { return start }

	token, _, err := m.Issue(&models.Identity{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	m.now = func() time.Time { return start.Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_FromRequest(t *testing.T) {
	m := newTestSessionManager(t)
	token, _, err := m.Issue(&models.Identity{UserID: "u1", Role: models.RoleUser})
	require.NoError(t, err)

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		s, err := m.FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", s.Identity.UserID)
	})

	t.Run("bearer", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		s, err := m.FromRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "u1", s.Identity.UserID)
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		_, err := m.FromRequest(r)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestIssueRequiresIdentity(t *testing.T) {
	m := newTestSessionManager(t)
	_, _, err := m.Issue(nil)
	assert.Error(t, err)
	_, _, err = m.Issue(&models.Identity{})
	assert.Error(t, err)
}

func TestIsSecureRequest(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	assert.False(t, IsSecureRequest(plain))

	proxied := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, IsSecureRequest(proxied))

	direct := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	direct.TLS = &tls.ConnectionState{}
	assert.True(t, IsSecureRequest(direct))

	cookie := CreateSessionCookie(proxied, SessionCookieName, "v", time.Now().Add(time.Hour))
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	deleted := CreateDeleteCookie(plain, SessionCookieName)
	assert.Equal(t, -1, deleted.MaxAge)
}
