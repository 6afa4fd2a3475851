package security

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// SessionCookieName is the cookie carrying the signed session token
const SessionCookieName = "session"

// ErrInvalidSession is returned for a missing, malformed, tampered or expired token
var ErrInvalidSession = errors.New("invalid session")

// SessionClaims is the JWT payload. Subject holds the user ID and ID a per-session token id.
type SessionClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Session is a verified session token
type Session struct {
	ID        string
	Identity  *models.Identity
	ExpiresAt time.Time
}

// SessionManager issues and verifies HS256-signed session tokens
type SessionManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSessionManager creates a session manager signing with key; tokens live for ttl
func NewSessionManager(key []byte, ttl time.Duration) *SessionManager {
	return &SessionManager{key: key, ttl: ttl, now: time.Now}
}

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// Issue signs a new session token for identity
func (m *SessionManager) Issue(identity *models.Identity) (string, *Session, error) {
	if identity == nil || identity.UserID == "" {
		return "", nil, fmt.Errorf("identity is required")
	}

	now := m.now()
	session := &Session{
		ID:        GenerateSessionID(),
		Identity:  identity,
		ExpiresAt: now.Add(m.ttl),
	}

	claims := SessionClaims{
		Role:  identity.Role,
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, session, nil
}

// Parse verifies token and returns the session it carries
func (m *SessionManager) Parse(token string) (*Session, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	return &Session{
		ID: claims.ID,
		Identity: &models.Identity{
			UserID: claims.Subject,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
		},
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// FromRequest reads the session from the session cookie, falling back to an
// "Authorization: Bearer" header for non-browser clients.
func (m *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return m.Parse(cookie.Value)
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return m.Parse(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	}

	return nil, ErrInvalidSession
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	// Direct TLS connection
	if r.TLS != nil {
		return true
	}

	// Behind reverse proxy (nginx, Caddy, load balancer, etc.)
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}

	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates a session cookie with proper security flags
// The Secure flag is automatically set based on the request scheme (HTTPS detection)
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie creates a cookie for deletion with proper security flags
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
	}
}
