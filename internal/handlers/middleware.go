package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	IdentityContextKey ContextKey = "identity"
	SessionContextKey  ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	sessions *security.SessionManager
	log      logging.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(sessions *security.SessionManager, log logging.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		log:      log,
	}
}

// Authenticate resolves the session, if any, and stores the caller's identity
// in the request context. Requests without a valid session pass through anonymously.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.sessions.FromRequest(r)
		if err != nil {
			// Clear a stale cookie so the browser stops sending it
			if c, cerr := r.Cookie(security.SessionCookieName); cerr == nil && c.Value != "" {
				http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		ctx = context.WithValue(ctx, IdentityContextKey, session.Identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects requests without a session
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetIdentityFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without a session (401) or without the admin role (403)
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentityFromContext(r.Context())
		if identity == nil {
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		if !identity.IsAdmin() {
			m.log.Warn(r.Context(), "admin route denied", "user", identity.UserID, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminPage sends anyone who is not an admin back to the home page
func (m *Middleware) RequireAdminPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetIdentityFromContext(r.Context()).IsAdmin() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit allows each client IP a limited number of requests per window.
// If the limiter store is unavailable the request is let through.
func (m *Middleware) RateLimit(limiter security.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := security.GetClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				m.log.Error(r.Context(), "rate limiter unavailable", "error", err)
				allowed = true
			}
			if !allowed {
				m.log.Warn(r.Context(), "rate limit exceeded", "ip", ip, "path", r.URL.Path)
				writeError(w, http.StatusTooManyRequests, ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Call next handler
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.log.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetIdentityFromContext retrieves the caller's identity from the request context
func GetIdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetSessionFromContext retrieves the verified session from the request context
func GetSessionFromContext(ctx context.Context) *security.Session {
	session, ok := ctx.Value(SessionContextKey).(*security.Session)
	if !ok {
		return nil
	}
	return session
}
