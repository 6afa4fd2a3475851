package handlers

import (
	"net/http"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/security"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	sessions             *security.SessionManager
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	log                  logging.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, sessions *security.SessionManager, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, log logging.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		sessions:             sessions,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		log:                  log,
	}
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if identity := GetIdentityFromContext(r.Context()); identity != nil {
		h.log.Info(r.Context(), "user signed out", "user", identity.UserID)
	}

	// Clear cookie
	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))

	// Redirect to home
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Me returns the identity of the current session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
