package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomgandolfo2/ESLworksheets/internal/security"
)

// Routes bundles the handlers and limiters the router mounts
type Routes struct {
	Middleware *Middleware
	Worksheets *WorksheetHandler
	Admin      *AdminHandler
	Contact    *ContactHandler
	Auth       *AuthHandler

	ContactLimiter security.Limiter
	AuthLimiter    security.Limiter

	// Files serves locally stored worksheet files under FilesPrefix; nil when files live in S3
	Files       http.Handler
	FilesPrefix string
}

// NewRouter registers all HTTP routes and the middleware stack
func NewRouter(rt Routes) http.Handler {
	m := rt.Middleware

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(m.Logging)
	r.Use(middleware.Recoverer)
	r.Use(m.Authenticate)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	// Public routes
	r.Get("/worksheets", rt.Worksheets.List)
	r.Get("/ratings", rt.Worksheets.Ratings)
	r.Get("/me", rt.Auth.Me)
	r.Post("/logout", rt.Auth.Logout)

	r.Group(func(r chi.Router) {
		if rt.AuthLimiter != nil {
			r.Use(m.RateLimit(rt.AuthLimiter))
		}
		r.Get("/auth/{provider}/start", rt.Auth.StartOAuth)
	})
	r.Get("/auth/{provider}/callback", rt.Auth.OAuthCallback)

	r.Group(func(r chi.Router) {
		if rt.ContactLimiter != nil {
			r.Use(m.RateLimit(rt.ContactLimiter))
		}
		r.Post("/contact", rt.Contact.Send)
	})

	// Signed-in routes
	r.Group(func(r chi.Router) {
		r.Use(m.RequireAuth)
		r.Post("/download", rt.Worksheets.Download)
		r.Get("/downloaded-worksheets", rt.Worksheets.Downloads)
		r.Post("/rate", rt.Worksheets.Rate)
	})

	// Admin routes
	r.With(m.RequireAdminPage).Get("/upload", rt.Admin.ShowUpload)
	r.With(m.RequireAdmin).Post("/upload", rt.Admin.Upload)

	if rt.Files != nil && rt.FilesPrefix != "" {
		r.Handle(rt.FilesPrefix+"/*", http.StripPrefix(rt.FilesPrefix+"/", rt.Files))
	}

	return r
}
