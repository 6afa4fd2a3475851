package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/config"
	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/handlers"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
	"github.com/tomgandolfo2/ESLworksheets/internal/security"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
	"github.com/tomgandolfo2/ESLworksheets/internal/storage"
)

const filesPrefix = "/files"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info(ctx, "database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info(ctx, "migrations completed")

	templates, err := loadTemplates(cfg.TemplatesPath)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	keys, err := security.DeriveKeys(cfg.SessionSecret)
	if err != nil {
		return err
	}
	sessions := security.NewSessionManager(keys.Session, cfg.SessionDuration)
	csrf := security.NewCSRFGenerator(keys.CSRF)

	files, filesHandler, err := openFileStore(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info(ctx, "file storage ready", "backend", cfg.StorageBackend)

	contactLimiter, authLimiter, closeLimiters, err := newLimiters(cfg)
	if err != nil {
		return err
	}
	defer closeLimiters()

	// Services
	catalog := service.NewCatalogService(repository.NewWorksheetRepository(db), files, log)
	ledger := service.NewLedgerService(db, log)
	auth := service.NewAuthService(db, cfg.AdminEmails, log)
	email, err := service.NewEmailService(ctx, service.EmailConfig{
		AWSRegion:    cfg.AWSRegion,
		FromEmail:    cfg.SESFromEmail,
		FromName:     cfg.SESFromName,
		ContactEmail: cfg.ContactEmail,
		Debug:        cfg.EmailDebug,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize email: %w", err)
	}
	if !email.IsEnabled() {
		log.Warn(ctx, "contact email disabled: SES_FROM_EMAIL not set")
	}

	oauthProviders := map[string]handlers.OAuthProvider{}
	if cfg.GoogleClientID != "" {
		oauthProviders["google"] = handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret)
	} else {
		log.Warn(ctx, "google sign-in disabled: GOOGLE_CLIENT_ID not set")
	}
	redirectBase := cfg.OAuthRedirectBaseURL
	if redirectBase == "" {
		redirectBase = cfg.AppBaseURL
	}

	router := handlers.NewRouter(handlers.Routes{
		Middleware:     handlers.NewMiddleware(sessions, log),
		Worksheets:     handlers.NewWorksheetHandler(catalog, ledger, log),
		Admin:          handlers.NewAdminHandler(catalog, csrf, templates, cfg.UploadMaxSize, log),
		Contact:        handlers.NewContactHandler(email, log),
		Auth:           handlers.NewAuthHandler(auth, sessions, oauthProviders, redirectBase, log),
		ContactLimiter: contactLimiter,
		AuthLimiter:    authLimiter,
		Files:          filesHandler,
		FilesPrefix:    filesPrefix,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(log.Slog().Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting", "addr", server.Addr, "base_url", cfg.AppBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info(ctx, "server shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openFileStore returns the configured store and, for local storage, the handler that serves it
func openFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, http.Handler, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return store, nil, nil
	case "local", "":
		store, err := storage.NewLocalStore(cfg.LocalStoragePath, filesPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Handler(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}

// newLimiters builds the contact and sign-in limiters, shared through Redis when configured
func newLimiters(cfg *config.Config) (contact, auth security.Limiter, closeFn func(), err error) {
	if cfg.RedisURL != "" {
		client, err := security.ConnectRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		contact = security.NewRedisLimiter(client, "contact", cfg.ContactRateLimit, cfg.ContactRateWindow)
		auth = security.NewRedisLimiter(client, "auth", 10, time.Minute)
		return contact, auth, func() { _ = client.Close() }, nil
	}

	contactRL := security.NewRateLimiter(cfg.ContactRateLimit, cfg.ContactRateWindow)
	authRL := security.NewRateLimiter(10, time.Minute)
	return contactRL, authRL, func() {
		contactRL.Close()
		authRL.Close()
	}, nil
}

// loadTemplates parses every page template in templatesPath
func loadTemplates(templatesPath string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"skillLabel": skillLabel,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseGlob(filepath.Join(templatesPath, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return tmpl, nil
}

func skillLabel(s models.Skill) string {
	if s == models.SkillUseOfEnglish {
		return "Use of English"
	}
	str := string(s)
	if str == "" {
		return ""
	}
	return strings.ToUpper(str[:1]) + str[1:]
}
