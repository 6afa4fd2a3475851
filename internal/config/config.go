package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort string
	AppBaseURL string
	LogFormat  string
	LogLevel   string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionSecret   string
	SessionDuration time.Duration
	AdminEmails     []string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	TemplatesPath string
	UploadMaxSize int64

	StorageBackend   string
	LocalStoragePath string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3PublicBaseURL  string
	S3UsePathStyle   bool

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	ContactEmail string
	EmailDebug   bool

	RedisURL          string
	ContactRateLimit  int
	ContactRateWindow time.Duration
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE
type fileConfig struct {
	Server struct {
		Port       string `yaml:"port"`
		BaseURL    string `yaml:"base_url"`
		LogFormat  string `yaml:"log_format"`
		LogLevel   string `yaml:"log_level"`
		Templates  string `yaml:"templates_path"`
		UploadSize int64  `yaml:"upload_max_size"`
	} `yaml:"server"`
	Database struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
		URL  string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		SessionSecret      string        `yaml:"session_secret"`
		SessionDuration    time.Duration `yaml:"session_duration"`
		AdminEmails        []string      `yaml:"admin_emails"`
		GoogleClientID     string        `yaml:"google_client_id"`
		GoogleClientSecret string        `yaml:"google_client_secret"`
		RedirectBaseURL    string        `yaml:"redirect_base_url"`
	} `yaml:"auth"`
	Storage struct {
		Backend       string `yaml:"backend"`
		LocalPath     string `yaml:"local_path"`
		Bucket        string `yaml:"bucket"`
		Region        string `yaml:"region"`
		Endpoint      string `yaml:"endpoint"`
		AccessKey     string `yaml:"access_key"`
		SecretKey     string `yaml:"secret_key"`
		PublicBaseURL string `yaml:"public_base_url"`
		UsePathStyle  bool   `yaml:"use_path_style"`
	} `yaml:"storage"`
	Email struct {
		Region       string `yaml:"region"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		ContactEmail string `yaml:"contact_email"`
		Debug        bool   `yaml:"debug"`
	} `yaml:"email"`
	RateLimit struct {
		RedisURL      string        `yaml:"redis_url"`
		ContactLimit  int           `yaml:"contact_limit"`
		ContactWindow time.Duration `yaml:"contact_window"`
	} `yaml:"rate_limit"`
}

// Load reads configuration from a .env file, an optional YAML file and environment
// variables, in increasing order of precedence, on top of sensible defaults
func Load() (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:        "8080",
		AppBaseURL:        "http://localhost:8080",
		LogFormat:         "text",
		LogLevel:          "info",
		DatabaseType:      "sqlite",
		DatabasePath:      "./worksheets.db",
		SessionDuration:   30 * 24 * time.Hour,
		TemplatesPath:     "./templates",
		UploadMaxSize:     20 * 1024 * 1024, // 20MB
		StorageBackend:    "local",
		LocalStoragePath:  "./uploads",
		S3Region:          "us-east-1",
		AWSRegion:         "us-east-1",
		SESFromName:       "ESL Worksheets",
		ContactRateLimit:  5,
		ContactRateWindow: time.Hour,
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.ServerPort, f.Server.Port)
	setString(&c.AppBaseURL, f.Server.BaseURL)
	setString(&c.LogFormat, f.Server.LogFormat)
	setString(&c.LogLevel, f.Server.LogLevel)
	setString(&c.TemplatesPath, f.Server.Templates)
	if f.Server.UploadSize > 0 {
		c.UploadMaxSize = f.Server.UploadSize
	}

	setString(&c.DatabaseType, f.Database.Type)
	setString(&c.DatabasePath, f.Database.Path)
	setString(&c.DatabaseURL, f.Database.URL)

	setString(&c.SessionSecret, f.Auth.SessionSecret)
	if f.Auth.SessionDuration > 0 {
		c.SessionDuration = f.Auth.SessionDuration
	}
	if len(f.Auth.AdminEmails) > 0 {
		c.AdminEmails = normalizeEmails(f.Auth.AdminEmails)
	}
	setString(&c.GoogleClientID, f.Auth.GoogleClientID)
	setString(&c.GoogleClientSecret, f.Auth.GoogleClientSecret)
	setString(&c.OAuthRedirectBaseURL, f.Auth.RedirectBaseURL)

	setString(&c.StorageBackend, f.Storage.Backend)
	setString(&c.LocalStoragePath, f.Storage.LocalPath)
	setString(&c.S3Bucket, f.Storage.Bucket)
	setString(&c.S3Region, f.Storage.Region)
	setString(&c.S3Endpoint, f.Storage.Endpoint)
	setString(&c.S3AccessKey, f.Storage.AccessKey)
	setString(&c.S3SecretKey, f.Storage.SecretKey)
	setString(&c.S3PublicBaseURL, f.Storage.PublicBaseURL)
	c.S3UsePathStyle = c.S3UsePathStyle || f.Storage.UsePathStyle

	setString(&c.AWSRegion, f.Email.Region)
	setString(&c.SESFromEmail, f.Email.FromEmail)
	setString(&c.SESFromName, f.Email.FromName)
	setString(&c.ContactEmail, f.Email.ContactEmail)
	c.EmailDebug = c.EmailDebug || f.Email.Debug

	setString(&c.RedisURL, f.RateLimit.RedisURL)
	if f.RateLimit.ContactLimit > 0 {
		c.ContactRateLimit = f.RateLimit.ContactLimit
	}
	if f.RateLimit.ContactWindow > 0 {
		c.ContactRateWindow = f.RateLimit.ContactWindow
	}

	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.TemplatesPath = getEnv("TEMPLATES_PATH", c.TemplatesPath)
	c.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", c.UploadMaxSize)

	c.DatabaseType = getEnv("DB_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionDuration = getEnvDuration("SESSION_DURATION", c.SessionDuration)
	if admins := os.Getenv("ADMIN_EMAILS"); admins != "" {
		c.AdminEmails = normalizeEmails(strings.Split(admins, ","))
	}
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.LocalStoragePath = getEnv("LOCAL_STORAGE_PATH", c.LocalStoragePath)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", c.S3PublicBaseURL)
	c.S3UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", c.S3UsePathStyle)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.ContactEmail = getEnv("CONTACT_EMAIL", c.ContactEmail)
	c.EmailDebug = getEnvBool("EMAIL_DEBUG", c.EmailDebug)

	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.ContactRateLimit = int(getEnvInt64("CONTACT_RATE_LIMIT", int64(c.ContactRateLimit)))
	c.ContactRateWindow = getEnvDuration("CONTACT_RATE_WINDOW", c.ContactRateWindow)
}

func (c *Config) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET must be set")
	}
	switch c.StorageBackend {
	case "local":
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.StorageBackend)
	}
	return nil
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
