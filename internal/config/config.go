package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
)

type Config struct {
	MongoURI            string
	PostgresURI         string
	RedisURI            string
	Port                string
	FrontendURL         string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	Host                string // Raw HOST env (e.g. https://api.gatehouse.example)
	AllowedHost         string // Hostname only for strict host check (production only)
	Environment         string // ENV: production, development, etc.
	LogLevel            string

	FirebaseCredentialsFile string
	FirebaseProjectID       string
	PushConcurrency         int
	PushTimeout             time.Duration
	TokenRetention          time.Duration

	Timezone       string
	Location       *time.Location
	ExportDir      string
	ExportSchedule string
	ExportTimeout  time.Duration
	ExportS3Bucket string

	// loadErrs collects unparsable values so Validate can report all of them at once
	loadErrs []error
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	cfg := &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/visitors")),
		PostgresURI:         getEnv("POSTGRES_URI", "postgres://localhost:5432/visitors?sslmode=disable"),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),

		Timezone:       getEnv("TIMEZONE", "Asia/Kolkata"),
		ExportDir:      getEnv("EXPORT_DIR", "."),
		ExportSchedule: getEnv("EXPORT_SCHEDULE", "0 18 * * *"),
		ExportS3Bucket: getEnv("EXPORT_S3_BUCKET", ""),
	}

	cfg.PushConcurrency = cfg.intEnv("PUSH_CONCURRENCY", 16)
	cfg.PushTimeout = cfg.durationEnv("PUSH_TIMEOUT", 10*time.Second)
	cfg.ExportTimeout = cfg.durationEnv("EXPORT_TIMEOUT", 60*time.Second)
	cfg.TokenRetention = time.Duration(cfg.intEnv("TOKEN_RETENTION_DAYS", 90)) * 24 * time.Hour

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		cfg.loadErrs = append(cfg.loadErrs, fmt.Errorf("TIMEZONE %q: %w", cfg.Timezone, err))
		loc = time.UTC
	}
	cfg.Location = loc

	return cfg
}

// Validate reports every configuration problem as a single ConfigurationError.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	if c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
		errs = append(errs, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required"))
	}
	if c.IsProduction() && c.FirebaseCredentialsFile == "" {
		errs = append(errs, errors.New("FIREBASE_CREDENTIALS_FILE is required in production"))
	}
	if c.PushConcurrency < 1 {
		errs = append(errs, fmt.Errorf("PUSH_CONCURRENCY must be at least 1, got %d", c.PushConcurrency))
	}
	if c.PushTimeout <= 0 {
		errs = append(errs, errors.New("PUSH_TIMEOUT must be positive"))
	}
	if c.ExportTimeout <= 0 {
		errs = append(errs, errors.New("EXPORT_TIMEOUT must be positive"))
	}
	if c.TokenRetention <= 0 {
		errs = append(errs, errors.New("TOKEN_RETENTION_DAYS must be positive"))
	}

	if len(errs) == 0 {
		return nil
	}
	return apperrors.Configuration("invalid configuration", errors.Join(errs...))
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// FirebaseEnabled reports whether push notifications go through FCM.
func (c *Config) FirebaseEnabled() bool {
	return c.FirebaseCredentialsFile != ""
}

func (c *Config) intEnv(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return n
}

// durationEnv accepts Go durations ("10s") or a bare number of seconds.
func (c *Config) durationEnv(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}

func hostname(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
