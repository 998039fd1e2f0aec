package app

import (
	"os"
	"strconv"
	"time"

	"github.com/quillpost/quillpost/pkg/secretx"
)

type Config struct {
	BaseURL string // Required: public base URL used in confirmation links

	DatabaseFile string        // Optional: path to SQLite database file (default: ./newsletter.db)
	RedisAddr    string        // Optional: redis address for shared sessions; empty keeps sessions in memory
	SessionTTL   time.Duration // Optional: idle session lifetime (default: 24h)

	EmailBaseURL   string         // Required: base URL of the Postmark-compatible email API
	EmailSender    string         // Required: From address for outgoing mail
	EmailAuthToken secretx.Secret // Required: email API server token
	EmailTimeout   time.Duration  // Optional: email API request timeout (default: 10s)

	HMACKey         secretx.Secret // Required: key for signed redirect query tags
	SignedRedirects bool           // Optional: use signed query errors instead of session flashes

	// AdminUsername/AdminPassword seed the first operator account when the
	// users table is empty.
	AdminUsername string
	AdminPassword secretx.Secret

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		BaseURL:      getEnvOrDefault("NEWSLETTER_BASE_URL", "http://localhost:8080"),
		DatabaseFile: getEnvOrDefault("NEWSLETTER_DATABASE_FILE", "newsletter.db"),
		RedisAddr:    os.Getenv("NEWSLETTER_REDIS_ADDR"),
		SessionTTL:   getEnvDurationOrDefault("NEWSLETTER_SESSION_TTL", 24*time.Hour),

		EmailBaseURL:   getEnvOrDefault("EMAIL_BASE_URL", "https://api.postmarkapp.com"),
		EmailSender:    os.Getenv("EMAIL_SENDER"),
		EmailAuthToken: secretx.New(os.Getenv("EMAIL_AUTH_TOKEN")),
		EmailTimeout:   getEnvDurationOrDefault("EMAIL_TIMEOUT", 10*time.Second),

		HMACKey:         secretx.New(os.Getenv("NEWSLETTER_HMAC_KEY")),
		SignedRedirects: getEnvBoolOrDefault("NEWSLETTER_SIGNED_REDIRECTS", false),

		AdminUsername: os.Getenv("NEWSLETTER_ADMIN_USERNAME"),
		AdminPassword: secretx.New(os.Getenv("NEWSLETTER_ADMIN_PASSWORD")),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
