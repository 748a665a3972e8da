package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"deals-portal/utils"

	"github.com/joho/godotenv"
)

// Email providers accepted by EMAIL_PROVIDER
const (
	EmailProviderLog      = "log"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSMTP     = "smtp"
)

// Config is the process configuration read from the environment
type Config struct {
	Port     string
	LogLevel string

	JWTSecret string

	MongoURI      string
	MongoDatabase string

	RedisURL   string
	RedisQueue string

	EmailProvider    string
	EmailFromName    string
	EmailFromAddress string
	EmailTimeout     time.Duration
	EmailBrand       string
	PortalURL        string
	SendGridAPIKey   string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPass         string

	AWSRegion string
	S3Bucket  string

	NotifyWorkers    int
	NotifyQueueSize  int
	EnforceCloseDate bool
}

// Load reads a .env file when present, then the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.Info("no .env file found, using system environment variables", nil)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and checks it
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	var errs []string
	getInt := func(key string, fallback int) int {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Sprintf("%s: %q is not a non-negative integer", key, raw))
			return fallback
		}
		return n
	}
	getBool := func(key string, fallback bool) bool {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
			return fallback
		}
		return b
	}
	getDuration := func(key string, fallback time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return fallback
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf("%s: %q is not a positive duration", key, raw))
			return fallback
		}
		return d
	}

	cfg := Config{
		Port:             get("PORT", "8080"),
		LogLevel:         get("LOG_LEVEL", "info"),
		JWTSecret:        get("JWT_SECRET", ""),
		MongoURI:         get("MONGO_URI", ""),
		MongoDatabase:    get("MONGO_DATABASE", "deals"),
		RedisURL:         get("REDIS_URL", ""),
		RedisQueue:       get("REDIS_QUEUE", "deals:bid-events"),
		EmailProvider:    strings.ToLower(get("EMAIL_PROVIDER", EmailProviderLog)),
		EmailFromName:    get("EMAIL_FROM_NAME", "Deals Portal"),
		EmailFromAddress: get("EMAIL_FROM_ADDRESS", "no-reply@deals.local"),
		EmailTimeout:     getDuration("EMAIL_TIMEOUT", 10*time.Second),
		EmailBrand:       get("EMAIL_BRAND", "Deals Portal"),
		PortalURL:        get("PORTAL_URL", "http://localhost:8080"),
		SendGridAPIKey:   get("SENDGRID_API_KEY", ""),
		SMTPHost:         get("SMTP_HOST", ""),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUser:         get("SMTP_USER", ""),
		SMTPPass:         get("SMTP_PASS", ""),
		AWSRegion:        get("AWS_REGION", "us-east-1"),
		S3Bucket:         get("S3_BUCKET", ""),
		NotifyWorkers:    getInt("NOTIFY_WORKERS", 4),
		NotifyQueueSize:  getInt("NOTIFY_QUEUE_SIZE", 256),
		EnforceCloseDate: getBool("ENFORCE_CLOSE_DATE", true),
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET not set")
	}
	switch cfg.EmailProvider {
	case EmailProviderLog:
	case EmailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			errs = append(errs, "SENDGRID_API_KEY not set")
		}
	case EmailProviderSMTP:
		if cfg.SMTPHost == "" {
			errs = append(errs, "SMTP_HOST not set")
		}
	default:
		errs = append(errs, fmt.Sprintf("EMAIL_PROVIDER: unknown provider %q", cfg.EmailProvider))
	}
	if cfg.NotifyWorkers == 0 {
		errs = append(errs, "NOTIFY_WORKERS must be at least 1")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
