package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Mail transports understood by MAIL_TRANSPORT.
const (
	TransportLog     = "log"
	TransportSMTP    = "smtp"
	TransportWebhook = "webhook"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrationsPath string

	// Bulletin run
	BatchSize            int
	DigestDelta          time.Duration
	ReconcileConcurrency int

	// Background scheduler
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	RunOnStart        bool

	// Mail
	MailTransport  string
	MailFrom       string
	SMTPAddr       string
	SMTPUsername   string
	SMTPPassword   string
	MailWebhookURL string
	MailTimeout    time.Duration
	// MailRateLimit is the maximum digests per second; 0 disables the limit.
	MailRateLimit int
	PublicBaseURL string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 5*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL:    dbURL,
		DBMaxConns:     int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:     int32(getInt("DB_MIN_CONNS", 5)),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

		BatchSize:            getInt("BULLETIN_BATCH_SIZE", 10),
		DigestDelta:          getDuration("BULLETIN_DIGEST_DELTA", 165*time.Hour+36*time.Minute),
		ReconcileConcurrency: getInt("RECONCILE_CONCURRENCY", 25),

		SchedulerEnabled:  getBool("BULLETIN_SCHEDULER_ENABLED", true),
		SchedulerInterval: getDuration("BULLETIN_INTERVAL", 168*time.Hour),
		RunOnStart:        getBool("BULLETIN_RUN_ON_START", false),

		MailTransport:  getEnv("MAIL_TRANSPORT", TransportLog),
		MailFrom:       getEnv("MAIL_FROM", "Octopus <no-reply@octopus.ac>"),
		SMTPAddr:       os.Getenv("SMTP_ADDR"),
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		MailWebhookURL: os.Getenv("MAIL_WEBHOOK_URL"),
		MailTimeout:    getDuration("MAIL_TIMEOUT", 10*time.Second),
		MailRateLimit:  getInt("MAIL_RATE_LIMIT", 10),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "https://www.octopus.ac"),
	}

	if err := cfg.validateMail(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validateMail() error {
	switch c.MailTransport {
	case TransportLog:
	case TransportSMTP:
		if c.SMTPAddr == "" {
			return fmt.Errorf("SMTP_ADDR is required when MAIL_TRANSPORT=smtp")
		}
	case TransportWebhook:
		if c.MailWebhookURL == "" {
			return fmt.Errorf("MAIL_WEBHOOK_URL is required when MAIL_TRANSPORT=webhook")
		}
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
