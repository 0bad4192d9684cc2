package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// JWT
	JWTKey            string
	JWTIssuer         string
	JWTAudience       string
	JWTExpiresMinutes int

	AI AIConfig

	// Email
	EmailProvider         string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	SMTPFromEmail         string
	SMTPFromName          string
	SMTPEnableSSL         bool
	SendGridAPIKey        string
	MailgunDomain         string
	MailgunAPIKey         string
	AWSRegion             string
	PasswordResetLinkBase string

	// Notifications
	NotifyMode   string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Rate limiting and caching
	RateLimitRPS   float64
	RateLimitBurst int
	RecapCacheTTL  time.Duration

	Sheets SheetsConfig
}

// SheetsConfig locates the spreadsheet fin-report appends recaps to.
type SheetsConfig struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type AIConfig struct {
	Provider        string
	BaseURL         string
	APIKey          string
	Model           string
	APIKeyHeader    string
	Organization    string
	UseBearerPrefix bool
	Temperature     float64
	MaxTokens       int
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		JWTKey:            getEnv("JWT_KEY", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "fintrack"),
		JWTAudience:       getEnv("JWT_AUDIENCE", "fintrack-clients"),
		JWTExpiresMinutes: getEnvInt("JWT_EXPIRES_MINUTES", 60),

		AI: AIConfig{
			Provider:        getEnv("AI_PROVIDER", "gemini"),
			BaseURL:         getEnv("AI_BASE_URL", ""),
			APIKey:          getEnv("AI_API_KEY", ""),
			Model:           getEnv("AI_MODEL", "gemini-2.0-flash"),
			APIKeyHeader:    getEnv("AI_API_KEY_HEADER", ""),
			Organization:    getEnv("AI_ORGANIZATION", ""),
			UseBearerPrefix: getEnvBool("AI_USE_BEARER", false),
			Temperature:     getEnvFloat("AI_TEMPERATURE", 0.2),
			MaxTokens:       getEnvInt("AI_MAX_TOKENS", 1024),
		},

		EmailProvider:         getEnv("EMAIL_PROVIDER", "smtp"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail:         getEnv("SMTP_FROM_EMAIL", ""),
		SMTPFromName:          getEnv("SMTP_FROM_NAME", "Fintrack"),
		SMTPEnableSSL:         getEnvBool("SMTP_ENABLE_SSL", true),
		SendGridAPIKey:        getEnv("SENDGRID_API_KEY", ""),
		MailgunDomain:         getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:         getEnv("MAILGUN_API_KEY", ""),
		AWSRegion:             getEnv("AWS_REGION", ""),
		PasswordResetLinkBase: getEnv("PASSWORD_RESET_LINK_BASE", ""),

		NotifyMode:   getEnv("NOTIFY_MODE", "direct"),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "password_reset"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		RecapCacheTTL:  getEnvDuration("RECAP_CACHE_TTL", 5*time.Minute),

		Sheets: SheetsConfig{
			SpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
			SheetName:          getEnv("GOOGLE_SHEET_NAME", "Recap"),
			ServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
			ServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		},
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	if c.JWTKey == "" {
		errors = append(errors, "JWT_KEY is required")
	} else if len(c.JWTKey) < 32 {
		errors = append(errors, "JWT_KEY must be at least 32 bytes")
	}
	if c.JWTExpiresMinutes < 1 {
		errors = append(errors, fmt.Sprintf("invalid JWT expiry %d: must be at least 1 minute", c.JWTExpiresMinutes))
	}

	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("invalid AI temperature %v: must be between 0 and 2", c.AI.Temperature))
	}
	if c.AI.MaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid AI max tokens %d: must be at least 1", c.AI.MaxTokens))
	}
	if c.AI.BaseURL != "" {
		if u, err := url.Parse(c.AI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid AI base URL '%s'", c.AI.BaseURL))
		}
	}

	validProviders := []string{"smtp", "sendgrid", "mailgun", "ses", "none"}
	if !contains(validProviders, c.EmailProvider) {
		errors = append(errors, fmt.Sprintf("invalid email provider '%s': must be one of %v", c.EmailProvider, validProviders))
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}

	validModes := []string{"direct", "queue"}
	if !contains(validModes, c.NotifyMode) {
		errors = append(errors, fmt.Sprintf("invalid notify mode '%s': must be one of %v", c.NotifyMode, validModes))
	}
	if c.NotifyMode == "queue" && c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required when notify mode is 'queue'")
	}
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RateLimitRPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}
	if c.RecapCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid recap cache TTL %v: must be at least 1 second", c.RecapCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks only what the notify worker needs: a queue to
// consume and a known email provider.
func (c *Config) ValidateWorker() error {
	var errors []string

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required for the notify worker")
	} else if parsedURL, err := url.Parse(c.AMQPURL); err != nil || (parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps") {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': scheme must be 'amqp' or 'amqps'", c.AMQPURL))
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty")
	}
	validProviders := []string{"smtp", "sendgrid", "mailgun", "ses", "none"}
	if !contains(validProviders, c.EmailProvider) {
		errors = append(errors, fmt.Sprintf("invalid email provider '%s': must be one of %v", c.EmailProvider, validProviders))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// JWTExpiry returns the token lifetime.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiresMinutes) * time.Minute
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
