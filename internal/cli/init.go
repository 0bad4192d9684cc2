// Package cli holds the start-up steps shared by cmd/fintrack,
// cmd/notify-worker and cmd/fin-report.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/notify"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the logger described by LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. Invalid levels fall back to info.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// EmailSettings maps the email section of cfg onto notify.Settings.
func EmailSettings(cfg *config.Config) notify.Settings {
	return notify.Settings{
		Provider:      cfg.EmailProvider,
		FromEmail:     cfg.SMTPFromEmail,
		FromName:      cfg.SMTPFromName,
		SMTPHost:      cfg.SMTPHost,
		SMTPPort:      cfg.SMTPPort,
		SMTPUsername:  cfg.SMTPUsername,
		SMTPPassword:  cfg.SMTPPassword,
		SMTPEnableSSL: cfg.SMTPEnableSSL,
		SendGridKey:   cfg.SendGridAPIKey,
		MailgunDomain: cfg.MailgunDomain,
		MailgunKey:    cfg.MailgunAPIKey,
		AWSRegion:     cfg.AWSRegion,
	}
}

// NewMailer builds the configured email sender and wraps it in a Mailer.
func NewMailer(ctx context.Context, cfg *config.Config, logger *log.Logger) (*notify.Mailer, error) {
	sender, err := notify.NewSender(ctx, EmailSettings(cfg), logger)
	if err != nil {
		return nil, err
	}
	return notify.NewMailer(sender, cfg.PasswordResetLinkBase, logger), nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Exit prints err to stderr and exits with status 1.
func Exit(err error) {
	_, _ = io.WriteString(os.Stderr, err.Error()+"\n")
	os.Exit(1)
}
