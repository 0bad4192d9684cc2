package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/notify"
	"fintrack/internal/recap"
	"fintrack/internal/services"
	"fintrack/internal/storage"

	"golang.org/x/sync/errgroup"
)

const recapCacheSize = 1000

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		cli.Exit(err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("initialize SQLite repository at %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	dispatcher, closeDispatcher, err := newDispatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	generator, err := ai.New(ctx, ai.Options{
		Provider:        cfg.AI.Provider,
		BaseURL:         cfg.AI.BaseURL,
		APIKey:          cfg.AI.APIKey,
		Model:           cfg.AI.Model,
		APIKeyHeader:    cfg.AI.APIKeyHeader,
		Organization:    cfg.AI.Organization,
		UseBearerPrefix: cfg.AI.UseBearerPrefix,
		Temperature:     cfg.AI.Temperature,
		MaxTokens:       cfg.AI.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("initialize AI provider %s: %w", cfg.AI.Provider, err)
	}
	if !generator.Configured() {
		logger.Warn("AI provider is not configured; AI endpoints will return 503", log.FieldProvider, cfg.AI.Provider)
	}

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Key:      cfg.JWTKey,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTExpiry(),
	})

	recaps := cache.NewLRUCache[recap.Result](recapCacheSize, cfg.RecapCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register("recap", recaps)
	caches.StartCleanup(cfg.RecapCacheTTL)

	transactions := services.NewTransactionService(repo, recap.NewAggregator(recap.DefaultFormat()), recaps, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:   ":" + cfg.Port,
		Logger: logger,
		Issuer: issuer,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Ready:      repo.Ping,
		Caches:     caches,
		RecapStats: recaps.Stats,
	}, apphttp.Services{
		Users:        services.NewUserService(repo, issuer, dispatcher, logger),
		Categories:   services.NewCategoryService(repo, transactions, logger),
		Transactions: transactions,
		AI:           services.NewAIService(repo, generator, logger),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"notify_mode", cfg.NotifyMode,
			"ai_provider", cfg.AI.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newDispatcher picks direct email delivery or the AMQP queue.
func newDispatcher(ctx context.Context, cfg *config.Config, logger *log.Logger) (notify.Dispatcher, func(), error) {
	if cfg.NotifyMode == "queue" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize AMQP client: %w", err)
		}
		logger.Info("Password reset notifications will be queued", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}, nil
	}

	mailer, err := cli.NewMailer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize email provider %s: %w", cfg.EmailProvider, err)
	}
	return mailer, func() {}, nil
}
