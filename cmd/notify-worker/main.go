package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		cli.Exit(err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker, os.Stdout)

	logger.Info("Starting notify-worker", "queue", cfg.AMQPQueue, "provider", cfg.EmailProvider)
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	mailer, err := cli.NewMailer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize email provider %s: %w", cfg.EmailProvider, err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	w := worker.NewNotifyWorker(mailer, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumePasswordReset(gctx, w.HandlePasswordReset)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}
