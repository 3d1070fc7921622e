package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"signin_service/internal/config"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/mailsender"
	"signin_service/internal/rabbitmq"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const defaultConfigPath = "./config/local.yaml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg := config.MustLoadMailer(configPath)
	log := setupLogger(cfg.Env)

	log.Info("Starting mail_sender", slog.String("env", cfg.Env))

	if err := startConsumer(ctx, cfg, log); err != nil {
		log.Error("consumer stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("service gracefully stopped")
}

func startConsumer(ctx context.Context, cfg *config.MailerConfig, log *slog.Logger) error {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer r.Close()

	m := &mailsender.Mailer{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}

	log.Info("consumer successfully started", slog.String("queue", cfg.RabbitMQ.QueueName))

	err = r.StartReading(ctx, mailsender.Handler(log, m))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutting down consumer...")

	return nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
