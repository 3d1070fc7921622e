package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signin_service/internal/auth"
	"signin_service/internal/auth/credentials"
	"signin_service/internal/auth/session"
	"signin_service/internal/auth/signin"
	"signin_service/internal/auth/tokens"
	"signin_service/internal/auth/twofactor"
	"signin_service/internal/cleanup"
	"signin_service/internal/config"
	"signin_service/internal/http_server/handlers/login"
	newPassword "signin_service/internal/http_server/handlers/new_password"
	newVerification "signin_service/internal/http_server/handlers/new_verification"
	"signin_service/internal/http_server/handlers/register"
	resendEmail "signin_service/internal/http_server/handlers/resend_verification_email"
	"signin_service/internal/http_server/handlers/reset"
	sessionHandler "signin_service/internal/http_server/handlers/session"
	"signin_service/internal/http_server/handlers/settings"
	sl "signin_service/internal/lib/logger/sl"
	"signin_service/internal/lib/mail"
	rateLimit "signin_service/internal/middleware/ratelimit"
	"signin_service/internal/middleware/routeguard"
	"signin_service/internal/rabbitmq"
	"signin_service/internal/routes"
	"signin_service/internal/storage/memory"
	"signin_service/internal/storage/postgres"
	"signin_service/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const defaultConfigPath = "./config/local.yaml"

type repository interface {
	auth.UserSaver
	auth.UserProvider
	tokens.Store
	cleanup.TokenPurger
}

type confirmationStore interface {
	twofactor.ConfirmationSaver
	signin.ConfirmationStore
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)

	log.Info("starting signin service", slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo          repository
		confirmations confirmationStore
	)

	switch cfg.Storage {
	case config.StoragePostgres:
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			log.Error("failed to connect postgres", sl.Err(err))
			os.Exit(1)
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			log.Error("failed to apply migrations", sl.Err(err))
			os.Exit(1)
		}

		repo, confirmations = pg, pg
	default:
		mem := memory.New()
		repo, confirmations = mem, mem
	}

	if cfg.TwoFactor.Backend == config.BackendRedis {
		rdb, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TwoFactor.ConfirmationTTL)
		if err != nil {
			log.Error("failed to connect redis", sl.Err(err))
			os.Exit(1)
		}
		defer rdb.Close()

		confirmations = rdb
	}

	var publisher mail.Publisher = mail.NewLogPublisher(log)
	if cfg.RabbitMQ.URL != "" {
		msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.Error("failed to connect rabbitmq", sl.Err(err))
			os.Exit(1)
		}
		defer msgBroker.Close()

		publisher = msgBroker
	} else {
		log.Warn("rabbitmq url is empty, emails are written to the log")
	}

	authService, sessions := setupAuth(log, cfg, repo, confirmations, publisher)

	cleanupJob := cleanup.New(log, repo)
	if err := cleanupJob.Start(ctx, cfg.Cleanup.Schedule); err != nil {
		log.Error("failed to schedule token cleanup", sl.Err(err))
		os.Exit(1)
	}
	defer cleanupJob.Stop()

	router := setupRouter(log, cfg, authService, sessions)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupAuth(
	log *slog.Logger,
	cfg *config.Config,
	repo repository,
	confirmations confirmationStore,
	publisher mail.Publisher,
) (*auth.Auth, *session.Manager) {
	mailer := mail.NewDispatcher(log, publisher, cfg.Auth.BaseURL)

	hasher := credentials.NewBcryptHasher(cfg.Auth.BcryptCost)
	issuer := tokens.New(log, repo, tokens.TTLs{
		Verification:  cfg.Tokens.VerificationTokenTTL,
		PasswordReset: cfg.Tokens.PasswordResetTTL,
		TwoFactor:     cfg.Tokens.TwoFactorCodeTTL,
	})
	sessions := session.New(log, repo, repo, cfg.Tokens.SessionSecret, cfg.Tokens.SessionTTL)

	authService := auth.New(log, auth.Deps{
		UserSaver:    repo,
		UserProvider: repo,
		Verifier:     credentials.NewVerifier(hasher),
		Hasher:       hasher,
		Tokens:       issuer,
		TwoFactor:    twofactor.New(log, issuer, confirmations, mailer),
		Authorizer:   signin.New(log, repo, confirmations),
		Sessions:     sessions,
		Mailer:       mailer,
	})

	return authService, sessions
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	authService *auth.Auth,
	sessions *session.Manager,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(routeguard.New(
		log,
		routes.NewClassifier(routes.DefaultTable.WithAuthPages(cfg.Auth.SignInPath, cfg.Auth.ErrorPath)),
		sessions,
		routeguard.Options{
			SignInPath:      cfg.Auth.SignInPath,
			DefaultRedirect: cfg.Auth.DefaultRedirect,
		},
	))

	r.Route(routes.DefaultTable.APIAuthPrefix, func(r chi.Router) {
		r.With(rateLimit.Register()).Post("/register",
			register.New(log, validate, authService),
		)
		r.With(rateLimit.Login()).Post("/login",
			login.New(log, validate, authService, cfg.Tokens.SessionTTL),
		)
		r.With(rateLimit.Verify()).Post("/new-verification",
			newVerification.New(log, validate, authService),
		)
		r.With(rateLimit.ResendVerificationEmail()).Post("/verify/resend",
			resendEmail.New(log, validate, authService),
		)
		r.With(rateLimit.Reset()).Post("/reset",
			reset.New(log, validate, authService),
		)
		r.With(rateLimit.NewPassword()).Post("/new-password",
			newPassword.New(log, validate, authService),
		)
		r.With(rateLimit.Session()).Get("/session",
			sessionHandler.Get(log, sessions),
		)
		r.With(rateLimit.Session()).Post("/session/refresh",
			sessionHandler.Refresh(log, sessions, cfg.Tokens.SessionTTL),
		)
	})

	r.Get("/settings", settings.Get(log, authService))
	r.Patch("/settings", settings.Patch(log, validate, authService))

	return r
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
