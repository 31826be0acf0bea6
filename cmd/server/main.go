// Package main starts the Ignitia API server.
//
// @title Ignitia API
// @version 1.0
// @description Event registration and Yantra team formation.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"ignitia/config"
	_ "ignitia/docs"
	"ignitia/internal/adapters/auth"
	"ignitia/internal/adapters/email"
	delivery "ignitia/internal/delivery/http"
	"ignitia/internal/delivery/http/controllers"
	"ignitia/internal/delivery/http/middleware"
	"ignitia/internal/repository/postgres"
	"ignitia/internal/scheduler"
	"ignitia/internal/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	catalog, err := config.LoadEvents()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connection established")

	stores := services.WorkflowStores{
		Users:    postgres.NewUserRepository(db),
		Teams:    postgres.NewTeamRepository(db),
		Requests: postgres.NewRequestRepository(db),
		Tx:       postgres.NewTransactor(db),
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
		SendGrid: email.SendGridConfig{APIKey: cfg.Email.SendGridAPIKey},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	identity, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
	if err != nil {
		return err
	}
	issuer, verifier := auth.NewJWTSessions(cfg.JWTSecret)
	teamTokens := auth.NewJWTTeamTokens(cfg.TeamTokenSecret, cfg.TeamTokenExpiry)

	notifier := services.NewNotificationService(postgres.NewOutboxRepository(db), stores.Tx, mailer, renderer, logger, cfg.Outbox.BatchSize)
	authSvc := services.NewAuthService(stores.Users, auth.NewBcryptHasher(0), issuer, identity, notifier, cfg.JWTExpiry, cfg.RequestTimeout)
	userSvc := services.NewUserService(stores, catalog, logger, cfg.RequestTimeout)
	teamSvc := services.NewTeamService(stores, teamTokens, notifier, logger, cfg.RequestTimeout)
	requestSvc := services.NewRequestService(stores, notifier, logger, cfg.RequestTimeout)

	router := delivery.NewRouter(delivery.Controllers{
		Auth:     controllers.NewAuthController(logger, authSvc),
		Users:    controllers.NewUserController(logger, userSvc),
		Teams:    controllers.NewTeamController(logger, teamSvc),
		Requests: controllers.NewRequestController(logger, requestSvc),
	}, middleware.RequireAuth(verifier, logger))

	sched, err := scheduler.New(notifier, cfg.Outbox.Schedule, cfg.RequestTimeout, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, router)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
