package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/segyhp/loan-settlement/internal/auth"
	"github.com/segyhp/loan-settlement/internal/cache"
	"github.com/segyhp/loan-settlement/internal/config"
	"github.com/segyhp/loan-settlement/internal/domain"
	"github.com/segyhp/loan-settlement/internal/handler"
	"github.com/segyhp/loan-settlement/internal/repository"
	"github.com/segyhp/loan-settlement/internal/service"
	"github.com/segyhp/loan-settlement/internal/storage"
	"github.com/segyhp/loan-settlement/pkg/logger"
)

func main() {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Loan settlement HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(tokenCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Error("Failed to initialize database", zap.Error(err))
		return err
	}
	defer db.Close()

	// Redis only guards concurrent settlements; without it the payment id
	// uniqueness still prevents double settlement.
	redisClient, lock := initRedis(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := initStorage(cfg, log)
	if err != nil {
		log.Error("Failed to initialize document storage", zap.Error(err))
		return err
	}
	defer store.Close()

	// Initialize repositories
	clientRepo := repository.NewClientRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	uow := repository.NewUnitOfWork(db)

	// Initialize services
	billingService := service.NewBillingService(uow, loanRepo, paymentRepo, clientRepo, lock, cfg.Business, log.Named("billing"))
	clientService := service.NewClientService(clientRepo, store, log.Named("clients"))

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	router := handler.NewRouter(handler.Handlers{
		Billing: handler.NewBillingHandler(billingService, log),
		Client:  handler.NewClientHandler(clientService, log),
		Health:  handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout, log),
	}, authenticator.Middleware, log)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("Server failed to start", zap.Error(err))
		return err
	}
	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("Server exited")
	return nil
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config, log *zap.Logger) (*redis.Client, cache.SettlementLock) {
	client, err := cache.OpenRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("Redis unavailable, settlements run without the distributed lock",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Error(err),
		)
		return nil, nil
	}
	return client, cache.NewSettlementLock(client, cfg.Business.IdempotencyTTL)
}

func initStorage(cfg *config.Config, log *zap.Logger) (storage.DocumentStore, error) {
	if cfg.Storage.Bucket != "" {
		return storage.NewGCSStore(context.Background(), cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, log.Named("gcs"))
	}
	log.Info("No storage bucket configured, saving documents locally", zap.String("dir", cfg.Storage.LocalDir))
	return storage.NewLocalStore(cfg.Storage.LocalDir, log.Named("storage"))
}

func tokenCommand() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}

			r := domain.Role(role)
			if r != domain.RoleAdmin && r != domain.RoleEmployee {
				return fmt.Errorf("role must be %q or %q", domain.RoleAdmin, domain.RoleEmployee)
			}

			token, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).IssueToken(args[0], r, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "admin or employee")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
