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

	"go.uber.org/zap"

	"estatehub/internal/auth"
	"estatehub/internal/config"
	"estatehub/internal/database"
	"estatehub/internal/email"
	"estatehub/internal/logging"
	redisx "estatehub/internal/redis"
	"estatehub/internal/server"
)

const auditMaxLen = 200

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer closeStore()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	mailer, err := email.New(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("mail: %w", err)
	}

	tokens, err := auth.NewTokenCodec(cfg.Token.AccessSecret, cfg.Token.AccessTTL, cfg.Token.RefreshSecret, cfg.Token.RefreshTTL)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	store := auth.NewCredentialStore(repo, auth.NewBcryptHasher())
	svc := auth.NewService(store, tokens, mailer, logger, auth.Options{
		CompanyName:           cfg.CompanyName,
		RevokeSessionsOnReset: cfg.RevokeSessionsOnReset,
	})

	api := server.NewServer(cfg, server.Deps{
		Auth:        svc,
		Limiter:     &auth.RateLimiter{Redis: redisClient},
		Audit:       &auth.AuditLogger{Redis: redisClient, MaxLen: auditMaxLen},
		OAuth:       auth.NewOAuthProviders(cfg.OAuth),
		OAuthStates: &auth.OAuthStateStore{Redis: redisClient},
		Log:         logger,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("mail", cfg.Email.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, cfg config.Config) (auth.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		db, err := database.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			_ = db.Client().Disconnect(context.Background())
		}
		repo := auth.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return repo, closeFn, nil
	default:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return auth.NewPostgresRepository(pool), pool.Close, nil
	}
}
