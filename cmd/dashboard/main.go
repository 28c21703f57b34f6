// Package main запускает локальный API панели мерчанта.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/merchant-dashboard/internal/backend"
	"github.com/mmeshcher/merchant-dashboard/internal/config"
	"github.com/mmeshcher/merchant-dashboard/internal/handler"
	"github.com/mmeshcher/merchant-dashboard/internal/repository"
	"github.com/mmeshcher/merchant-dashboard/internal/session"
)

type credentialStore interface {
	session.CredentialStore
	Close() error
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		sugar.Fatalw("credential storage initialization error", "error", err.Error())
	}
	defer store.Close()

	client := backend.NewClient(cfg.BackendURL, store, session.CredentialKey)
	bootstrap := session.New(client, store, logger,
		session.WithRetryPolicy(cfg.LoaderRetries, cfg.LoaderBaseDelay),
	)

	h := handler.NewHandler(bootstrap, logger, cfg.CurrencySymbol)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Первичная проверка сохранённого токена; фоновые загрузки живут до остановки
	g.Go(func() error {
		if err := bootstrap.Initialize(ctx); err != nil {
			sugar.Warnw("session initialization finished anonymously", "error", err)
		}
		bootstrap.Wait()
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting merchant dashboard server", "addr", cfg.RunAddress, "backend", cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

// openStore выбирает хранилище токена: Postgres, затем Redis, иначе память процесса.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (credentialStore, error) {
	switch {
	case cfg.DatabaseURI != "":
		return repository.NewPostgresRepository(cfg.DatabaseURI)
	case cfg.RedisAddress != "":
		return repository.NewRedisStore(ctx, cfg.RedisAddress)
	default:
		logger.Warn("no persistent storage configured, session will not survive restart")
		return repository.NewMemoryStore(), nil
	}
}
