// Package main запускает HTTP-сервер сервиса ститчмарт.
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

	"github.com/mmeshcher/stitchmart-system/internal/config"
	"github.com/mmeshcher/stitchmart-system/internal/gateway"
	"github.com/mmeshcher/stitchmart-system/internal/handler"
	"github.com/mmeshcher/stitchmart-system/internal/lifecycle"
	"github.com/mmeshcher/stitchmart-system/internal/middleware"
	"github.com/mmeshcher/stitchmart-system/internal/pricing"
	"github.com/mmeshcher/stitchmart-system/internal/profile"
	"github.com/mmeshcher/stitchmart-system/internal/repository"
	"github.com/mmeshcher/stitchmart-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var gatewayClient service.Gateway
	if cfg.PaymentGatewayAddress != "" {
		gatewayClient = gateway.NewClient(cfg.PaymentGatewayAddress, cfg.PaymentGatewayStoreID)
	}

	var profileClient service.ProfileClient
	if cfg.ProfileServiceAddress != "" {
		profileClient = profile.NewClient(cfg.ProfileServiceAddress)
	}

	engine := pricing.NewEngine(repo)
	machine := lifecycle.Machine{Permissive: cfg.PermissiveTransitions}

	svc := service.NewService(repo, engine, gatewayClient, profileClient, machine, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting stitchmart server", "addr", cfg.RunAddress)
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
