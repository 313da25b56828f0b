package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/math-challenge-backend/internal/config"
	"github.com/DoyleJ11/math-challenge-backend/internal/httpapi"
	"github.com/DoyleJ11/math-challenge-backend/internal/hub"
	"github.com/DoyleJ11/math-challenge-backend/internal/logging"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger)
	// Sync on a terminal stderr reports EINVAL; nothing to act on.
	_ = logger.Sync()
	if err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	h := hub.NewHub(context.Background(), hub.Config{
		Rules:         cfg.Rules(),
		FeedbackDelay: cfg.FeedbackDelay,
		Logger:        logger,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			Logger:         logger,
			OriginPatterns: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			stopHub(shutdownCtx, h),
		)
	})
	return g.Wait()
}

func stopHub(ctx context.Context, h *hub.Hub) error {
	done := make(chan struct{})
	select {
	case h.Inbox() <- hub.ShutdownHub{Done: done}:
	case <-ctx.Done():
		return fmt.Errorf("stop hub: %w", ctx.Err())
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop hub: %w", ctx.Err())
	}
}
