package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/events"
	"github.com/appealai/ticket-intake/internal/export"
	"github.com/appealai/ticket-intake/internal/metrics"
	"github.com/appealai/ticket-intake/internal/pipeline"
	"github.com/appealai/ticket-intake/internal/recognize"
	"github.com/appealai/ticket-intake/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := pipeline.Engines{
		Image: recognize.NewTesseract(cfg.OCR, logger),
		PDF:   recognize.NewPDFText(logger),
	}

	var pub *events.Publisher
	if cfg.Events.NATSURL != "" {
		var err error
		pub, err = events.NewPublisher(cfg.Events, logger)
		if err != nil {
			logger.Error("connect event publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
	} else {
		logger.Info("NATS_URL not set, completion events disabled")
	}

	pm := metrics.NewPipelineMetrics()
	store := server.NewStore()
	svc := server.NewService(cfg, engines, store, export.NewService(logger), pm, pub, logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(svc, pm.Handler(), cfg.Server, logger).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		svc.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("bye")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
