package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/upb/travel-control-plane/app"
	"github.com/upb/travel-control-plane/config"
	"github.com/upb/travel-control-plane/routes"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "travel-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return err
	}
	logger = logger.With(
		zap.String("service", "travel-control-plane"),
		zap.String("version", cfg.Version),
		zap.String("environment", cfg.Environment),
	)

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		_ = logger.Sync()
		return err
	}
	if err := deps.Start(); err != nil {
		_ = deps.Close(context.Background())
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("travel-api listening",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", cfg.Server.TLS.Enabled))
		if cfg.Server.TLS.Enabled {
			serveErr <- srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			runErr = err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	// Audit workers drain after the last request has been served
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("dependency shutdown failed", zap.Error(err))
	}
	logger.Info("travel-api stopped")
	return runErr
}

// initLogger builds a zap logger. format is json (default) or console.
func initLogger(level, format string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var zcfg zap.Config
	switch strings.ToLower(format) {
	case "", "json":
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid log format %q: use json or console", format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)

	return zcfg.Build()
}
