package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/cli"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/platform/logger"
	"github.com/mxl4r/Prism-LLM-frontend/internal/platform/otel"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server"
	"github.com/mxl4r/Prism-LLM-frontend/internal/version"

	// Import providers to trigger init() registration
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/anthropic"
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/google"
	_ "github.com/mxl4r/Prism-LLM-frontend/internal/llm/openai"
)

func main() {
	logLevel := flag.String("log-level", "", "override the configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(logger.FromSettings(cfg.Log.Level, cfg.Log.Format))
	defer logger.Sync()
	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	}
	log := logger.With(
		zap.String("service", cfg.Tracing.ServiceName),
		zap.String("env", cfg.Server.Env),
	)

	fmt.Println(cli.Banner("Prism"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := otel.InitTracer(cfg.Tracing, log, os.Stdout)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	service := gateway.NewService(log, cfg.Router.RequestTimeout)
	defer func() {
		if err := service.Close(); err != nil {
			log.Warn("Provider shutdown failed", zap.Error(err))
		}
	}()

	count := gateway.BootstrapProviders(service, cfg.Providers, log)
	log.Info("Providers registered",
		zap.Int("count", count),
		zap.String("default_model", cfg.Router.DefaultModel),
		zap.Duration("request_timeout", cfg.Router.RequestTimeout),
	)

	srv := server.New(cfg, log, service, attachment.NewEncoder(cfg.Attachments.MaxBytes))

	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		update, err := version.Check(checkCtx, nil, version.ReleasesURL)
		if err != nil {
			log.Debug("Release check failed", zap.Error(err))
			return
		}
		if update.Available {
			log.Info(fmt.Sprintf("%s A new version is available: %s", cli.Arrow(), update.Latest),
				zap.String("current", update.Current))
		}
		srv.SetUpdate(update)
	}()

	if err := srv.Run(ctx); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server stopped")
}
