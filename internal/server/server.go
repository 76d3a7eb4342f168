package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/attachment"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/gateway"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server/middleware"
	v1 "github.com/mxl4r/Prism-LLM-frontend/internal/server/v1"
	"github.com/mxl4r/Prism-LLM-frontend/internal/server/validator"
	"github.com/mxl4r/Prism-LLM-frontend/internal/version"
)

const shutdownGrace = 10 * time.Second

type Server struct {
	router    *gin.Engine
	config    *config.Config
	logger    *zap.Logger
	service   gateway.Service
	encoder   *attachment.Encoder
	validator *validator.Validator
	health    *v1.HealthHandler
}

func New(cfg *config.Config, logger *zap.Logger, service gateway.Service, encoder *attachment.Encoder) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(logger))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}

	s := &Server{
		router:    engine,
		config:    cfg,
		logger:    logger,
		service:   service,
		encoder:   encoder,
		validator: validator.New(),
		health:    v1.NewHealthHandler(service, time.Now()),
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SetUpdate publishes a release check result on /health.
func (s *Server) SetUpdate(u *version.Update) {
	s.health.SetUpdate(u)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Open streams are cut off when the grace period ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", zap.String("addr", srv.Addr))
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

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	return <-errCh
}
