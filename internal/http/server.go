// Package http provides the HTTP readout API for gatekeeper.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/gatekeeper/internal/engine"
	"github.com/fyrsmithlabs/gatekeeper/internal/logging"
)

// Server provides HTTP endpoints over an Engine.
type Server struct {
	echo    *echo.Echo
	engine  *engine.Engine
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// NewServer creates a new HTTP server.
func NewServer(eng *engine.Engine, logger *logging.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: eng.Config().Server.Host,
			Port: eng.Config().Server.Port,
		}
	}
	logger = logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		engine:  eng,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(eng.Telemetry().Meter(httpInstrumentationName), logger),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), reqID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s.registerRoutes()
	return s, nil
}

// Echo returns the underlying router for extra routes.
func (s *Server) Echo() *echo.Echo { return s.echo }

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)

	v1.POST("/validate/pre", s.handleValidatePre)
	v1.POST("/validate/post", s.handleValidatePost)

	v1.GET("/hooks", s.handleHookMetrics)
	v1.POST("/hooks/pre", s.handleRunPreHooks)
	v1.POST("/hooks/post", s.handleRunPostHooks)
	v1.POST("/hooks/toggle", s.handleToggleHook)

	v1.POST("/score", s.handleScore)
	v1.POST("/verify", s.handleVerify)
	v1.GET("/dashboard", s.handleDashboard)

	v1.GET("/workflow", s.handleCurrentWorkflow)
	v1.POST("/workflow/start", s.handleStartWorkflow)
	v1.POST("/workflow/validate", s.handleValidatePhase)
	v1.POST("/workflow/complete", s.handleCompleteWorkflow)
	v1.GET("/workflow/history", s.handleWorkflowHistory)

	v1.POST("/orchestrate", s.handleOrchestrate)
}

// handleError renders every error as ErrorResponse JSON.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Error: msg})
	}
	if err != nil {
		s.logger.Warn(c.Request().Context(), "failed to write error response", zap.Error(err))
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
