// Package http provides the JSON HTTP API for directoryd.
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

	"github.com/fyrsmithlabs/directoryd/internal/directory"
	"github.com/fyrsmithlabs/directoryd/internal/logging"
	"github.com/fyrsmithlabs/directoryd/internal/telemetry"
)

// Registry looks up collection directories by kind.
type Registry interface {
	Kinds() []directory.Kind
	Get(kind directory.Kind) (*directory.Directory, error)
}

// HealthChecker reports the health of a dependency, such as telemetry export.
type HealthChecker interface {
	Health() telemetry.HealthStatus
}

// Server provides HTTP endpoints for directoryd.
type Server struct {
	echo     *echo.Echo
	registry Registry
	logger   *logging.Logger
	config   *Config
	health   HealthChecker
	metrics  *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHealthChecker adds a dependency whose degradation is reported by
// /health.
func WithHealthChecker(h HealthChecker) ServerOption {
	return func(s *Server) { s.health = h }
}

// WithHTTPMetrics records request metrics with m.
func WithHTTPMetrics(m *HTTPMetrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(registry Registry, logger *logging.Logger, cfg *Config, opts ...ServerOption) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	s := &Server{
		echo:     e,
		registry: registry,
		logger:   logger.Named("http"),
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	if s.metrics != nil {
		e.Use(s.metrics.MetricsMiddleware())
	}
	e.Use(s.requestLogger())

	s.registerRoutes()

	return s, nil
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo render the error so the logged status is final.
				c.Error(err)
			}

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/collections", s.handleListCollections)

	coll := v1.Group("/collections/:kind")
	coll.GET("", s.handleView)
	coll.GET("/groups", s.handleGroups)
	coll.GET("/entities", s.handleEntities)
	coll.GET("/status", s.handleStatus)
	coll.PUT("/filter", s.handleSetFilter)
	coll.POST("/reload", s.handleReload)
}

// Handler returns the server's request handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
