package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports readiness of an infrastructure dependency.
type HealthChecker func(ctx context.Context) error

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Checks          map[string]HealthChecker
}

func WithPort(port int) ServerOption {
	return func(c *ServerConfig) { c.Port = port }
}

func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) { c.ShutdownTimeout = d }
}

func WithHealthCheck(name string, check HealthChecker) ServerOption {
	return func(c *ServerConfig) { c.Checks[name] = check }
}

// Server exposes the operational surface: prometheus metrics and health.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
}

// NewServer creates the HTTP server with Echo.
func NewServer(opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 10 * time.Second,
		Checks:          map[string]HealthChecker{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		status := http.StatusOK
		body := map[string]string{}
		for name, check := range cfg.Checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		return c.JSON(status, body)
	})

	return &Server{echo: e, config: cfg}
}

// Start starts the HTTP server without blocking.
func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
