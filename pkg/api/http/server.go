package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/promptmotion/manimatic/internal/application/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	pipeline *pipeline.Manager
	logger   *zap.Logger

	outputsDir string
	webDir     string
}

// Config holds HTTP server configuration
type Config struct {
	Port       int
	Pipeline   *pipeline.Manager
	OutputsDir string
	WebDir     string
	Logger     *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:     router,
		pipeline:   cfg.Pipeline,
		logger:     cfg.Logger,
		outputsDir: cfg.OutputsDir,
		webDir:     cfg.WebDir,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/generations", s.handleSubmit)
		v1.GET("/generations", s.handleList)
		v1.GET("/generations/:id", s.handleGetStatus)
		v1.GET("/generations/:id/status", s.handleGetStatus)
		v1.GET("/generations/:id/result", s.handleGetResult)
		v1.POST("/generations/:id/cancel", s.handleCancel)
	}

	// Generated artifacts
	s.router.GET("/outputs/:id", s.handleVideo)
	s.router.GET("/video/:id", s.handleVideo) // legacy alias
	s.router.GET("/scripts/:id", s.handleScript)
	s.router.GET("/narrations/:id", s.handleNarration)

	// Web UI
	if s.webDir != "" {
		s.router.StaticFile("/", s.webDir+"/index.html")
		s.router.Static("/static", s.webDir+"/static")
	}
}

// SetupWebSocket adds the per-generation event stream endpoint.
func (s *Server) SetupWebSocket(handler interface {
	HandleGenerationStream(*gin.Context)
}) {
	s.router.GET("/api/v1/generations/:id/ws", handler.HandleGenerationStream)
}

// Router exposes the gin engine, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}

// requestLogger is a middleware for request logging
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
