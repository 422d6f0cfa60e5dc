// Package api exposes the reasoning pipeline over HTTP. The error-as-data
// contract is preserved across the wire: reasoning endpoints answer 200
// even when the result carries error:true, so clients read one shape.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/cache"
	"github.com/thirdop-reasoning-server/internal/database"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/feedback"
	"github.com/thirdop-reasoning-server/internal/history"
	"github.com/thirdop-reasoning-server/internal/middleware"
	"github.com/thirdop-reasoning-server/internal/reasoning"
	"github.com/thirdop-reasoning-server/pkg/external"
)

const serverVersion = "v0.1.0"

// Dependencies carries the collaborators the server routes requests to.
// Service is required; everything else is optional and the matching
// endpoints degrade (503 or absent detail) when unset.
type Dependencies struct {
	Service  *reasoning.Service
	Results  *cache.ResultCache
	History  *history.Repository
	Feedback feedback.Store
	DB       *database.DB
	Breaker  *external.ResilientGenerator
}

// Server represents the HTTP server
type Server struct {
	config *domain.Config
	logger *logrus.Logger
	router *gin.Engine
	server *http.Server

	service  *reasoning.Service
	results  *cache.ResultCache
	history  *history.Repository
	feedback feedback.Store
	db       *database.DB
	breaker  *external.ResilientGenerator
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, logger *logrus.Logger, deps Dependencies) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		service:  deps.Service,
		results:  deps.Results,
		history:  deps.History,
		feedback: deps.Feedback,
		db:       deps.DB,
		breaker:  deps.Breaker,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/reason/labs", s.handleReasonLabs)
		v1.POST("/reason/any-report", s.handleReasonAnyReport)
		v1.POST("/assess", s.handleAssess)
		v1.GET("/cache/stats", s.handleCacheStats)
		v1.GET("/history", s.handleHistoryList)
		v1.GET("/history/:id", s.handleHistoryGet)
		v1.POST("/feedback", s.handleFeedbackSubmit)
		v1.GET("/feedback", s.handleFeedbackList)
		v1.GET("/feedback/stats", s.handleFeedbackStats)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
