// Package mcp exposes the reasoning pipeline as MCP tools over stdio, so
// desktop AI agents can run lab reasoning without the HTTP server. The
// server needs no external databases: feedback lands in SQLite under the
// data directory.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/config"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/feedback"
	"github.com/thirdop-reasoning-server/internal/reasoning"
	"github.com/thirdop-reasoning-server/pkg/external"
)

// Server is the stdio MCP server wrapping the reasoning service.
type Server struct {
	config        *config.LiteConfig
	mcpServer     *mcp.Server
	service       *reasoning.Service
	feedbackStore feedback.Store
	logger        *logrus.Logger
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server) error

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithFeedbackStore sets a custom feedback store.
func WithFeedbackStore(store feedback.Store) ServerOption {
	return func(s *Server) error {
		s.feedbackStore = store
		return nil
	}
}

// WithService sets a custom reasoning service, used by tests to inject
// fake generators.
func WithService(service *reasoning.Service) ServerOption {
	return func(s *Server) error {
		s.service = service
		return nil
	}
}

// NewServer creates a new stdio MCP server instance.
func NewServer(cfg *config.LiteConfig, opts ...ServerOption) (*Server, error) {
	server := &Server{
		config: cfg,
		logger: logrus.New(),
	}

	// Configure default logger
	if cfg.LogFormat == "text" {
		server.logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		server.logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	server.logger.SetLevel(level)

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Initialize feedback store if not provided
	if server.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	// Initialize the reasoning service if not provided
	if server.service == nil {
		nephrologyGen := external.NewOllamaClient(cfg.Ollama)
		anyReportGen := external.NewOllamaClient(cfg.AnyReport)

		var predictor external.RiskPredictor
		if cfg.RiskModelURL != "" {
			predictor = external.NewRiskModelClient(domain.RiskModelConfig{URL: cfg.RiskModelURL})
		}

		server.service = reasoning.NewService(server.logger, nephrologyGen, anyReportGen, predictor)
	}

	serverInfo := &mcp.Implementation{
		Name:    "thirdop-reasoning-server",
		Version: "v0.1.0",
	}

	server.mcpServer = mcp.NewServer(serverInfo, nil)
	server.registerTools()

	server.logger.Info("MCP server initialized")
	return server, nil
}

// Run starts the MCP server on the stdio transport and blocks until the
// context is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting ThirdOp reasoning MCP server...")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
			return err
		}
	}
	return nil
}

// FeedbackStore returns the feedback store for external access.
func (s *Server) FeedbackStore() feedback.Store {
	return s.feedbackStore
}

// registerTools registers the reasoning and feedback tools with the SDK.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reason_labs",
		Description: "Explain structured nephrology lab values as patient-friendly concerns. The input object may carry a riskLevel field (LOW, MODERATE, HIGH) controlling how many concerns are generated.",
	}, s.handleReasonLabs)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reason_any_report",
		Description: "Explain a list of already-flagged abnormal values from any medical report, with a recommended department and precautions.",
	}, s.handleReasonAnyReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "assess_risk",
		Description: "Score lab values with the kidney risk model, then run nephrology reasoning on the risk-enriched input. Requires the risk model endpoint to be configured.",
	}, s.handleAssessRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Record a clinician's rating of one generated concern.",
	}, s.handleSubmitFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "feedback_stats",
		Description: "Report aggregate feedback counters.",
	}, s.handleFeedbackStats)

	s.logger.WithField("tool_count", 5).Info("Registered MCP tools")
}
