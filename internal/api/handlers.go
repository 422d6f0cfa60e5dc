package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thirdop-reasoning-server/internal/cache"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/feedback"
)

// anyReportRequest is the body of POST /api/v1/reason/any-report.
type anyReportRequest struct {
	Abnormalities domain.AbnormalityList `json:"abnormalities"`
}

// handleHealth reports server status plus a snapshot of each configured
// dependency.
func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   serverVersion,
		"models": gin.H{
			"nephrology": s.config.Ollama.Model,
			"any_report": s.config.AnyReport.Model,
		},
	}

	if s.results != nil {
		health["cache"] = s.results.Stats()
	}
	if s.breaker != nil {
		health["circuit_breaker"] = s.breaker.State().String()
	}
	if s.db != nil {
		if err := s.db.Health(c.Request.Context()); err != nil {
			health["database"] = "unreachable"
			health["status"] = "degraded"
		} else {
			health["database"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, health)
}

// handleReasonLabs runs nephrology-mode reasoning over a structured lab
// document. The reply is always result-shaped; pipeline failures arrive
// as error:true results, not HTTP errors.
func (s *Server) handleReasonLabs(c *gin.Context) {
	var input domain.StructuredLabInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.invalidInput(c, "request body must be a JSON object of lab values", err)
		return
	}

	key := cache.Key(domain.KindNephrology, input)
	if s.results != nil {
		var cached domain.ReasoningResult
		if s.results.Get(c.Request.Context(), key, &cached) {
			c.JSON(http.StatusOK, &cached)
			return
		}
	}

	start := time.Now()
	result := s.service.ReasonAboutLabs(c.Request.Context(), input)
	duration := time.Since(start)

	if s.results != nil && !result.Error {
		s.results.Set(c.Request.Context(), key, result)
	}

	riskLevel, _ := input.RiskLevel()
	s.recordRun(domain.KindNephrology, string(riskLevel), s.config.Ollama.Model, input, result, result.Error, result.Message, duration)

	c.JSON(http.StatusOK, result)
}

// handleReasonAnyReport runs any-report-mode reasoning over a list of
// flagged abnormal values.
func (s *Server) handleReasonAnyReport(c *gin.Context) {
	var req anyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalidInput(c, "request body must carry an abnormalities array", err)
		return
	}

	key := cache.Key(domain.KindAnyReport, req.Abnormalities)
	if s.results != nil {
		var cached domain.AnyReportResult
		if s.results.Get(c.Request.Context(), key, &cached) {
			c.JSON(http.StatusOK, &cached)
			return
		}
	}

	start := time.Now()
	result := s.service.ReasonAboutAnyReport(c.Request.Context(), req.Abnormalities)
	duration := time.Since(start)

	if s.results != nil && !result.Error {
		s.results.Set(c.Request.Context(), key, result)
	}

	s.recordRun(domain.KindAnyReport, "", s.config.AnyReport.Model, req.Abnormalities, result, result.Error, result.Message, duration)

	c.JSON(http.StatusOK, result)
}

// handleAssess scores the lab values with the risk model, then runs
// nephrology reasoning on the risk-enriched input. Unlike the plain
// reasoning endpoints, an unreachable risk model is a hard HTTP error.
func (s *Server) handleAssess(c *gin.Context) {
	var input domain.StructuredLabInput
	if err := c.ShouldBindJSON(&input); err != nil {
		s.invalidInput(c, "request body must be a JSON object of lab values", err)
		return
	}

	start := time.Now()
	prediction, result, err := s.service.AssessLabs(c.Request.Context(), input)
	if err != nil {
		s.logger.WithError(err).Warn("Risk assessment failed")
		c.JSON(http.StatusBadGateway, domain.NewAPIError(
			domain.ErrExternalAPI, "risk assessment failed", err.Error(), c.GetString("correlation_id")))
		return
	}
	duration := time.Since(start)

	s.recordRun(domain.KindNephrology, string(prediction.RiskLevel), s.config.Ollama.Model, input, result, result.Error, result.Message, duration)

	c.JSON(http.StatusOK, gin.H{
		"riskLevel":     prediction.RiskLevel,
		"prediction":    prediction.Prediction,
		"probabilities": prediction.Probabilities,
		"reasoning":     result,
	})
}

// handleCacheStats exposes hit/miss counters for the result cache.
func (s *Server) handleCacheStats(c *gin.Context) {
	if s.results == nil {
		s.notConfigured(c, "result cache is not enabled")
		return
	}
	c.JSON(http.StatusOK, s.results.Stats())
}

// handleHistoryList returns stored analysis runs, newest first.
func (s *Server) handleHistoryList(c *gin.Context) {
	if s.history == nil {
		s.notConfigured(c, "history store is not configured")
		return
	}

	limit, offset := paginationParams(c)
	records, err := s.history.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "failed to list analysis runs", err.Error(), c.GetString("correlation_id")))
		return
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   records,
		"limit":  limit,
		"offset": offset,
	})
}

// handleHistoryGet returns one stored analysis run by ID.
func (s *Server) handleHistoryGet(c *gin.Context) {
	if s.history == nil {
		s.notConfigured(c, "history store is not configured")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.invalidInput(c, "id must be a UUID", err)
		return
	}

	record, err := s.history.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, domain.NewAPIError(
				domain.ErrRecordNotFound, "analysis run not found", "", c.GetString("correlation_id")))
			return
		}
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "failed to load analysis run", err.Error(), c.GetString("correlation_id")))
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleFeedbackSubmit stores a clinician's rating of a generated concern.
func (s *Server) handleFeedbackSubmit(c *gin.Context) {
	if s.feedback == nil {
		s.notConfigured(c, "feedback store is not configured")
		return
	}

	var fb feedback.Feedback
	if err := c.ShouldBindJSON(&fb); err != nil {
		s.invalidInput(c, "malformed feedback body", err)
		return
	}
	if fb.AnalysisID == "" || fb.ConcernTitle == "" {
		s.invalidInput(c, "analysis_id and concern_title are required", nil)
		return
	}

	if err := s.feedback.Save(c.Request.Context(), &fb); err != nil {
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "failed to save feedback", err.Error(), c.GetString("correlation_id")))
		return
	}

	c.JSON(http.StatusCreated, &fb)
}

// handleFeedbackList returns stored feedback entries with pagination.
func (s *Server) handleFeedbackList(c *gin.Context) {
	if s.feedback == nil {
		s.notConfigured(c, "feedback store is not configured")
		return
	}

	limit, offset := paginationParams(c)
	entries, err := s.feedback.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "failed to list feedback", err.Error(), c.GetString("correlation_id")))
		return
	}
	if entries == nil {
		entries = []*feedback.Feedback{}
	}

	c.JSON(http.StatusOK, gin.H{
		"feedback": entries,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleFeedbackStats returns aggregate feedback counters.
func (s *Server) handleFeedbackStats(c *gin.Context) {
	if s.feedback == nil {
		s.notConfigured(c, "feedback store is not configured")
		return
	}

	stats, err := feedback.CollectStats(c.Request.Context(), s.feedback)
	if err != nil {
		c.JSON(http.StatusInternalServerError, domain.NewAPIError(
			domain.ErrDatabaseError, "failed to collect feedback stats", err.Error(), c.GetString("correlation_id")))
		return
	}

	c.JSON(http.StatusOK, stats)
}

// recordRun persists one reasoning run. Failures are logged and swallowed:
// history is an audit convenience, never a reason to fail the request.
func (s *Server) recordRun(kind domain.ReportKind, riskLevel, model string, input, result interface{}, failed bool, message string, duration time.Duration) {
	if s.history == nil {
		return
	}

	inputJSON, err := json.Marshal(input)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal input for history")
		return
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal result for history")
		return
	}

	record := &domain.AnalysisRecord{
		ID:         uuid.New(),
		Kind:       kind,
		RiskLevel:  riskLevel,
		Input:      inputJSON,
		Result:     resultJSON,
		Failed:     failed,
		Message:    message,
		Model:      model,
		DurationMS: duration.Milliseconds(),
	}

	// The request context may already be done once the response is written.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.history.Create(ctx, record); err != nil {
		s.logger.WithError(err).Warn("Failed to persist analysis run")
	}
}

func (s *Server) invalidInput(c *gin.Context, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	c.JSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, message, details, c.GetString("correlation_id")))
}

func (s *Server) notConfigured(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, domain.NewAPIError(
		domain.ErrNotConfigured, message, "", c.GetString("correlation_id")))
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
