package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/feedback"
)

// ReasonLabsParams defines parameters for the reason_labs tool
type ReasonLabsParams struct {
	Labs map[string]interface{} `json:"labs"`
}

// ReasonAnyReportParams defines parameters for the reason_any_report tool
type ReasonAnyReportParams struct {
	Abnormalities []interface{} `json:"abnormalities"`
}

// AssessRiskParams defines parameters for the assess_risk tool
type AssessRiskParams struct {
	Labs map[string]interface{} `json:"labs"`
}

// AssessRiskResult defines the result structure for the assess_risk tool
type AssessRiskResult struct {
	RiskLevel     domain.RiskLevel        `json:"riskLevel"`
	Prediction    int                     `json:"prediction"`
	Probabilities []float64               `json:"probabilities"`
	Reasoning     *domain.ReasoningResult `json:"reasoning"`
}

// SubmitFeedbackParams defines parameters for the submit_feedback tool
type SubmitFeedbackParams struct {
	AnalysisID     string `json:"analysis_id"`
	ReportKind     string `json:"report_kind,omitempty"`
	ConcernTitle   string `json:"concern_title"`
	Helpful        bool   `json:"helpful"`
	Accurate       bool   `json:"accurate"`
	CorrectedTitle string `json:"corrected_title,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// FeedbackStatsParams defines parameters for the feedback_stats tool
type FeedbackStatsParams struct{}

// handleReasonLabs handles the reason_labs tool invocation
func (s *Server) handleReasonLabs(ctx context.Context, req *mcp.CallToolRequest, params ReasonLabsParams) (*mcp.CallToolResult, *domain.ReasoningResult, error) {
	s.logger.WithField("tool", "reason_labs").Info("Tool invoked")

	result := s.service.ReasonAboutLabs(ctx, params.Labs)
	return textResult(result), result, nil
}

// handleReasonAnyReport handles the reason_any_report tool invocation
func (s *Server) handleReasonAnyReport(ctx context.Context, req *mcp.CallToolRequest, params ReasonAnyReportParams) (*mcp.CallToolResult, *domain.AnyReportResult, error) {
	s.logger.WithField("tool", "reason_any_report").Info("Tool invoked")

	result := s.service.ReasonAboutAnyReport(ctx, params.Abnormalities)
	return textResult(result), result, nil
}

// handleAssessRisk handles the assess_risk tool invocation
func (s *Server) handleAssessRisk(ctx context.Context, req *mcp.CallToolRequest, params AssessRiskParams) (*mcp.CallToolResult, *AssessRiskResult, error) {
	s.logger.WithField("tool", "assess_risk").Info("Tool invoked")

	prediction, reasoningResult, err := s.service.AssessLabs(ctx, params.Labs)
	if err != nil {
		return errorResult("Risk assessment failed", err), nil, nil
	}

	result := &AssessRiskResult{
		RiskLevel:     prediction.RiskLevel,
		Prediction:    prediction.Prediction,
		Probabilities: prediction.Probabilities,
		Reasoning:     reasoningResult,
	}
	return textResult(result), result, nil
}

// handleSubmitFeedback handles the submit_feedback tool invocation
func (s *Server) handleSubmitFeedback(ctx context.Context, req *mcp.CallToolRequest, params SubmitFeedbackParams) (*mcp.CallToolResult, *feedback.Feedback, error) {
	s.logger.WithField("tool", "submit_feedback").Info("Tool invoked")

	if params.AnalysisID == "" || params.ConcernTitle == "" {
		return errorResult("Missing required parameter", fmt.Errorf("analysis_id and concern_title are required")), nil, nil
	}

	fb := &feedback.Feedback{
		AnalysisID:     params.AnalysisID,
		ReportKind:     domain.ReportKind(params.ReportKind),
		ConcernTitle:   params.ConcernTitle,
		Helpful:        params.Helpful,
		Accurate:       params.Accurate,
		CorrectedTitle: params.CorrectedTitle,
		Notes:          params.Notes,
	}
	if err := s.feedbackStore.Save(ctx, fb); err != nil {
		return errorResult("Failed to save feedback", err), nil, nil
	}

	return textResult(fb), fb, nil
}

// handleFeedbackStats handles the feedback_stats tool invocation
func (s *Server) handleFeedbackStats(ctx context.Context, req *mcp.CallToolRequest, params FeedbackStatsParams) (*mcp.CallToolResult, *feedback.Stats, error) {
	s.logger.WithField("tool", "feedback_stats").Info("Tool invoked")

	stats, err := feedback.CollectStats(ctx, s.feedbackStore)
	if err != nil {
		return errorResult("Failed to collect feedback stats", err), nil, nil
	}

	return textResult(stats), stats, nil
}

// textResult renders a value as a JSON text content block.
func textResult(v interface{}) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errorResult creates a standardized error result for tool calls
func errorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
