package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thirdop-reasoning-server/internal/config"
	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/internal/reasoning"
)

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) Model() string { return "test-model" }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestServer(t *testing.T, gen *fakeGenerator) *Server {
	t.Helper()

	cfg := &config.LiteConfig{
		DataDir:   t.TempDir(),
		LogLevel:  "error",
		LogFormat: "json",
	}

	service := reasoning.NewService(quietLogger(), gen, gen, nil)
	server, err := NewServer(cfg, WithLogger(quietLogger()), WithService(service))
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	return server
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServerCreatesFeedbackStore(t *testing.T) {
	server := newTestServer(t, &fakeGenerator{reply: "{}"})

	assert.NotNil(t, server.FeedbackStore())
	assert.NotNil(t, server.service)
	assert.NotNil(t, server.mcpServer)
}

func TestReasonLabsTool(t *testing.T) {
	gen := &fakeGenerator{reply: `{"concerns":[{"title":"Low eGFR","reason":"r","questionsToAskDoctor":["a","b","c"]}]}`}
	server := newTestServer(t, gen)

	result, output, err := server.handleReasonLabs(context.Background(), nil, ReasonLabsParams{
		Labs: map[string]interface{}{"riskLevel": "LOW", "eGFR": 42.0},
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "Low eGFR")

	require.NotNil(t, output)
	assert.False(t, output.Error)
	require.Len(t, output.Concerns, 1)
}

func TestReasonLabsToolBackendFailure(t *testing.T) {
	gen := &fakeGenerator{err: &domain.RequestFailedError{Err: errors.New("connection refused")}}
	server := newTestServer(t, gen)

	result, output, err := server.handleReasonLabs(context.Background(), nil, ReasonLabsParams{})
	require.NoError(t, err)

	// Pipeline failures are result-shaped, not tool errors.
	assert.False(t, result.IsError)
	require.NotNil(t, output)
	assert.True(t, output.Error)
	assert.Contains(t, output.Message, "Ollama request failed")
}

func TestReasonAnyReportTool(t *testing.T) {
	gen := &fakeGenerator{reply: `{"concerns":[{"title":"Low Hemoglobin","reason":"r","questionsToAskDoctor":["a","b","c"]}],"recommendedDepartment":"Internal Medicine","precautions":["p1","p2"]}`}
	server := newTestServer(t, gen)

	result, output, err := server.handleReasonAnyReport(context.Background(), nil, ReasonAnyReportParams{
		Abnormalities: []interface{}{
			map[string]interface{}{"parameter": "Hemoglobin", "value": 11.2, "status": "LOW"},
		},
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	require.NotNil(t, output)
	assert.Equal(t, "Internal Medicine", output.RecommendedDepartment)
	assert.Len(t, output.Precautions, 2)
}

func TestAssessRiskToolWithoutPredictor(t *testing.T) {
	server := newTestServer(t, &fakeGenerator{reply: "{}"})

	result, output, err := server.handleAssessRisk(context.Background(), nil, AssessRiskParams{
		Labs: map[string]interface{}{"eGFR": 42.0},
	})
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Nil(t, output)
	assert.Contains(t, textOf(t, result), "Risk assessment failed")
}

func TestSubmitFeedbackTool(t *testing.T) {
	server := newTestServer(t, &fakeGenerator{reply: "{}"})

	result, output, err := server.handleSubmitFeedback(context.Background(), nil, SubmitFeedbackParams{
		AnalysisID:   "run-1",
		ReportKind:   "nephrology",
		ConcernTitle: "Low eGFR",
		Helpful:      true,
		Accurate:     true,
	})
	require.NoError(t, err)

	assert.False(t, result.IsError)
	require.NotNil(t, output)
	assert.NotZero(t, output.ID)

	statsResult, stats, err := server.handleFeedbackStats(context.Background(), nil, FeedbackStatsParams{})
	require.NoError(t, err)
	assert.False(t, statsResult.IsError)
	require.NotNil(t, stats)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Helpful)
}

func TestSubmitFeedbackToolValidation(t *testing.T) {
	server := newTestServer(t, &fakeGenerator{reply: "{}"})

	result, output, err := server.handleSubmitFeedback(context.Background(), nil, SubmitFeedbackParams{
		Helpful: true,
	})
	require.NoError(t, err)

	assert.True(t, result.IsError)
	assert.Nil(t, output)
}
