package external

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirdop-reasoning-server/internal/domain"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestResilientGeneratorPassesThroughSuccess(t *testing.T) {
	stub := &stubGenerator{text: `{"concerns":[]}`}
	resilient := NewResilientGenerator(stub, newTestLogger())

	text, err := resilient.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"concerns":[]}`, text)
	assert.Equal(t, "stub-model", resilient.Model())
}

func TestResilientGeneratorPreservesTypedErrors(t *testing.T) {
	stub := &stubGenerator{err: &domain.InvalidResponseError{Detail: "Ollama response missing 'response' field"}}
	resilient := NewResilientGenerator(stub, newTestLogger())

	_, err := resilient.Generate(context.Background(), "prompt")
	require.Error(t, err)

	var respErr *domain.InvalidResponseError
	assert.True(t, errors.As(err, &respErr), "breaker must not mask the underlying error type")
}

func TestResilientGeneratorOpensAfterRepeatedFailures(t *testing.T) {
	stub := &stubGenerator{err: &domain.RequestFailedError{Err: errors.New("connection refused")}}
	resilient := NewResilientGenerator(stub, newTestLogger())

	for i := 0; i < 3; i++ {
		_, err := resilient.Generate(context.Background(), "prompt")
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, resilient.State())

	callsBefore := stub.calls
	_, err := resilient.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, callsBefore, stub.calls, "open breaker must not reach the backend")

	var reqErr *domain.RequestFailedError
	require.True(t, errors.As(err, &reqErr))
	assert.Contains(t, reqErr.Error(), "circuit breaker")
}

func TestResilientGeneratorCountsRecoveries(t *testing.T) {
	stub := &stubGenerator{text: "ok"}
	resilient := NewResilientGenerator(stub, newTestLogger())

	for i := 0; i < 5; i++ {
		_, err := resilient.Generate(context.Background(), "prompt")
		require.NoError(t, err)
	}

	counts := resilient.Counts()
	assert.Equal(t, uint32(5), counts.TotalSuccesses)
	assert.Zero(t, counts.TotalFailures)
}
