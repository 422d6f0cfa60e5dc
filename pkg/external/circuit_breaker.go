package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// ResilientGenerator wraps a Generator with a circuit breaker so repeated
// backend failures stop hammering the model host. An open breaker surfaces
// as *domain.RequestFailedError, which the orchestrator renders as the
// standard transport error-result.
type ResilientGenerator struct {
	inner   Generator
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientGenerator creates a circuit-breaker wrapper around the given
// generator.
func NewResilientGenerator(inner Generator, logger *logrus.Logger) *ResilientGenerator {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation-backend",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientGenerator{
		inner:   inner,
		breaker: breaker,
		logger:  logger,
	}
}

// Generate executes the wrapped call through the circuit breaker.
func (r *ResilientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.Generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", &domain.RequestFailedError{
				Err: fmt.Errorf("generation backend unavailable (circuit breaker %s)", r.breaker.State()),
			}
		}
		return "", err
	}
	return result.(string), nil
}

// Model returns the wrapped generator's model identifier.
func (r *ResilientGenerator) Model() string {
	return r.inner.Model()
}

// State returns the current breaker state for health reporting.
func (r *ResilientGenerator) State() gobreaker.State {
	return r.breaker.State()
}

// Counts returns the breaker's request statistics for health reporting.
func (r *ResilientGenerator) Counts() gobreaker.Counts {
	return r.breaker.Counts()
}
