// Package external contains HTTP clients for the services the reasoning
// pipeline depends on: the Ollama-compatible generation backend and the
// platform's risk-model predictor.
package external

import (
	"context"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// Generator is the single-shot text-generation contract consumed by the
// reasoning orchestrator. One call performs exactly one blocking request.
type Generator interface {
	// Generate sends the prompt and returns the full generated text.
	// Transport failures surface as *domain.RequestFailedError; a 2xx reply
	// without the expected text field surfaces as *domain.InvalidResponseError.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model returns the model identifier requests are issued against.
	Model() string
}

// RiskPredictor scores structured lab values through the external risk model.
type RiskPredictor interface {
	Predict(ctx context.Context, input map[string]interface{}) (*domain.RiskPrediction, error)
}
