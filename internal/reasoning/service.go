package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/domain"
	"github.com/thirdop-reasoning-server/pkg/external"
)

// Messages carried inside error results. Clients key off these strings,
// so they are fixed.
const (
	msgEmptyContent = "Model returned empty or non-JSON content"
	msgNotAnObject  = "Model did not return a JSON object"
)

// Service runs the full reasoning pipeline: prompt construction, text
// generation, fence stripping, JSON parsing, and shape enforcement.
// Pipeline failures are returned as error results, never as Go errors;
// callers always receive a renderable result object.
type Service struct {
	logger        *logrus.Logger
	nephrologyGen external.Generator
	anyReportGen  external.Generator
	riskPredictor external.RiskPredictor
}

// NewService creates a reasoning service. The two generators may share a
// backend. riskPredictor is optional; AssessLabs reports it missing when
// nil.
func NewService(logger *logrus.Logger, nephrologyGen, anyReportGen external.Generator, riskPredictor external.RiskPredictor) *Service {
	return &Service{
		logger:        logger,
		nephrologyGen: nephrologyGen,
		anyReportGen:  anyReportGen,
		riskPredictor: riskPredictor,
	}
}

// ReasonAboutLabs explains structured nephrology lab values. The input is
// expected to carry a riskLevel field; the concern count in a successful
// result follows it.
func (s *Service) ReasonAboutLabs(ctx context.Context, input domain.StructuredLabInput) *domain.ReasoningResult {
	start := time.Now()
	riskLevel, _ := input.RiskLevel()
	s.logger.WithFields(logrus.Fields{
		"model":      s.nephrologyGen.Model(),
		"risk_level": riskLevel,
		"fields":     len(input),
	}).Info("Starting lab reasoning")

	raw, err := s.nephrologyGen.Generate(ctx, BuildNephrologyPrompt(input))
	if err != nil {
		s.logger.WithError(err).Warn("Lab reasoning generation failed")
		return domain.NewErrorResult(generationErrorMessage(err))
	}

	parsed, errMessage := parseModelOutput(raw)
	if errMessage != "" {
		s.logger.WithField("message", errMessage).Warn("Lab reasoning output rejected")
		return domain.NewErrorResult(errMessage)
	}

	result := EnforceNephrology(parsed)
	s.logger.WithFields(logrus.Fields{
		"concerns":    len(result.Concerns),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Lab reasoning completed")
	return result
}

// ReasonAboutAnyReport explains a list of already-flagged abnormal values
// from an arbitrary report. No risk tiering is applied.
func (s *Service) ReasonAboutAnyReport(ctx context.Context, abnormalities domain.AbnormalityList) *domain.AnyReportResult {
	start := time.Now()
	s.logger.WithFields(logrus.Fields{
		"model":         s.anyReportGen.Model(),
		"abnormalities": len(abnormalities),
	}).Info("Starting any-report reasoning")

	raw, err := s.anyReportGen.Generate(ctx, BuildAnyReportPrompt(abnormalities))
	if err != nil {
		s.logger.WithError(err).Warn("Any-report generation failed")
		return domain.NewAnyReportErrorResult(generationErrorMessage(err))
	}

	parsed, errMessage := parseModelOutput(raw)
	if errMessage != "" {
		s.logger.WithField("message", errMessage).Warn("Any-report output rejected")
		return domain.NewAnyReportErrorResult(errMessage)
	}

	result := EnforceAnyReport(parsed)
	s.logger.WithFields(logrus.Fields{
		"concerns":    len(result.Concerns),
		"department":  result.RecommendedDepartment,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Any-report reasoning completed")
	return result
}

// AssessLabs scores the lab values with the risk model, injects the
// predicted riskLevel into a copy of the input, and runs nephrology
// reasoning on the enriched payload. A risk model failure is a hard
// error; reasoning failures still come back as error results.
func (s *Service) AssessLabs(ctx context.Context, input domain.StructuredLabInput) (*domain.RiskPrediction, *domain.ReasoningResult, error) {
	if s.riskPredictor == nil {
		return nil, nil, fmt.Errorf("risk model not configured")
	}

	prediction, err := s.riskPredictor.Predict(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("risk prediction failed: %w", err)
	}

	enriched := make(domain.StructuredLabInput, len(input)+1)
	for k, v := range input {
		enriched[k] = v
	}
	enriched["riskLevel"] = string(prediction.RiskLevel)

	s.logger.WithFields(logrus.Fields{
		"risk_level": prediction.RiskLevel,
		"prediction": prediction.Prediction,
	}).Info("Risk assessment completed, running reasoning")

	return prediction, s.ReasonAboutLabs(ctx, enriched), nil
}

// parseModelOutput strips code fences and parses the remainder. It
// returns the parsed object, or a client-facing message describing why
// the text was unusable.
func parseModelOutput(raw string) (map[string]interface{}, string) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil, msgEmptyContent
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, "JSON parse failed: " + err.Error()
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, msgNotAnObject
	}
	return obj, ""
}

// generationErrorMessage renders a generator error as a client-facing
// message. Transport and availability failures read as request failures;
// a reply that arrived but carried no generated text reads as an invalid
// response.
func generationErrorMessage(err error) string {
	var respErr *domain.InvalidResponseError
	if errors.As(err, &respErr) {
		return "Ollama response invalid: " + respErr.Detail
	}
	var reqErr *domain.RequestFailedError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("Ollama request failed: %v", reqErr.Err)
	}
	return fmt.Sprintf("Ollama request failed: %v", err)
}
