package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// Default risk-model predictor settings.
const (
	DefaultRiskModelURL     = "http://localhost:5000/predict"
	DefaultRiskModelTimeout = 30 * time.Second
)

// ModelFeatures lists the lab parameters the IgAN risk model was trained on,
// in the order the predictor expects. Every Predict call must supply all six.
var ModelFeatures = []string{
	"CREATININE (mg/dL)",
	"UREA (mg/dL)",
	"ALBUMIN (g/dL)",
	"URIC ACID (mg/dL)",
	"eGFR",
	"ACR",
}

// Probability bands for mapping the positive-class score onto risk tiers.
const (
	highRiskThreshold     = 0.70
	moderateRiskThreshold = 0.40
)

// RiskModelClient calls the platform's risk predictor endpoint. The
// predictor returns a class prediction plus per-class probabilities; the
// client derives the LOW/MODERATE/HIGH tier consumed by the nephrology prompt.
type RiskModelClient struct {
	url        string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewRiskModelClient creates a risk-model client, applying defaults for
// unset fields.
func NewRiskModelClient(config domain.RiskModelConfig) *RiskModelClient {
	if config.URL == "" {
		config.URL = DefaultRiskModelURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultRiskModelTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = 10
	}

	return &RiskModelClient{
		url: config.URL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Predict posts the model features and returns the prediction with its
// derived risk tier. The input may carry arbitrary extra lab values; only
// the six model features are forwarded. All six must be present and
// numeric, so the client fails fast instead of calling out.
func (c *RiskModelClient) Predict(ctx context.Context, input map[string]interface{}) (*domain.RiskPrediction, error) {
	features := make(map[string]float64, len(ModelFeatures))
	var missing []string
	for _, name := range ModelFeatures {
		v, ok := toFloat(input[name])
		if !ok {
			missing = append(missing, name)
			continue
		}
		features[name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing features: %s", strings.Join(missing, ", "))
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encoding features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("risk model request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("risk model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded struct {
		Prediction    int       `json:"prediction"`
		Probabilities []float64 `json:"probabilities"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &domain.RiskPrediction{
		Prediction:    decoded.Prediction,
		Probabilities: decoded.Probabilities,
		RiskLevel:     riskLevelFor(decoded.Prediction, decoded.Probabilities),
	}, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// riskLevelFor maps the positive-class probability onto the triage bands.
// Predictors that omit probabilities degrade to the binary prediction.
func riskLevelFor(prediction int, probabilities []float64) domain.RiskLevel {
	if len(probabilities) < 2 {
		if prediction == 1 {
			return domain.RiskHigh
		}
		return domain.RiskLow
	}

	p := probabilities[1]
	switch {
	case p >= highRiskThreshold:
		return domain.RiskHigh
	case p >= moderateRiskThreshold:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}
