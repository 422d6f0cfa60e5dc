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

// Default generation backend settings, matching a local Ollama install.
const (
	DefaultOllamaURL     = "http://localhost:11434/api/generate"
	DefaultOllamaModel   = "gemma:7b"
	DefaultOllamaTimeout = 120 * time.Second
)

// OllamaClient performs single-shot generation calls against an
// Ollama-compatible backend. Decoding is pinned to temperature zero and
// streaming disabled, so identical prompts produce identical text.
type OllamaClient struct {
	url        string
	model      string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// generateRequest is the non-streaming body of the /api/generate call.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

// NewOllamaClient creates a generation client, applying the documented
// defaults for unset fields.
func NewOllamaClient(config domain.OllamaConfig) *OllamaClient {
	if config.URL == "" {
		config.URL = DefaultOllamaURL
	}
	if config.Model == "" {
		config.Model = DefaultOllamaModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultOllamaTimeout
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &OllamaClient{
		url:   config.URL,
		model: config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: limiter,
	}
}

// Model returns the model identifier requests are issued against.
func (c *OllamaClient) Model() string {
	return c.model
}

// Generate issues one blocking POST and returns the raw generated text.
// When stream is false the backend carries the full text in the "response"
// field; a non-string value there is stringified rather than rejected.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.rateLimit != nil {
		if err := c.rateLimit.Wait(ctx); err != nil {
			return "", &domain.RequestFailedError{Err: fmt.Errorf("rate limit wait failed: %w", err)}
		}
	}

	payload := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: generateOptions{Temperature: 0.0},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", &domain.RequestFailedError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &domain.RequestFailedError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.RequestFailedError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.RequestFailedError{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.RequestFailedError{
			Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var decoded struct {
		Response interface{} `json:"response"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", &domain.RequestFailedError{Err: fmt.Errorf("decoding response: %w", err)}
	}

	// Missing and null are equivalent here: neither carries generated text.
	if decoded.Response == nil {
		return "", &domain.InvalidResponseError{Detail: "Ollama response missing 'response' field"}
	}

	if text, ok := decoded.Response.(string); ok {
		return text, nil
	}
	return fmt.Sprint(decoded.Response), nil
}
