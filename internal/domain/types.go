// Package domain contains the core entities of the ThirdOp lab reasoning
// service: structured lab inputs, the normalized concern/result contracts
// returned to patients, and the configuration shared across transports.
//
// Results follow an error-as-data convention: failures are reported through
// an error flag and message on the result itself, never through panics or
// escaped errors. Callers distinguish success from failure solely via the
// Error field.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RiskLevel is the tiered kidney-risk signal computed by the upstream risk
// model and consumed by the nephrology prompt.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// ReportKind selects which reasoning contract applies to a run.
type ReportKind string

const (
	KindNephrology ReportKind = "nephrology"
	KindAnyReport  ReportKind = "any_report"
)

// StructuredLabInput is the caller-owned mapping of lab-parameter name to
// value, optionally carrying a riskLevel key. Values stay untyped so the
// prompt payload reproduces the caller's document exactly.
type StructuredLabInput map[string]interface{}

// RiskLevel returns the embedded riskLevel value, if present and a string.
func (in StructuredLabInput) RiskLevel() (RiskLevel, bool) {
	v, ok := in["riskLevel"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return RiskLevel(s), true
}

// AbnormalityList is the ordered sequence of already-flagged out-of-range
// values for any-report mode. Elements are usually {parameter, value, status}
// objects but are kept untyped so no caller field is dropped from the prompt.
type AbnormalityList []interface{}

// Abnormality is the documented shape of one AbnormalityList element.
type Abnormality struct {
	Parameter string      `json:"parameter"`
	Value     interface{} `json:"value"`
	Status    string      `json:"status"`
}

// Concern is one normalized clinical talking point. Concerns are produced
// only by schema enforcement; callers never construct them.
type Concern struct {
	Title           string   `json:"title"`
	Reason          string   `json:"reason"`
	DoctorQuestions []string `json:"doctorQuestions"`
}

// ReasoningResult is the nephrology-mode outcome. On success Error is false
// (and omitted from JSON); on failure Concerns is empty and Message explains
// the failure.
type ReasoningResult struct {
	Error    bool      `json:"error,omitempty"`
	Message  string    `json:"message,omitempty"`
	Concerns []Concern `json:"concerns"`
}

// AnyReportResult is the any-report-mode outcome. RecommendedDepartment and
// Precautions are always present, defaulting to "" and [] on failure.
type AnyReportResult struct {
	Error                 bool      `json:"error,omitempty"`
	Message               string    `json:"message,omitempty"`
	Concerns              []Concern `json:"concerns"`
	RecommendedDepartment string    `json:"recommendedDepartment"`
	Precautions           []string  `json:"precautions"`
}

// NewErrorResult builds the failure-shaped nephrology result.
func NewErrorResult(message string) *ReasoningResult {
	return &ReasoningResult{
		Error:    true,
		Message:  message,
		Concerns: []Concern{},
	}
}

// NewAnyReportErrorResult builds the failure-shaped any-report result.
func NewAnyReportErrorResult(message string) *AnyReportResult {
	return &AnyReportResult{
		Error:                 true,
		Message:               message,
		Concerns:              []Concern{},
		RecommendedDepartment: "",
		Precautions:           []string{},
	}
}

// RiskPrediction is the reply of the external risk-model collaborator,
// enriched with the derived risk tier.
type RiskPrediction struct {
	Prediction    int       `json:"prediction"`
	Probabilities []float64 `json:"probabilities"`
	RiskLevel     RiskLevel `json:"riskLevel"`
}

// AnalysisRecord is one persisted reasoning run.
type AnalysisRecord struct {
	ID         uuid.UUID       `json:"id"`
	Kind       ReportKind      `json:"kind"`
	RiskLevel  string          `json:"risk_level,omitempty"`
	Input      json.RawMessage `json:"input"`
	Result     json.RawMessage `json:"result"`
	Failed     bool            `json:"failed"`
	Message    string          `json:"message,omitempty"`
	Model      string          `json:"model"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}
