// Package feedback provides clinician feedback storage for reasoning
// results. Each entry rates one generated concern: whether it was helpful
// to the patient conversation and clinically accurate, with an optional
// corrected title and free-form notes.
package feedback

import (
	"context"
	"io"
	"time"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// Feedback represents a clinician's rating of one generated concern.
type Feedback struct {
	ID             int64             `json:"id,omitempty"`
	AnalysisID     string            `json:"analysis_id"`               // Analysis run the concern came from
	ReportKind     domain.ReportKind `json:"report_kind"`               // nephrology or any_report
	ConcernTitle   string            `json:"concern_title"`             // Title as generated
	Helpful        bool              `json:"helpful"`                   // Useful for the patient conversation?
	Accurate       bool              `json:"accurate"`                  // Clinically accurate?
	CorrectedTitle string            `json:"corrected_title,omitempty"` // Clinician's replacement title
	Notes          string            `json:"notes,omitempty"`           // Free-form notes
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for a concern.
	// If feedback for the same analysis_id+concern_title exists, it will
	// be updated.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for a concern within an analysis.
	// Returns nil without error when no entry exists.
	Get(ctx context.Context, analysisID string, concernTitle string) (*Feedback, error)

	// List returns all feedback entries with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// CountHelpful returns how many entries were marked helpful.
	CountHelpful(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// Stats summarizes the stored feedback for reporting endpoints.
type Stats struct {
	Total   int64 `json:"total"`
	Helpful int64 `json:"helpful"`
}

// CollectStats reads the aggregate counters from a store.
func CollectStats(ctx context.Context, store Store) (*Stats, error) {
	total, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	helpful, err := store.CountHelpful(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, Helpful: helpful}, nil
}
