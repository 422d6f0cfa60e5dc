// Package history persists reasoning runs so clinicians can revisit what
// the model told a patient. Persistence is best-effort: the API layer logs
// and continues when a write fails.
package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// Repository handles analysis-run persistence
type Repository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewRepository creates a new analysis-run repository
func NewRepository(db *pgxpool.Pool, logger *logrus.Logger) *Repository {
	return &Repository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new analysis run into the database
func (r *Repository) Create(ctx context.Context, record *domain.AnalysisRecord) error {
	query := `
		INSERT INTO analysis_runs (
			id, kind, risk_level, input, result,
			failed, message, model, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.Exec(ctx, query,
		record.ID,
		string(record.Kind),
		record.RiskLevel,
		record.Input,
		record.Result,
		record.Failed,
		record.Message,
		record.Model,
		record.DurationMS,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"analysis_id": record.ID,
			"kind":        record.Kind,
			"error":       err,
		}).Error("Failed to create analysis record")
		return fmt.Errorf("creating analysis record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"analysis_id": record.ID,
		"kind":        record.Kind,
		"failed":      record.Failed,
	}).Info("Analysis record created")

	return nil
}

// GetByID retrieves an analysis run by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AnalysisRecord, error) {
	query := `
		SELECT id, kind, risk_level, input, result,
			   failed, message, model, duration_ms, created_at
		FROM analysis_runs
		WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("analysis record not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to get analysis record by ID")
		return nil, fmt.Errorf("getting analysis record by ID: %w", err)
	}

	return record, nil
}

// List retrieves analysis runs ordered newest-first with pagination
func (r *Repository) List(ctx context.Context, limit, offset int) ([]*domain.AnalysisRecord, error) {
	query := `
		SELECT id, kind, risk_level, input, result,
			   failed, message, model, duration_ms, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.WithError(err).Error("Failed to list analysis records")
		return nil, fmt.Errorf("listing analysis records: %w", err)
	}
	defer rows.Close()

	var records []*domain.AnalysisRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis record row: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating analysis record rows: %w", err)
	}

	return records, nil
}

// CountByKind returns how many runs of the given kind have been stored
func (r *Repository) CountByKind(ctx context.Context, kind domain.ReportKind) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM analysis_runs WHERE kind = $1`, string(kind),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting analysis records: %w", err)
	}
	return count, nil
}

// Delete removes an analysis run from the database
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM analysis_runs WHERE id = $1`, id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"analysis_id": id,
			"error":       err,
		}).Error("Failed to delete analysis record")
		return fmt.Errorf("deleting analysis record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("analysis record not found: %w", domain.ErrNotFound)
	}

	r.log.WithField("analysis_id", id).Info("Analysis record deleted")
	return nil
}

func scanRecord(row pgx.Row) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	var kind string

	err := row.Scan(
		&record.ID,
		&kind,
		&record.RiskLevel,
		&record.Input,
		&record.Result,
		&record.Failed,
		&record.Message,
		&record.Model,
		&record.DurationMS,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Kind = domain.ReportKind(kind)
	return &record, nil
}
