package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edubridge/reportcard-api/internal/models"
)

// ReportRepository reads the raw per-student report payloads. Payloads are
// stored as JSONB in whichever historic shape produced them; normalization
// happens upstream in the service layer.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetRaw fetches the stored payload for one (student, term) pair.
func (r *ReportRepository) GetRaw(ctx context.Context, studentID, termID string) (models.RawReport, error) {
	const query = `SELECT payload FROM reports WHERE student_id = $1 AND term_id = $2`
	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("get report payload: %w", err)
	}
	raw := models.RawReport{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode report payload: %w", err)
		}
	}
	return raw, nil
}

// Exists reports whether a report row is present for the pair.
func (r *ReportRepository) Exists(ctx context.Context, studentID, termID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM reports WHERE student_id = $1 AND term_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, termID); err != nil {
		return false, fmt.Errorf("check report existence: %w", err)
	}
	return exists, nil
}

// MarkPublished flips the published flag once a share link is issued.
func (r *ReportRepository) MarkPublished(ctx context.Context, studentID, termID string) error {
	const query = `UPDATE reports SET published = TRUE WHERE student_id = $1 AND term_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, termID); err != nil {
		return fmt.Errorf("mark report published: %w", err)
	}
	return nil
}
