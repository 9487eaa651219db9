package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edubridge/reportcard-api/internal/models"
)

// ShareLinkRepository persists public share tokens per (student, term).
type ShareLinkRepository struct {
	db *sqlx.DB
}

// NewShareLinkRepository constructs the repository.
func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

// GetByStudentTerm returns the latest link for the pair, if any.
func (r *ShareLinkRepository) GetByStudentTerm(ctx context.Context, studentID, termID string) (*models.ShareLink, error) {
	const query = `SELECT id, student_id, term_id, token, slug, expires_at, published, created_at, updated_at
FROM share_links WHERE student_id = $1 AND term_id = $2`
	var link models.ShareLink
	if err := r.db.GetContext(ctx, &link, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("get share link: %w", err)
	}
	return &link, nil
}

// GetByToken resolves a link from its opaque token.
func (r *ShareLinkRepository) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	const query = `SELECT id, student_id, term_id, token, slug, expires_at, published, created_at, updated_at
FROM share_links WHERE token = $1`
	var link models.ShareLink
	if err := r.db.GetContext(ctx, &link, query, token); err != nil {
		return nil, fmt.Errorf("get share link by token: %w", err)
	}
	return &link, nil
}

// Upsert inserts or refreshes the link for a (student, term) pair. Expired
// links are overwritten in place rather than deleted.
func (r *ShareLinkRepository) Upsert(ctx context.Context, link *models.ShareLink) error {
	now := time.Now().UTC()
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now
	const query = `INSERT INTO share_links (id, student_id, term_id, token, slug, expires_at, published, created_at, updated_at)
VALUES (:id, :student_id, :term_id, :token, :slug, :expires_at, :published, :created_at, :updated_at)
ON CONFLICT (student_id, term_id) DO UPDATE
SET token = EXCLUDED.token,
    slug = EXCLUDED.slug,
    expires_at = EXCLUDED.expires_at,
    published = EXCLUDED.published,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("upsert share link: %w", err)
	}
	return nil
}
