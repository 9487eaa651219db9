package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edubridge/reportcard-api/internal/models"
)

// BatchJobRepository persists batch generation job state.
type BatchJobRepository struct {
	db *sqlx.DB
}

// NewBatchJobRepository constructs the repository.
func NewBatchJobRepository(db *sqlx.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

// Create inserts a new batch job row with generated defaults.
func (r *BatchJobRepository) Create(ctx context.Context, job *models.BatchJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.BatchStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO batch_jobs (id, params, status, current, total, report, artifact_url, summary_url, error_message, created_by, created_at, finished_at)
VALUES (:id, :params, :status, :current, :total, :report, :artifact_url, :summary_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create batch job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *BatchJobRepository) GetByID(ctx context.Context, id string) (*models.BatchJob, error) {
	const query = `SELECT id, params, status, current, total, report, artifact_url, summary_url, error_message, created_by, created_at, finished_at
FROM batch_jobs WHERE id = $1`
	var job models.BatchJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get batch job: %w", err)
	}
	return &job, nil
}

// UpdateBatchJobParams defines the mutable fields of a batch job row.
type UpdateBatchJobParams struct {
	Status       *models.BatchStatus
	Current      *int
	Total        *int
	Report       *models.BatchReport
	ArtifactURL  *string
	SummaryURL   *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *BatchJobRepository) Update(ctx context.Context, id string, params UpdateBatchJobParams) error {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Current != nil {
		set = append(set, fmt.Sprintf("current = $%d", argPos))
		args = append(args, *params.Current)
		argPos++
	}
	if params.Total != nil {
		set = append(set, fmt.Sprintf("total = $%d", argPos))
		args = append(args, *params.Total)
		argPos++
	}
	if params.Report != nil {
		set = append(set, fmt.Sprintf("report = $%d", argPos))
		args = append(args, *params.Report)
		argPos++
	}
	if params.ArtifactURL != nil {
		set = append(set, fmt.Sprintf("artifact_url = $%d", argPos))
		args = append(args, *params.ArtifactURL)
		argPos++
	}
	if params.SummaryURL != nil {
		set = append(set, fmt.Sprintf("summary_url = $%d", argPos))
		args = append(args, *params.SummaryURL)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE batch_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update batch job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *BatchJobRepository) ListQueued(ctx context.Context, limit int) ([]models.BatchJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, params, status, current, total, report, artifact_url, summary_url, error_message, created_by, created_at, finished_at
FROM batch_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.BatchJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued batch jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *BatchJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BatchJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, params, status, current, total, report, artifact_url, summary_url, error_message, created_by, created_at, finished_at
FROM batch_jobs WHERE status = 'COMPLETED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2`
	var jobs []models.BatchJob
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished batch jobs: %w", err)
	}
	return jobs, nil
}
