package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestBatchJobRepositoryCreateDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	mock.ExpectExec("INSERT INTO batch_jobs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.BatchJob{
		Params: models.BatchParams{
			ClassID:    "class-1",
			TermID:     "term-1",
			OutputMode: models.OutputModeZip,
			Variant:    "classic",
			Watermark:  models.WatermarkFinal,
		},
		Total:     10,
		CreatedBy: "user-1",
	}
	err := repo.Create(context.Background(), job)

	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.BatchStatusQueued, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchJobRepositoryGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "current", "total", "report", "artifact_url", "summary_url", "error_message", "created_by", "created_at", "finished_at"}).
		AddRow("job-1", []byte(`{"classId":"class-1","termId":"term-1","outputMode":"zip","variant":"classic","watermark":"FINAL"}`),
			"GENERATING", 3, 10, []byte(`{"successes":["Ada"],"failures":[]}`), nil, nil, nil, "user-1", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM batch_jobs WHERE id = $1")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusGenerating, job.Status)
	assert.Equal(t, "class-1", job.Params.ClassID)
	assert.Equal(t, 3, job.Current)
	assert.Equal(t, []string{"Ada"}, job.Report.Successes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchJobRepositoryUpdateBuildsDynamicSet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	status := models.BatchStatusCompleted
	current := 10
	finished := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE batch_jobs SET status = $1, current = $2, finished_at = $3 WHERE id = $4")).
		WithArgs(status, current, finished, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateBatchJobParams{
		Status:     &status,
		Current:    &current,
		FinishedAt: &finished,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchJobRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	err := repo.Update(context.Background(), "job-1", UpdateBatchJobParams{})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchJobRepositoryListQueued(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	rows := sqlmock.NewRows([]string{"id", "params", "status", "current", "total", "report", "artifact_url", "summary_url", "error_message", "created_by", "created_at", "finished_at"}).
		AddRow("job-1", []byte(`{}`), "QUEUED", 0, 5, []byte(`{}`), nil, nil, nil, "user-1", time.Now(), nil).
		AddRow("job-2", []byte(`{}`), "QUEUED", 0, 8, []byte(`{}`), nil, nil, nil, "user-2", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-1", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchJobRepositoryListFinishedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBatchJobRepository(db)

	cutoff := time.Now().Add(-24 * time.Hour)
	finished := cutoff.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "params", "status", "current", "total", "report", "artifact_url", "summary_url", "error_message", "created_by", "created_at", "finished_at"}).
		AddRow("job-old", []byte(`{}`), "COMPLETED", 5, 5, []byte(`{}`), nil, nil, nil, "user-1", finished.Add(-time.Hour), finished)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'COMPLETED' AND finished_at IS NOT NULL AND finished_at < $1")).
		WithArgs(cutoff, 50).
		WillReturnRows(rows)

	jobs, err := repo.ListFinishedBefore(context.Background(), cutoff, 0)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-old", jobs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
