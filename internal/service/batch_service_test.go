package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edubridge/reportcard-api/internal/models"
	"github.com/edubridge/reportcard-api/internal/repository"
	apperrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/storage"
)

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.BatchJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]*models.BatchJob{}}
}

func (m *memJobStore) Create(_ context.Context, job *models.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = "job-1"
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobStore) GetByID(_ context.Context, id string) (*models.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	copied := *job
	return &copied, nil
}

func (m *memJobStore) Update(_ context.Context, id string, params repository.UpdateBatchJobParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Current != nil {
		job.Current = *params.Current
	}
	if params.Report != nil {
		job.Report = *params.Report
	}
	if params.ArtifactURL != nil {
		job.ArtifactURL = params.ArtifactURL
	}
	if params.SummaryURL != nil {
		job.SummaryURL = params.SummaryURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memJobStore) ListQueued(_ context.Context, _ int) ([]models.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var queued []models.BatchJob
	for _, job := range m.jobs {
		if job.Status == models.BatchStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *memJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []models.BatchJob
	for _, job := range m.jobs {
		if job.Status == models.BatchStatusCompleted && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			stale = append(stale, *job)
		}
	}
	return stale, nil
}

type stubFacts struct {
	facts []models.StudentFacts
}

func (s *stubFacts) LoadFacts(_ context.Context, _, _ string) ([]models.StudentFacts, error) {
	return s.facts, nil
}

type stubValidator struct {
	failures []ValidationFailure
}

func (s *stubValidator) ValidateBatch(_ context.Context, _ []models.StudentFacts, _ string) ([]ValidationFailure, error) {
	return s.failures, nil
}

type stubConfigs struct{}

func (stubConfigs) GetSchoolConfig(_ context.Context) (*models.SchoolConfig, error) {
	return &models.SchoolConfig{Name: "Sunrise Academy"}, nil
}

func (stubConfigs) GetClassConfig(_ context.Context, _ string) (*models.ClassConfig, error) {
	return nil, nil
}

type stubReports struct {
	payloads map[string]models.RawReport
}

func (s *stubReports) GetRaw(_ context.Context, studentID, _ string) (models.RawReport, error) {
	raw, ok := s.payloads[studentID]
	if !ok {
		return nil, errors.New("sql: no rows in result set")
	}
	return raw, nil
}

type stubRenderer struct {
	failFor map[string]bool
	calls   int
}

func (s *stubRenderer) Render(card *models.ReportCard, _ string, _ models.WatermarkTag) ([]image.Image, error) {
	s.calls++
	if s.failFor[card.Student.FullName] {
		return nil, errors.New("layout overflow")
	}
	return []image.Image{image.NewRGBA(image.Rect(0, 0, 794, 1122))}, nil
}

type batchFixture struct {
	svc      *BatchService
	store    *memJobStore
	renderer *stubRenderer
	storage  *storage.LocalStorage
}

func newBatchFixture(t *testing.T, roster []models.StudentFacts, failures []ValidationFailure, failRender map[string]bool) *batchFixture {
	t.Helper()
	store := newMemJobStore()
	payloads := map[string]models.RawReport{}
	for _, f := range roster {
		payloads[f.StudentID] = models.RawReport{
			"termLabel": "Term 1",
			"subjects": []interface{}{
				map[string]interface{}{"name": "Math", "total": 80.0, "grade": "A"},
			},
		}
	}
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	renderer := &stubRenderer{failFor: failRender}

	svc := NewBatchService(
		store,
		&stubFacts{facts: roster},
		&stubValidator{failures: failures},
		stubConfigs{},
		&stubReports{payloads: payloads},
		NewNormalizer("classic"),
		renderer,
		local,
		storage.NewSignedURLSigner("test-secret", time.Hour),
		nil,
		BatchConfig{APIPrefix: "/api/v1"},
		nil,
	)
	return &batchFixture{svc: svc, store: store, renderer: renderer, storage: local}
}

func batchRoster() []models.StudentFacts {
	return []models.StudentFacts{
		{RosterEntry: models.RosterEntry{StudentID: "s1", FullName: "Ada Obi", AdmissionNo: "ADM001", ClassID: "c1", ClassName: "JSS 2"}, ReportExists: true},
		{RosterEntry: models.RosterEntry{StudentID: "s2", FullName: "Ben Eze", AdmissionNo: "ADM002", ClassID: "c1", ClassName: "JSS 2"}, ReportExists: true},
		{RosterEntry: models.RosterEntry{StudentID: "s3", FullName: "Chi Ng", AdmissionNo: "ADM003", ClassID: "c1", ClassName: "JSS 2"}, ReportExists: true},
	}
}

func submitAndRun(t *testing.T, fx *batchFixture, params models.BatchParams) *models.BatchJob {
	t.Helper()
	job := &models.BatchJob{Params: params, Total: len(params.StudentIDs), Status: models.BatchStatusQueued}
	require.NoError(t, fx.store.Create(context.Background(), job))
	_, err := fx.svc.run(context.Background(), job.ID)
	require.NoError(t, err)
	updated, err := fx.store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	return updated
}

func zipEntries(t *testing.T, fx *batchFixture, artifactURL string) []string {
	t.Helper()
	token := artifactURL[strings.LastIndex(artifactURL, "/")+1:]
	file, _, err := fx.svc.OpenArtifact(token)
	require.NoError(t, err)
	defer file.Close()
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	return names
}

func TestBatchPartialFailureTolerance(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, map[string]bool{"Ben Eze": true})

	job := submitAndRun(t, fx, models.BatchParams{
		ClassID:    "c1",
		TermID:     "term-1",
		StudentIDs: []string{"s1", "s2", "s3"},
		OutputMode: models.OutputModeZip,
		Watermark:  models.WatermarkFinal,
	})

	assert.Equal(t, models.BatchStatusCompleted, job.Status)
	assert.Equal(t, []string{"Ada Obi", "Chi Ng"}, job.Report.Successes)
	require.Len(t, job.Report.Failures, 1)
	assert.Equal(t, "Ben Eze", job.Report.Failures[0].Name)
	assert.Equal(t, "layout overflow", job.Report.Failures[0].Reason)
	assert.Equal(t, 3, job.Current)

	require.NotNil(t, job.ArtifactURL)
	entries := zipEntries(t, fx, *job.ArtifactURL)
	assert.Len(t, entries, 2)
	assert.Contains(t, entries, "Ada_Obi_ADM001_Term_1_Report.pdf")
	assert.Contains(t, entries, "Chi_Ng_ADM003_Term_1_Report.pdf")
}

func TestBatchTotalFailure(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, map[string]bool{
		"Ada Obi": true, "Ben Eze": true, "Chi Ng": true,
	})

	job := submitAndRun(t, fx, models.BatchParams{
		ClassID:    "c1",
		TermID:     "term-1",
		StudentIDs: []string{"s1", "s2", "s3"},
		OutputMode: models.OutputModeZip,
	})

	assert.Equal(t, models.BatchStatusFailed, job.Status)
	assert.Nil(t, job.ArtifactURL)
	require.NotNil(t, job.ErrorMessage)
	assert.Len(t, job.Report.Failures, 3)
	assert.Empty(t, job.Report.Successes)
}

func TestBatchValidationBlocksBeforeAnyRender(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), []ValidationFailure{
		{StudentID: "s2", Name: "Ben Eze", Reason: "report has no subject scores"},
	}, nil)

	job := submitAndRun(t, fx, models.BatchParams{
		ClassID:    "c1",
		TermID:     "term-1",
		StudentIDs: []string{"s1", "s2", "s3"},
		OutputMode: models.OutputModeZip,
	})

	assert.Equal(t, models.BatchStatusFailed, job.Status)
	assert.Zero(t, fx.renderer.calls, "no student may be rendered after a validation failure")
	assert.Nil(t, job.ArtifactURL)
	require.Len(t, job.Report.Failures, 1)
	assert.Equal(t, "report has no subject scores", job.Report.Failures[0].Reason)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, apperrors.ErrBatchBlocked.Message, *job.ErrorMessage)
}

func TestBatchCombinedModeWithCoverSheet(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, nil)

	params := models.BatchParams{
		ClassID:           "c1",
		TermID:            "term-1",
		StudentIDs:        []string{"s1", "s2", "s3"},
		OutputMode:        models.OutputModeCombined,
		IncludeCoverSheet: true,
	}
	selected := selectFacts(batchRoster(), params.StudentIDs)
	school, _ := stubConfigs{}.GetSchoolConfig(context.Background())

	outcome, err := fx.svc.generate(context.Background(), "job-x", params, selected, school, nil)
	require.NoError(t, err)

	// Cover occupies page 1; each of the 3 students starts on a fresh page.
	assert.Equal(t, 4, outcome.combined.PageCount())
	assert.Len(t, outcome.report.Successes, 3)

	job := submitAndRun(t, fx, params)
	assert.Equal(t, models.BatchStatusCompleted, job.Status)
	require.NotNil(t, job.ArtifactURL)
	assert.Contains(t, *job.ArtifactURL, "/report-cards/export/")
}

func TestBatchCSVSummaryAddedToArchive(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, nil)

	job := submitAndRun(t, fx, models.BatchParams{
		ClassID:           "c1",
		TermID:            "term-1",
		StudentIDs:        []string{"s1", "s2"},
		OutputMode:        models.OutputModeZip,
		IncludeCSVSummary: true,
	})

	require.NotNil(t, job.ArtifactURL)
	entries := zipEntries(t, fx, *job.ArtifactURL)
	assert.Len(t, entries, 3)
	assert.Contains(t, entries, "summary.csv")
}

func TestBatchCombinedModeCSVSummaryIsSeparate(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, nil)

	job := submitAndRun(t, fx, models.BatchParams{
		ClassID:           "c1",
		TermID:            "term-1",
		StudentIDs:        []string{"s1", "s2"},
		OutputMode:        models.OutputModeCombined,
		IncludeCSVSummary: true,
	})

	require.NotNil(t, job.SummaryURL)
	assert.Contains(t, *job.SummaryURL, "/report-cards/export/")
}

func TestBatchCancellationDiscardsPartialWork(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, nil)

	job := &models.BatchJob{
		Params: models.BatchParams{
			ClassID:    "c1",
			TermID:     "term-1",
			StudentIDs: []string{"s1", "s2", "s3"},
			OutputMode: models.OutputModeZip,
		},
		Total:  3,
		Status: models.BatchStatusQueued,
	}
	require.NoError(t, fx.store.Create(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fx.svc.run(ctx, job.ID)
	require.Error(t, err)

	stored, err := fx.store.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ArtifactURL, "no artifact may be exposed before packaging completes")
	assert.NotEqual(t, models.BatchStatusCompleted, stored.Status)
}

func TestBatchSubmitValidatesParams(t *testing.T) {
	fx := newBatchFixture(t, batchRoster(), nil, nil)
	fx.svc.Start(context.Background())
	defer fx.svc.Stop()

	_, err := fx.svc.Submit(context.Background(), models.BatchParams{TermID: "term-1"}, "user-1")
	require.Error(t, err)

	_, err = fx.svc.Submit(context.Background(), models.BatchParams{
		ClassID: "c1", TermID: "term-1", StudentIDs: []string{"s1"}, OutputMode: "tarball",
	}, "user-1")
	require.Error(t, err)

	_, err = fx.svc.Submit(context.Background(), models.BatchParams{
		ClassID: "c1", TermID: "term-1", StudentIDs: []string{"s1"}, Variant: "neon",
	}, "user-1")
	require.Error(t, err)
}
