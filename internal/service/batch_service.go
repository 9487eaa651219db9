package service

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edubridge/reportcard-api/internal/models"
	"github.com/edubridge/reportcard-api/internal/repository"
	apperrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/export"
	"github.com/edubridge/reportcard-api/pkg/jobs"
	"github.com/edubridge/reportcard-api/pkg/render"
	"github.com/edubridge/reportcard-api/pkg/storage"
)

type batchJobStore interface {
	Create(ctx context.Context, job *models.BatchJob) error
	GetByID(ctx context.Context, id string) (*models.BatchJob, error)
	Update(ctx context.Context, id string, params repository.UpdateBatchJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.BatchJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.BatchJob, error)
}

type factsLoader interface {
	LoadFacts(ctx context.Context, classID, termID string) ([]models.StudentFacts, error)
}

type batchValidator interface {
	ValidateBatch(ctx context.Context, selected []models.StudentFacts, termID string) ([]ValidationFailure, error)
}

type configSource interface {
	GetSchoolConfig(ctx context.Context) (*models.SchoolConfig, error)
	GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error)
}

type pageRenderer interface {
	Render(card *models.ReportCard, variant string, watermark models.WatermarkTag) ([]image.Image, error)
}

type artifactStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type batchMetrics interface {
	BatchFinished(status models.BatchStatus, duration time.Duration)
	StudentProcessed(success bool)
}

// BatchConfig tunes orchestration behaviour.
type BatchConfig struct {
	APIPrefix         string
	ResultTTL         time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// BatchService owns the report-card batch lifecycle: submission, the state
// machine queued through completed or failed, per-student pipeline execution
// on a background worker, packaging and signed-URL downloads.
type BatchService struct {
	store      batchJobStore
	facts      factsLoader
	validator  batchValidator
	configs    configSource
	reports    rawReportSource
	normalizer *Normalizer
	renderer   pageRenderer
	storage    artifactStorage
	signer     *storage.SignedURLSigner
	metrics    batchMetrics
	logger     *zap.Logger
	cfg        BatchConfig

	queue *jobs.Queue
}

// NewBatchService constructs a BatchService with its own worker queue. Call
// Start before submitting jobs and Stop on shutdown.
func NewBatchService(
	store batchJobStore,
	facts factsLoader,
	validator batchValidator,
	configs configSource,
	reports rawReportSource,
	normalizer *Normalizer,
	renderer pageRenderer,
	artifacts artifactStorage,
	signer *storage.SignedURLSigner,
	metrics batchMetrics,
	cfg BatchConfig,
	logger *zap.Logger,
) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer("")
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	s := &BatchService{
		store:      store,
		facts:      facts,
		validator:  validator,
		configs:    configs,
		reports:    reports,
		normalizer: normalizer,
		renderer:   renderer,
		storage:    artifacts,
		signer:     signer,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
	s.queue = jobs.NewQueue("report-card-batches", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the batch workers.
func (s *BatchService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the batch workers.
func (s *BatchService) Stop() {
	s.queue.Stop()
}

// Submit persists a new batch job and enqueues it for processing.
func (s *BatchService) Submit(ctx context.Context, params models.BatchParams, createdBy string) (*models.BatchJob, error) {
	if err := validateParams(&params); err != nil {
		return nil, err
	}

	job := &models.BatchJob{
		Params:    params,
		Status:    models.BatchStatusQueued,
		Total:     len(params.StudentIDs),
		CreatedBy: createdBy,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: "report-card-batch"}); err != nil {
		return nil, err
	}
	s.logger.Info("batch submitted",
		zap.String("batch_id", job.ID),
		zap.String("class_id", params.ClassID),
		zap.Int("students", job.Total),
		zap.String("output_mode", string(params.OutputMode)))
	return job, nil
}

func validateParams(params *models.BatchParams) error {
	if params.ClassID == "" || params.TermID == "" {
		return apperrors.Clone(apperrors.ErrValidation, "classId and termId are required")
	}
	if len(params.StudentIDs) == 0 {
		return apperrors.Clone(apperrors.ErrValidation, "at least one student must be selected")
	}
	switch params.OutputMode {
	case models.OutputModeZip, models.OutputModeCombined:
	case "":
		params.OutputMode = models.OutputModeZip
	default:
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown output mode %q", params.OutputMode))
	}
	switch params.Watermark {
	case models.WatermarkDraft, models.WatermarkFinal, models.WatermarkNone:
	case "":
		params.Watermark = models.WatermarkNone
	default:
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown watermark %q", params.Watermark))
	}
	if params.Variant != "" && !render.IsVariant(params.Variant) {
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown layout variant %q", params.Variant))
	}
	return nil
}

// Get returns one batch job with its progress and report.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchJob, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound.Code, apperrors.ErrNotFound.Status, "batch job not found")
	}
	return job, nil
}

func (s *BatchService) handleJob(ctx context.Context, job jobs.Job) error {
	started := time.Now()
	status, err := s.run(ctx, job.ID)
	if s.metrics != nil && status != "" {
		s.metrics.BatchFinished(status, time.Since(started))
	}
	return err
}

// run executes the full pipeline for one batch job. Returning an error hands
// the job back to the queue's retry loop; terminal outcomes are persisted and
// return nil.
func (s *BatchService) run(ctx context.Context, batchID string) (models.BatchStatus, error) {
	job, err := s.store.GetByID(ctx, batchID)
	if err != nil {
		return "", err
	}
	params := job.Params

	if err := s.setStatus(ctx, batchID, models.BatchStatusValidating); err != nil {
		return "", err
	}

	allFacts, err := s.facts.LoadFacts(ctx, params.ClassID, params.TermID)
	if err != nil {
		return "", err
	}
	selected := selectFacts(allFacts, params.StudentIDs)

	failures, err := s.validator.ValidateBatch(ctx, selected, params.TermID)
	if err != nil {
		return "", err
	}
	if len(failures) > 0 {
		// Validation is all-or-nothing: nothing is rendered and the full
		// per-student reason list is surfaced.
		report := models.BatchReport{Successes: []string{}, Failures: make([]models.BatchFailure, 0, len(failures))}
		for _, f := range failures {
			report.Failures = append(report.Failures, models.BatchFailure{Name: f.Name, Reason: f.Reason})
		}
		return models.BatchStatusFailed, s.finishFailed(ctx, batchID, report, apperrors.ErrBatchBlocked.Message)
	}

	if err := s.setStatus(ctx, batchID, models.BatchStatusGenerating); err != nil {
		return "", err
	}

	school, err := s.configs.GetSchoolConfig(ctx)
	if err != nil {
		return "", err
	}
	class, err := s.configs.GetClassConfig(ctx, params.ClassID)
	if err != nil {
		return "", err
	}

	outcome, err := s.generate(ctx, batchID, params, selected, school, class)
	if err != nil {
		// Cancellation before packaging discards all partial work; no
		// artifact is ever exposed from an interrupted run.
		return "", err
	}

	if len(outcome.report.Successes) == 0 {
		return models.BatchStatusFailed, s.finishFailed(ctx, batchID, outcome.report, "no report cards could be generated")
	}

	if err := s.setStatus(ctx, batchID, models.BatchStatusPackaging); err != nil {
		return "", err
	}
	artifactURL, summaryURL, err := s.packageArtifacts(batchID, params, selected, outcome)
	if err != nil {
		return "", err
	}

	status := models.BatchStatusCompleted
	now := time.Now().UTC()
	current := job.Total
	update := repository.UpdateBatchJobParams{
		Status:      &status,
		Current:     &current,
		Report:      &outcome.report,
		ArtifactURL: &artifactURL,
		FinishedAt:  &now,
	}
	if summaryURL != "" {
		update.SummaryURL = &summaryURL
	}
	if err := s.store.Update(ctx, batchID, update); err != nil {
		return "", err
	}
	s.logger.Info("batch completed",
		zap.String("batch_id", batchID),
		zap.Int("successes", len(outcome.report.Successes)),
		zap.Int("failures", len(outcome.report.Failures)))
	return status, nil
}

// generationOutcome carries per-student results from generating into
// packaging.
type generationOutcome struct {
	report    models.BatchReport
	documents []studentDocument
	combined  *export.PDFAssembler
	termName  string
	className string
	coverInfo *export.CoverInfo
}

type studentDocument struct {
	entry models.RosterEntry
	data  []byte
}

// generate iterates the selected students in input order and runs the
// per-student pipeline: fetch raw, normalize, render, assemble. A student's
// failure is recorded and the loop continues; only cancellation aborts.
func (s *BatchService) generate(ctx context.Context, batchID string, params models.BatchParams, selected []models.StudentFacts, school *models.SchoolConfig, class *models.ClassConfig) (*generationOutcome, error) {
	outcome := &generationOutcome{
		report:   models.BatchReport{Successes: []string{}, Failures: []models.BatchFailure{}},
		termName: params.TermID,
	}

	var combined *export.PDFAssembler
	if params.OutputMode == models.OutputModeCombined {
		combined = export.NewPDFAssembler()
		if params.IncludeCoverSheet {
			// Placeholder values are backfilled below once the first card
			// resolves the display names; the cover still always precedes
			// student content.
			outcome.coverInfo = &export.CoverInfo{
				StudentCount: len(selected),
				Watermark:    string(params.Watermark),
				GeneratedAt:  time.Now().UTC(),
			}
		}
	}

	for i, student := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, pages, err := s.renderStudent(ctx, student, params, school, class)
		if err != nil {
			outcome.report.Failures = append(outcome.report.Failures, models.BatchFailure{
				Name:   student.FullName,
				Reason: err.Error(),
			})
			if s.metrics != nil {
				s.metrics.StudentProcessed(false)
			}
			s.logger.Warn("student render failed",
				zap.String("student_id", student.StudentID),
				zap.Error(err))
			s.bumpProgress(ctx, batchID, i+1)
			continue
		}

		if outcome.termName == params.TermID && card.Term.Term != "" {
			outcome.termName = card.Term.Term
		}
		if outcome.className == "" {
			outcome.className = card.Student.ClassName
		}
		if outcome.coverInfo != nil && outcome.coverInfo.Title == "" {
			outcome.coverInfo.Title = fmt.Sprintf("%s Report Cards", card.Student.ClassName)
			outcome.coverInfo.ClassName = card.Student.ClassName
			outcome.coverInfo.TermName = outcome.termName
			outcome.coverInfo.Template = card.Visual.Variant
			combined.AddCoverPage(*outcome.coverInfo)
			outcome.coverInfo = nil
		}

		switch params.OutputMode {
		case models.OutputModeCombined:
			err = combined.AppendBitmaps(pages)
		default:
			var data []byte
			assembler := export.NewPDFAssembler()
			if err = assembler.AppendBitmaps(pages); err == nil {
				data, err = assembler.Output()
			}
			if err == nil {
				outcome.documents = append(outcome.documents, studentDocument{entry: student.RosterEntry, data: data})
			}
		}
		if err != nil {
			outcome.report.Failures = append(outcome.report.Failures, models.BatchFailure{
				Name:   student.FullName,
				Reason: err.Error(),
			})
			if s.metrics != nil {
				s.metrics.StudentProcessed(false)
			}
		} else {
			outcome.report.Successes = append(outcome.report.Successes, student.FullName)
			if s.metrics != nil {
				s.metrics.StudentProcessed(true)
			}
		}
		s.bumpProgress(ctx, batchID, i+1)
	}

	outcome.combined = combined
	if outcome.className == "" {
		outcome.className = params.ClassID
	}
	return outcome, nil
}

func (s *BatchService) renderStudent(ctx context.Context, student models.StudentFacts, params models.BatchParams, school *models.SchoolConfig, class *models.ClassConfig) (*models.ReportCard, []image.Image, error) {
	raw, err := s.reports.GetRaw(ctx, student.StudentID, params.TermID)
	if err != nil {
		return nil, nil, fmt.Errorf("report payload unavailable")
	}
	card := s.normalizer.Normalize(raw, student.RosterEntry, school, class)
	if params.Variant != "" {
		card.Visual.Variant = params.Variant
	}

	pages, err := s.renderer.Render(card, card.Visual.Variant, params.Watermark)
	if err != nil {
		return nil, nil, err
	}
	if len(pages) == 0 {
		return nil, nil, fmt.Errorf("renderer produced no pages")
	}
	return card, pages, nil
}

// bumpProgress persists the monotonic progress counter; a failed write is
// logged but never fails the batch.
func (s *BatchService) bumpProgress(ctx context.Context, batchID string, current int) {
	if ctx.Err() != nil {
		return
	}
	if err := s.store.Update(ctx, batchID, repository.UpdateBatchJobParams{Current: &current}); err != nil {
		s.logger.Warn("failed to persist batch progress", zap.String("batch_id", batchID), zap.Error(err))
	}
}

// packageArtifacts builds and stores the final artifact, returning the signed
// download URLs.
func (s *BatchService) packageArtifacts(batchID string, params models.BatchParams, selected []models.StudentFacts, outcome *generationOutcome) (string, string, error) {
	var summary []byte
	if params.IncludeCSVSummary {
		data, err := buildCSVSummary(selected)
		if err != nil {
			return "", "", err
		}
		summary = data
	}

	var artifactName string
	var artifactData []byte
	switch params.OutputMode {
	case models.OutputModeCombined:
		data, err := outcome.combined.Output()
		if err != nil {
			return "", "", err
		}
		artifactName = export.BatchFilename(outcome.className, outcome.termName, "pdf")
		artifactData = data
	default:
		packager := export.NewZipPackager()
		for _, doc := range outcome.documents {
			name := export.StudentFilename(doc.entry.FullName, doc.entry.AdmissionNo, outcome.termName)
			if err := packager.Add(name, doc.data); err != nil {
				return "", "", err
			}
		}
		if summary != nil {
			if err := packager.Add("summary.csv", summary); err != nil {
				return "", "", err
			}
			summary = nil
		}
		data, err := packager.Close()
		if err != nil {
			return "", "", err
		}
		artifactName = export.BatchFilename(outcome.className, outcome.termName, "zip")
		artifactData = data
	}

	relPath, err := s.storage.Save(fmt.Sprintf("%s/%s", batchID, artifactName), artifactData)
	if err != nil {
		return "", "", err
	}
	artifactURL, err := s.signedDownloadURL(batchID, relPath)
	if err != nil {
		return "", "", err
	}

	var summaryURL string
	if summary != nil {
		// Combined mode ships the CSV as a separate downloadable file.
		summaryName := fmt.Sprintf("%s_%s_Summary.csv",
			export.SanitizeFilename(outcome.className), export.SanitizeFilename(outcome.termName))
		summaryPath, err := s.storage.Save(fmt.Sprintf("%s/%s", batchID, summaryName), summary)
		if err != nil {
			return "", "", err
		}
		summaryURL, err = s.signedDownloadURL(batchID, summaryPath)
		if err != nil {
			return "", "", err
		}
	}
	return artifactURL, summaryURL, nil
}

func (s *BatchService) signedDownloadURL(batchID, relPath string) (string, error) {
	token, _, err := s.signer.Generate(batchID, relPath)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/report-cards/export/%s", prefix, token), nil
}

// buildCSVSummary renders the per-student summary dataset: name, admission
// number, average score, debt flag, report-exists flag.
func buildCSVSummary(selected []models.StudentFacts) ([]byte, error) {
	rows := make([]map[string]string, 0, len(selected))
	for _, student := range selected {
		avg := "N/A"
		if student.AverageScore != nil {
			avg = fmt.Sprintf("%.2f", *student.AverageScore)
		}
		rows = append(rows, map[string]string{
			"Student Name":  student.FullName,
			"Admission No":  student.AdmissionNo,
			"Average Score": avg,
			"Has Debt":      fmt.Sprintf("%t", student.HasDebt),
			"Report Exists": fmt.Sprintf("%t", student.ReportExists),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student Name", "Admission No", "Average Score", "Has Debt", "Report Exists"},
		Rows:    rows,
	}
	return export.NewCSVExporter().Render(dataset)
}

// OpenArtifact validates a signed download token and opens the referenced
// file.
func (s *BatchService) OpenArtifact(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrLinkExpired.Code, apperrors.ErrLinkExpired.Status, "download link invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrNotFound.Code, apperrors.ErrNotFound.Status, "artifact no longer available")
	}
	return file, relPath, nil
}

// GenerateStudentPDF runs the single-student pipeline on demand, used by the
// public share retrieval endpoint.
func (s *BatchService) GenerateStudentPDF(ctx context.Context, student models.RosterEntry, termID string, watermark models.WatermarkTag) ([]byte, string, error) {
	school, err := s.configs.GetSchoolConfig(ctx)
	if err != nil {
		return nil, "", err
	}
	class, err := s.configs.GetClassConfig(ctx, student.ClassID)
	if err != nil {
		return nil, "", err
	}
	raw, err := s.reports.GetRaw(ctx, student.StudentID, termID)
	if err != nil {
		return nil, "", apperrors.Clone(apperrors.ErrNotFound, "no report found for this student and term")
	}
	card := s.normalizer.Normalize(raw, student, school, class)
	pages, err := s.renderer.Render(card, card.Visual.Variant, watermark)
	if err != nil {
		return nil, "", err
	}
	assembler := export.NewPDFAssembler()
	if err := assembler.AppendBitmaps(pages); err != nil {
		return nil, "", err
	}
	data, err := assembler.Output()
	if err != nil {
		return nil, "", err
	}
	termName := card.Term.Term
	if termName == "" {
		termName = termID
	}
	return data, export.StudentFilename(student.FullName, student.AdmissionNo, termName), nil
}

// RecoverQueued re-enqueues jobs left in QUEUED by a previous process.
func (s *BatchService) RecoverQueued(ctx context.Context) error {
	queued, err := s.store.ListQueued(ctx, 0)
	if err != nil {
		return err
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: "report-card-batch"}); err != nil {
			return err
		}
		s.logger.Info("requeued batch from previous run", zap.String("batch_id", job.ID))
	}
	return nil
}

// CleanupArtifacts deletes expired artifact files and detaches their URLs
// from old completed jobs.
func (s *BatchService) CleanupArtifacts(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return err
	}
	if len(deleted) > 0 {
		s.logger.Info("purged expired batch artifacts", zap.Int("count", len(deleted)))
	}

	cutoff := time.Now().Add(-ttl)
	stale, err := s.store.ListFinishedBefore(ctx, cutoff, 0)
	if err != nil {
		return err
	}
	for _, job := range stale {
		if job.ArtifactURL == nil && job.SummaryURL == nil {
			continue
		}
		empty := ""
		update := repository.UpdateBatchJobParams{ArtifactURL: &empty}
		if job.SummaryURL != nil {
			update.SummaryURL = &empty
		}
		if err := s.store.Update(ctx, job.ID, update); err != nil {
			return err
		}
	}
	return nil
}

func (s *BatchService) setStatus(ctx context.Context, batchID string, status models.BatchStatus) error {
	return s.store.Update(ctx, batchID, repository.UpdateBatchJobParams{Status: &status})
}

func (s *BatchService) finishFailed(ctx context.Context, batchID string, report models.BatchReport, message string) error {
	status := models.BatchStatusFailed
	now := time.Now().UTC()
	return s.store.Update(ctx, batchID, repository.UpdateBatchJobParams{
		Status:       &status,
		Report:       &report,
		ErrorMessage: &message,
		FinishedAt:   &now,
	})
}

// selectFacts maps the user-selected ids onto loaded facts, preserving the
// selection order. Unknown ids are dropped silently; they cannot be rendered
// and have no roster identity to report against.
func selectFacts(all []models.StudentFacts, ids []string) []models.StudentFacts {
	byID := make(map[string]models.StudentFacts, len(all))
	for _, f := range all {
		byID[f.StudentID] = f
	}
	selected := make([]models.StudentFacts, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			selected = append(selected, f)
		}
	}
	return selected
}
