package dto

import (
	"time"

	"github.com/edubridge/reportcard-api/internal/models"
)

// BatchRequest captures POST /report-cards/batches payload.
type BatchRequest struct {
	ClassID           string              `json:"classId" binding:"required"`
	TermID            string              `json:"termId" binding:"required"`
	StudentIDs        []string            `json:"studentIds" binding:"required,min=1"`
	OutputMode        models.OutputMode   `json:"outputMode,omitempty"`
	Variant           string              `json:"variant,omitempty"`
	Watermark         models.WatermarkTag `json:"watermark,omitempty"`
	IncludeCoverSheet bool                `json:"includeCoverSheet,omitempty"`
	IncludeCSVSummary bool                `json:"includeCsvSummary,omitempty"`
}

// Params converts the request into batch parameters.
func (r BatchRequest) Params() models.BatchParams {
	return models.BatchParams{
		ClassID:           r.ClassID,
		TermID:            r.TermID,
		StudentIDs:        r.StudentIDs,
		OutputMode:        r.OutputMode,
		Variant:           r.Variant,
		Watermark:         r.Watermark,
		IncludeCoverSheet: r.IncludeCoverSheet,
		IncludeCSVSummary: r.IncludeCSVSummary,
	}
}

// BatchResponse is returned after enqueueing a batch.
type BatchResponse struct {
	ID     string             `json:"id"`
	Status models.BatchStatus `json:"status"`
	Total  int                `json:"total"`
}

// BatchStatusResponse exposes batch progress and outcome.
type BatchStatusResponse struct {
	ID          string             `json:"id"`
	Status      models.BatchStatus `json:"status"`
	Current     int                `json:"current"`
	Total       int                `json:"total"`
	Report      models.BatchReport `json:"report"`
	ArtifactURL *string            `json:"artifactUrl,omitempty"`
	SummaryURL  *string            `json:"summaryUrl,omitempty"`
	Error       *string            `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	FinishedAt  *time.Time         `json:"finishedAt,omitempty"`
}

// NewBatchStatusResponse maps a job row onto the API shape.
func NewBatchStatusResponse(job *models.BatchJob) BatchStatusResponse {
	return BatchStatusResponse{
		ID:          job.ID,
		Status:      job.Status,
		Current:     job.Current,
		Total:       job.Total,
		Report:      job.Report,
		ArtifactURL: job.ArtifactURL,
		SummaryURL:  job.SummaryURL,
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt,
		FinishedAt:  job.FinishedAt,
	}
}
