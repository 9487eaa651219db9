package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BatchStatus captures the batch job lifecycle. Jobs are persisted from
// QUEUED onward; the idle state exists only client-side before submission.
type BatchStatus string

const (
	BatchStatusQueued     BatchStatus = "QUEUED"
	BatchStatusValidating BatchStatus = "VALIDATING"
	BatchStatusGenerating BatchStatus = "GENERATING"
	BatchStatusPackaging  BatchStatus = "PACKAGING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// OutputMode selects the final artifact shape.
type OutputMode string

const (
	OutputModeZip      OutputMode = "zip"
	OutputModeCombined OutputMode = "combined"
)

// WatermarkTag is the provenance overlay rendered on every page.
type WatermarkTag string

const (
	WatermarkDraft WatermarkTag = "DRAFT"
	WatermarkFinal WatermarkTag = "FINAL"
	WatermarkNone  WatermarkTag = "NONE"
)

// BatchParams stores the request-scoped generation options, persisted as JSONB.
type BatchParams struct {
	ClassID           string       `json:"classId"`
	TermID            string       `json:"termId"`
	StudentIDs        []string     `json:"studentIds"`
	OutputMode        OutputMode   `json:"outputMode"`
	Variant           string       `json:"variant"`
	Watermark         WatermarkTag `json:"watermark"`
	IncludeCoverSheet bool         `json:"includeCoverSheet"`
	IncludeCSVSummary bool         `json:"includeCsvSummary"`
}

// Value marshals params to JSON for persistence.
func (p BatchParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal batch params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *BatchParams) Scan(value interface{}) error {
	return scanJSON(value, p, "BatchParams")
}

// BatchFailure names one student that could not be rendered, with the reason.
type BatchFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BatchReport accumulates per-student outcomes for a run, persisted as JSONB.
type BatchReport struct {
	Successes []string       `json:"successes"`
	Failures  []BatchFailure `json:"failures"`
}

// Value marshals the report to JSON for persistence.
func (r BatchReport) Value() (driver.Value, error) {
	if r.Successes == nil {
		r.Successes = []string{}
	}
	if r.Failures == nil {
		r.Failures = []BatchFailure{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal batch report: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the report struct.
func (r *BatchReport) Scan(value interface{}) error {
	return scanJSON(value, r, "BatchReport")
}

// BatchJob is the persisted batch generation job.
type BatchJob struct {
	ID           string      `db:"id" json:"id"`
	Params       BatchParams `db:"params" json:"params"`
	Status       BatchStatus `db:"status" json:"status"`
	Current      int         `db:"current" json:"current"`
	Total        int         `db:"total" json:"total"`
	Report       BatchReport `db:"report" json:"report"`
	ArtifactURL  *string     `db:"artifact_url" json:"artifact_url,omitempty"`
	SummaryURL   *string     `db:"summary_url" json:"summary_url,omitempty"`
	ErrorMessage *string     `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string      `db:"created_by" json:"created_by"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time  `db:"finished_at" json:"finished_at,omitempty"`
}

func scanJSON(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
