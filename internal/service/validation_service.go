package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edubridge/reportcard-api/internal/models"
)

// CompletenessChecker decides whether one student's report data is complete
// enough to render. An empty reason list means the student passes. Reason
// wording is owned by the checker.
type CompletenessChecker interface {
	Check(ctx context.Context, studentID, termID string) ([]string, error)
}

// ValidationFailure names one student blocked by the gate.
type ValidationFailure struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// ValidationService is the pre-batch gate. Unlike render-time failures,
// which are tolerated per student, any validation failure blocks the whole
// batch before a single page is rendered.
type ValidationService struct {
	checker CompletenessChecker
	logger  *zap.Logger
}

// NewValidationService constructs a ValidationService.
func NewValidationService(checker CompletenessChecker, logger *zap.Logger) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationService{checker: checker, logger: logger}
}

// ValidateBatch runs the completeness check for every selected student and
// returns the full failure list. An empty list means the batch may proceed.
func (s *ValidationService) ValidateBatch(ctx context.Context, selected []models.StudentFacts, termID string) ([]ValidationFailure, error) {
	failures := make([]ValidationFailure, 0)
	for _, student := range selected {
		reasons, err := s.checker.Check(ctx, student.StudentID, termID)
		if err != nil {
			return nil, fmt.Errorf("completeness check for %s: %w", student.StudentID, err)
		}
		for _, reason := range reasons {
			failures = append(failures, ValidationFailure{
				StudentID: student.StudentID,
				Name:      student.FullName,
				Reason:    reason,
			})
		}
	}
	if len(failures) > 0 {
		s.logger.Info("validation gate blocked batch",
			zap.Int("selected", len(selected)),
			zap.Int("failures", len(failures)))
	}
	return failures, nil
}

type rawReportSource interface {
	GetRaw(ctx context.Context, studentID, termID string) (models.RawReport, error)
}

// ReportCompletenessChecker is the default gate criteria, backed by the
// stored report payloads: the report must exist, carry at least one subject,
// and every subject row must have a grade.
type ReportCompletenessChecker struct {
	reports    rawReportSource
	normalizer *Normalizer
}

// NewReportCompletenessChecker constructs the default checker.
func NewReportCompletenessChecker(reports rawReportSource, normalizer *Normalizer) *ReportCompletenessChecker {
	if normalizer == nil {
		normalizer = NewNormalizer("")
	}
	return &ReportCompletenessChecker{reports: reports, normalizer: normalizer}
}

// Check implements CompletenessChecker.
func (c *ReportCompletenessChecker) Check(ctx context.Context, studentID, termID string) ([]string, error) {
	raw, err := c.reports.GetRaw(ctx, studentID, termID)
	if err != nil {
		// A missing row is a validation outcome, not an infrastructure error.
		return []string{"no report found for the selected term"}, nil
	}
	card := c.normalizer.Normalize(raw, models.RosterEntry{StudentID: studentID}, nil, nil)

	var reasons []string
	if len(card.Subjects) == 0 {
		reasons = append(reasons, "report has no subject scores")
	}
	ungraded := 0
	for _, subj := range card.Subjects {
		if subj.Grade == "" {
			ungraded++
		}
	}
	if ungraded > 0 {
		reasons = append(reasons, fmt.Sprintf("%d subject(s) missing a grade", ungraded))
	}
	return reasons, nil
}
