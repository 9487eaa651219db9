package dto

import "github.com/edubridge/reportcard-api/internal/models"

// RosterResponse returns a class roster with its eligibility partition.
type RosterResponse struct {
	ClassID   string                      `json:"classId"`
	TermID    string                      `json:"termId"`
	Total     int                         `json:"total"`
	Partition models.EligibilityPartition `json:"partition"`
}
