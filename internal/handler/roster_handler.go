package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edubridge/reportcard-api/internal/dto"
	"github.com/edubridge/reportcard-api/internal/service"
	appErrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/response"
)

// RosterHandler exposes roster and eligibility endpoints.
type RosterHandler struct {
	eligibility *service.EligibilityService
}

// NewRosterHandler constructs handler.
func NewRosterHandler(eligibility *service.EligibilityService) *RosterHandler {
	return &RosterHandler{eligibility: eligibility}
}

// Roster godoc
// @Summary Class roster with eligibility
// @Description Roster facts for a class and term, split into eligible and ineligible students
// @Tags Roster
// @Produce json
// @Param id path string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes/{id}/roster [get]
func (h *RosterHandler) Roster(c *gin.Context) {
	termID := c.Query("termId")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId required"))
		return
	}
	classID := c.Param("id")

	partition, err := h.eligibility.LoadPartition(c.Request.Context(), classID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.RosterResponse{
		ClassID:   classID,
		TermID:    termID,
		Total:     len(partition.Eligible) + len(partition.Ineligible),
		Partition: partition,
	}, nil)
}
