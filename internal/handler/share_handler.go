package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edubridge/reportcard-api/internal/dto"
	"github.com/edubridge/reportcard-api/internal/models"
	"github.com/edubridge/reportcard-api/internal/service"
	appErrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/response"
)

// ShareHandler exposes share-link issuance and public retrieval.
type ShareHandler struct {
	shares  *service.ShareService
	batches *service.BatchService
}

// NewShareHandler constructs handler.
func NewShareHandler(shares *service.ShareService, batches *service.BatchService) *ShareHandler {
	return &ShareHandler{shares: shares, batches: batches}
}

// Issue godoc
// @Summary Issue share links
// @Description Issue or reuse public share links for the selected students
// @Tags Sharing
// @Accept json
// @Produce json
// @Param payload body dto.ShareRequest true "Share payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /report-cards/share [post]
func (h *ShareHandler) Issue(c *gin.Context) {
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}

	results, err := h.shares.IssueLinks(c.Request.Context(), req.StudentIDs, req.TermID, req.ExpiryHours)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// ExportCSV godoc
// @Summary Export share links as CSV
// @Description Issue links for the selection and return them as a CSV file
// @Tags Sharing
// @Accept json
// @Produce text/csv
// @Param payload body dto.ShareRequest true "Share payload"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /report-cards/share/export [post]
func (h *ShareHandler) ExportCSV(c *gin.Context) {
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}

	results, err := h.shares.IssueLinks(c.Request.Context(), req.StudentIDs, req.TermID, req.ExpiryHours)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.shares.ExportCSV(results)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="share_links.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// PublicReport godoc
// @Summary Public report retrieval
// @Description Render one student's report card PDF from a share link. The
// slug is cosmetic and never authorizes access.
// @Tags Sharing
// @Produce application/pdf
// @Param token path string true "Share token"
// @Param slug path string true "Student slug"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /report/{token}/{slug} [get]
func (h *ShareHandler) PublicReport(c *gin.Context) {
	link, err := h.shares.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.shares.StudentEntry(c.Request.Context(), link)
	if err != nil {
		response.Error(c, err)
		return
	}

	data, filename, err := h.batches.GenerateStudentPDF(c.Request.Context(), *entry, link.TermID, models.WatermarkNone)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
