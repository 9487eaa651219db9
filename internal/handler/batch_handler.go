package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edubridge/reportcard-api/internal/dto"
	"github.com/edubridge/reportcard-api/internal/service"
	appErrors "github.com/edubridge/reportcard-api/pkg/errors"
	"github.com/edubridge/reportcard-api/pkg/response"
)

// BatchHandler exposes the report-card batch endpoints.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler constructs handler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// Create godoc
// @Summary Submit a report-card batch
// @Description Enqueue generation of report cards for the selected students
// @Tags ReportCards
// @Accept json
// @Produce json
// @Param payload body dto.BatchRequest true "Batch payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /report-cards/batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	createdBy := ""
	if claims := claimsFromContext(c); claims != nil {
		createdBy = claims.UserID
	}

	job, err := h.batches.Submit(c.Request.Context(), req.Params(), createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, dto.BatchResponse{
		ID:     job.ID,
		Status: job.Status,
		Total:  job.Total,
	}, nil)
}

// Status godoc
// @Summary Batch status and report
// @Description Progress, per-student outcomes and download links for one batch
// @Tags ReportCards
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-cards/batches/{id} [get]
func (h *BatchHandler) Status(c *gin.Context) {
	job, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewBatchStatusResponse(job), nil)
}

// Download godoc
// @Summary Download a batch artifact
// @Description Stream the artifact referenced by a signed download token
// @Tags ReportCards
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /report-cards/export/{token} [get]
func (h *BatchHandler) Download(c *gin.Context) {
	file, relPath, err := h.batches.OpenArtifact(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat artifact"))
		return
	}

	filename := filepath.Base(relPath)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(filename), file, nil)
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
