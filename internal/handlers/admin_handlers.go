package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/epeers/marketetl/internal/ingest"
	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxUploadBytes bounds a raw extract upload
const maxUploadBytes = 256 << 20

// Pipeline is the part of the ETL pipeline the admin endpoints drive
type Pipeline interface {
	Run(ctx context.Context) (*models.RunReport, error)
	Summarize(ctx context.Context) (*models.RunReport, error)
	StoreRaw(kind string, data []byte) (*ingest.Report, error)
}

// AdminHandler handles admin endpoints
type AdminHandler struct {
	pipeline   Pipeline
	runTimeout time.Duration
}

// NewAdminHandler creates a new AdminHandler. runTimeout bounds a triggered run; 0 means no limit.
func NewAdminHandler(pipeline Pipeline, runTimeout time.Duration) *AdminHandler {
	return &AdminHandler{pipeline: pipeline, runTimeout: runTimeout}
}

// runContext detaches a run from the request so a dropped client cannot stop a load
// after some tables have already been committed.
func (h *AdminHandler) runContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(c.Request.Context())
	if h.runTimeout > 0 {
		return context.WithTimeout(ctx, h.runTimeout)
	}
	return context.WithCancel(ctx)
}

// UploadExtractResponse reports how an uploaded raw extract parsed
type UploadExtractResponse struct {
	Kind      string           `json:"kind"`
	Rows      int              `json:"rows"`
	Malformed int              `json:"malformed"`
	Warnings  []models.Warning `json:"warnings,omitempty"`
}

func (h *AdminHandler) respondRun(c *gin.Context, rep *models.RunReport, err error) {
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "conflict",
				Message: err.Error(),
			})
			return
		}
		log.Errorf("Admin-triggered run failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// RunPipeline handles POST /admin/run
// @Summary Run the ETL pipeline
// @Description Transform the raw extracts and load the results. Blocks until the run finishes.
// @Tags admin
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Success 200 {object} models.RunReport
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/run [post]
func (h *AdminHandler) RunPipeline(c *gin.Context) {
	ctx, cancel := h.runContext(c)
	defer cancel()
	rep, err := h.pipeline.Run(ctx)
	h.respondRun(c, rep, err)
}

// Summarize handles POST /admin/summarize
// @Summary Recompute the investment summary
// @Description Rebuild the summary from the latest persisted indicators, prices and fundamentals
// @Tags admin
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Success 200 {object} models.RunReport
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/summarize [post]
func (h *AdminHandler) Summarize(c *gin.Context) {
	ctx, cancel := h.runContext(c)
	defer cancel()
	rep, err := h.pipeline.Summarize(ctx)
	h.respondRun(c, rep, err)
}

// UploadExtract handles POST /admin/extracts/:kind
// @Summary Replace a raw extract
// @Description Upload companies, prices or fundamentals CSV as multipart field "file". Used by the next run.
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Param kind path string true "Extract kind (companies, prices, fundamentals)"
// @Param file formData file true "CSV file"
// @Success 200 {object} UploadExtractResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/extracts/{kind} [post]
func (h *AdminHandler) UploadExtract(c *gin.Context) {
	kind := c.Param("kind")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "multipart field 'file' is required",
		})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "file too large",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	rep, err := h.pipeline.StoreRaw(kind, data)
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Error:   "conflict",
				Message: err.Error(),
			})
			return
		}
		if errors.Is(err, services.ErrUnknownExtract) || errors.Is(err, ingest.ErrMalformedInput) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_request",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, UploadExtractResponse{
		Kind:      kind,
		Rows:      rep.Rows,
		Malformed: rep.Malformed,
		Warnings:  rep.Warnings,
	})
}
