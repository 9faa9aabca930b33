package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/hse-ops/hazard-report-api/internal/models"
	"github.com/hse-ops/hazard-report-api/internal/service"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/response"
)

var exportContentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
}

// ExportHandler exposes report export endpoints.
type ExportHandler struct {
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, metrics *service.MetricsService) *ExportHandler {
	return &ExportHandler{exports: exports, metrics: metrics}
}

// Begin queues a new export task for the current filter.
func (h *ExportHandler) Begin(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", string(models.ExportFormatExcel)))
	started, err := h.exports.Begin(format, parseReportFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ExportStarted(string(format))
	response.JSON(c, http.StatusOK, started, nil)
}

// Status reports the progress of one export task.
func (h *ExportHandler) Status(c *gin.Context) {
	task, err := h.exports.Task(c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, task, nil)
}

// Download streams the rendered file of a completed task.
func (h *ExportHandler) Download(c *gin.Context) {
	file, filename, err := h.exports.OpenDownload(c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	contentType := exportContentTypes[filepath.Ext(filename)]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
