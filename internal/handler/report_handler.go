package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hse-ops/hazard-report-api/internal/dto"
	"github.com/hse-ops/hazard-report-api/internal/models"
	"github.com/hse-ops/hazard-report-api/internal/service"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/response"
)

// ReportHandler exposes hazard report endpoints.
type ReportHandler struct {
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, metrics *service.MetricsService) *ReportHandler {
	return &ReportHandler{reports: reports, metrics: metrics}
}

// Create accepts a multipart submission with one to four images.
func (h *ReportHandler) Create(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart form required"))
		return
	}
	files := form.File["images"]

	report, err := h.reports.Create(c.Request.Context(), req, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ReportCreated()
	response.Created(c, report)
}

// List returns a filtered page of reports.
func (h *ReportHandler) List(c *gin.Context) {
	filter := parseReportFilter(c)
	page, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := page.Pagination
	response.JSON(c, http.StatusOK, page.Reports, &pagination)
}

// Get returns one report by id.
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SetStatus transitions a report between remediation states.
func (h *ReportHandler) SetStatus(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updatedBy := "system"
	if claims := claimsFromContext(c); claims != nil {
		updatedBy = claims.Username
	}
	report, err := h.reports.SetStatus(c.Request.Context(), id, models.ReportStatus(req.Status), updatedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// History returns the status change log of one report.
func (h *ReportHandler) History(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	entries, err := h.reports.StatusHistory(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Delete removes a report and its images.
func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := reportID(c)
	if !ok {
		return
	}
	if err := h.reports.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

func reportID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report id"))
		return 0, false
	}
	return id, true
}

func parseReportFilter(c *gin.Context) models.ReportFilter {
	var filter models.ReportFilter
	filter.Project = strings.TrimSpace(c.Query("project"))
	filter.Category = strings.TrimSpace(c.Query("category"))
	filter.Reporter = strings.TrimSpace(c.Query("reporter"))
	filter.Status = strings.TrimSpace(c.Query("status"))
	if from, to := c.Query("startDate"), c.Query("endDate"); from != "" && to != "" {
		if fromTime, err := parseQueryDate(from); err == nil {
			if toTime, err := parseQueryDate(to); err == nil {
				filter.DateFrom = &fromTime
				filter.DateTo = &toTime
			}
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		filter.Limit = limit
	}
	return filter
}

func parseQueryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
