package dto

import "github.com/hse-ops/hazard-report-api/internal/models"

// CreateReportRequest carries the multipart form fields of a submission.
// FoundAt stays a raw string; the service owns parsing and the
// not-in-the-future check.
type CreateReportRequest struct {
	Project     string `form:"project" validate:"required"`
	Reporter    string `form:"reporter" validate:"required"`
	Phone       string `form:"phone" validate:"required,cnphone"`
	Category    string `form:"category"`
	FoundAt     string `form:"foundAt" validate:"required"`
	Location    string `form:"location" validate:"required"`
	Description string `form:"description" validate:"required"`
}

// UpdateStatusRequest switches a report's remediation state.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ExportStarted acknowledges a new export task.
type ExportStarted struct {
	TaskID   string `json:"taskId"`
	Filename string `json:"filename"`
}

// ReportPage bundles one page of reports with its pagination metadata.
type ReportPage struct {
	Reports    []models.Report
	Pagination models.Pagination
}
