package models

import "time"

// ExportFormat enumerates supported export file formats.
type ExportFormat string

const (
	ExportFormatExcel ExportFormat = "excel"
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatPDF   ExportFormat = "pdf"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatExcel, ExportFormatCSV, ExportFormatPDF:
		return true
	default:
		return false
	}
}

// Ext returns the file extension for the format.
func (f ExportFormat) Ext() string {
	switch f {
	case ExportFormatExcel:
		return "xlsx"
	case ExportFormatPDF:
		return "pdf"
	default:
		return "csv"
	}
}

// ExportTaskStatus captures export job lifecycle states.
type ExportTaskStatus string

const (
	ExportTaskPending    ExportTaskStatus = "pending"
	ExportTaskProcessing ExportTaskStatus = "processing"
	ExportTaskCompleted  ExportTaskStatus = "completed"
	ExportTaskFailed     ExportTaskStatus = "failed"
)

// ExportTask is the ephemeral, process-local record of one export run.
type ExportTask struct {
	ID          string           `json:"id"`
	Status      ExportTaskStatus `json:"status"`
	Progress    int              `json:"progress"`
	Total       int              `json:"total"`
	Format      ExportFormat     `json:"format"`
	Filename    string           `json:"filename"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}
