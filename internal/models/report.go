package models

import (
	"time"

	"github.com/lib/pq"
)

// ReportStatus is the remediation state of a hazard report. The values are
// the exact strings stored in existing rows and exchanged on the wire, so
// they must never be renamed.
type ReportStatus string

const (
	// ReportStatusInProgress marks a hazard still awaiting remediation.
	ReportStatusInProgress ReportStatus = "进行中"
	// ReportStatusResolved marks a hazard that has been fixed.
	ReportStatusResolved ReportStatus = "已整改"
)

// Valid reports whether the status is part of the allowed set.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusInProgress, ReportStatusResolved:
		return true
	default:
		return false
	}
}

// Report is a submitted hazard record with attached images.
type Report struct {
	ID              int64          `db:"id" json:"id"`
	Project         string         `db:"project" json:"project"`
	Reporter        string         `db:"reporter" json:"reporter"`
	Phone           string         `db:"phone" json:"phone"`
	Category        *string        `db:"category" json:"category,omitempty"`
	FoundAt         time.Time      `db:"found_at" json:"foundAt"`
	Location        string         `db:"location" json:"location"`
	Description     string         `db:"description" json:"description"`
	Images          pq.StringArray `db:"images" json:"images"`
	Status          ReportStatus   `db:"status" json:"status"`
	StatusUpdatedAt *time.Time     `db:"status_updated_at" json:"statusUpdatedAt,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}

// ReportFilter narrows report listings and exports. The date range applies
// to FoundAt and only when both bounds are present.
type ReportFilter struct {
	Project  string
	Category string
	Reporter string
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// MaxPageLimit caps the page size of report listings.
const MaxPageLimit = 100

// Normalize clamps paging to usable bounds: page starts at 1, limit
// defaults to 10 and never exceeds MaxPageLimit. Callers report the
// clamped values in pagination metadata.
func (f *ReportFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

// Pagination contains paging metadata returned in list responses.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// StatusLog is one append-only entry of a report's status history.
type StatusLog struct {
	ID        string       `db:"id" json:"id"`
	ReportID  int64        `db:"report_id" json:"reportId"`
	OldStatus ReportStatus `db:"old_status" json:"oldStatus"`
	NewStatus ReportStatus `db:"new_status" json:"newStatus"`
	UpdatedBy string       `db:"updated_by" json:"updatedBy"`
	Success   bool         `db:"success" json:"success"`
	Error     *string      `db:"error" json:"error,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"timestamp"`
}
