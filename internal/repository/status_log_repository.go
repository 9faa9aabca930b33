package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hse-ops/hazard-report-api/internal/models"
)

// StatusLogRepository persists the append-only status history of reports.
type StatusLogRepository struct {
	db *sqlx.DB
}

// NewStatusLogRepository constructs the repository.
func NewStatusLogRepository(db *sqlx.DB) *StatusLogRepository {
	return &StatusLogRepository{db: db}
}

// Create appends one history entry.
func (r *StatusLogRepository) Create(ctx context.Context, entry *models.StatusLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_status_logs (id, report_id, old_status, new_status, updated_by, success, error, created_at)
VALUES (:id, :report_id, :old_status, :new_status, :updated_by, :success, :error, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create status log: %w", err)
	}
	return nil
}

// ListByReport returns the history of one report in chronological order.
func (r *StatusLogRepository) ListByReport(ctx context.Context, reportID int64) ([]models.StatusLog, error) {
	const query = `SELECT id, report_id, old_status, new_status, updated_by, success, error, created_at
FROM report_status_logs WHERE report_id = $1 ORDER BY created_at ASC`
	var entries []models.StatusLog
	if err := r.db.SelectContext(ctx, &entries, query, reportID); err != nil {
		return nil, fmt.Errorf("list status logs: %w", err)
	}
	return entries, nil
}
