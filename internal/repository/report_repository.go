package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hse-ops/hazard-report-api/internal/models"
)

const reportColumns = `id, project, reporter, phone, category, found_at, location, description, images, status, status_updated_at, created_at`

// ReportRepository persists hazard reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report row and fills in the store-assigned id.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportStatusInProgress
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reports (project, reporter, phone, category, found_at, location, description, images, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		report.Project,
		report.Reporter,
		report.Phone,
		report.Category,
		report.FoundAt,
		report.Location,
		report.Description,
		report.Images,
		report.Status,
		report.CreatedAt,
	).Scan(&report.ID); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID returns a report row by its identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1`, reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns one page of reports plus the total count for the same
// predicate. Both reads run in a single repeatable-read transaction so the
// count cannot diverge from the page under concurrent writes.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	whereClause, args := buildReportWhere(filter)

	filter.Normalize()
	limit := filter.Limit
	offset := (filter.Page - 1) * limit

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		reportColumns, whereClause, limit, offset)
	var reports []models.Report
	if err := tx.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM reports WHERE %s`, whereClause)
	var total int
	if err := tx.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit list tx: %w", err)
	}
	return reports, total, nil
}

// Count returns the number of reports matching the filter.
func (r *ReportRepository) Count(ctx context.Context, filter models.ReportFilter) (int, error) {
	whereClause, args := buildReportWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM reports WHERE %s`, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return total, nil
}

// ListBatch fetches one export batch with the listing order.
func (r *ReportRepository) ListBatch(ctx context.Context, filter models.ReportFilter, offset, limit int) ([]models.Report, error) {
	whereClause, args := buildReportWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		reportColumns, whereClause, limit, offset)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, fmt.Errorf("list report batch: %w", err)
	}
	return reports, nil
}

// UpdateStatus sets the status and its change timestamp, returning the
// updated row. sql.ErrNoRows signals an unknown id.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id int64, status models.ReportStatus, at time.Time) (*models.Report, error) {
	query := fmt.Sprintf(`UPDATE reports SET status = $1, status_updated_at = $2 WHERE id = $3 RETURNING %s`, reportColumns)
	var report models.Report
	if err := r.db.QueryRowxContext(ctx, query, status, at, id).StructScan(&report); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update report status: %w", err)
	}
	return &report, nil
}

// Delete removes a report row. sql.ErrNoRows signals an unknown id.
func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func buildReportWhere(filter models.ReportFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Project != "" {
		where = append(where, fmt.Sprintf("project = $%d", len(args)+1))
		args = append(args, filter.Project)
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Reporter != "" {
		where = append(where, fmt.Sprintf("reporter = $%d", len(args)+1))
		args = append(args, filter.Reporter)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil && filter.DateTo != nil {
		where = append(where, fmt.Sprintf("found_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
		where = append(where, fmt.Sprintf("found_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	return strings.Join(where, " AND "), args
}
