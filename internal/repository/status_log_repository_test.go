package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-ops/hazard-report-api/internal/models"
)

func newStatusLogMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStatusLogRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newStatusLogMock(t)
	defer cleanup()
	repo := NewStatusLogRepository(db)

	mock.ExpectExec("INSERT INTO report_status_logs").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.StatusLog{
		ReportID:  1,
		OldStatus: models.ReportStatusInProgress,
		NewStatus: models.ReportStatusResolved,
		UpdatedBy: "admin",
		Success:   true,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusLogRepositoryListByReport(t *testing.T) {
	db, mock, cleanup := newStatusLogMock(t)
	defer cleanup()
	repo := NewStatusLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "report_id", "old_status", "new_status", "updated_by", "success", "error", "created_at"}).
		AddRow("uuid-1", int64(1), string(models.ReportStatusInProgress), string(models.ReportStatusResolved), "admin", true, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, report_id, old_status, new_status, updated_by, success, error, created_at\nFROM report_status_logs WHERE report_id = $1 ORDER BY created_at ASC")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	entries, err := repo.ListByReport(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ReportStatusResolved, entries[0].NewStatus)
	assert.True(t, entries[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}
