package service

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-ops/hazard-report-api/internal/dto"
	"github.com/hse-ops/hazard-report-api/internal/models"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
)

type mockReportRepo struct {
	reports    map[int64]models.Report
	nextID     int64
	lastFilter models.ReportFilter
	listTotal  int
	createErr  error
	updateErr  error
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.reports == nil {
		m.reports = make(map[int64]models.Report)
	}
	m.nextID++
	report.ID = m.nextID
	if report.Status == "" {
		report.Status = models.ReportStatusInProgress
	}
	m.reports[report.ID] = *report
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	if r, ok := m.reports[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	m.lastFilter = filter
	reports := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, r)
	}
	return reports, m.listTotal, nil
}

func (m *mockReportRepo) UpdateStatus(ctx context.Context, id int64, status models.ReportStatus, at time.Time) (*models.Report, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	r.Status = status
	r.StatusUpdatedAt = &at
	m.reports[id] = r
	return &r, nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.reports[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.reports, id)
	return nil
}

type mockStatusLogRepo struct {
	entries []models.StatusLog
	err     error
}

func (m *mockStatusLogRepo) Create(ctx context.Context, entry *models.StatusLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockStatusLogRepo) ListByReport(ctx context.Context, reportID int64) ([]models.StatusLog, error) {
	result := make([]models.StatusLog, 0)
	for _, e := range m.entries {
		if e.ReportID == reportID {
			result = append(result, e)
		}
	}
	return result, nil
}

type mockUploader struct {
	saved   []string
	removed []string
	saveErr error
}

func (m *mockUploader) SaveAll(files []*multipart.FileHeader) ([]string, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.saved = make([]string, len(files))
	for i := range files {
		m.saved[i] = "/uploads/file" + string(rune('a'+i)) + ".jpg"
	}
	return m.saved, nil
}

func (m *mockUploader) RemoveAll(paths []string) {
	m.removed = append(m.removed, paths...)
}

func validCreateRequest() dto.CreateReportRequest {
	return dto.CreateReportRequest{
		Project:     "东区仓库",
		Reporter:    "张三",
		Phone:       "13812345678",
		Category:    "电气",
		FoundAt:     time.Now().Add(-time.Hour).Format("2006-01-02 15:04:05"),
		Location:    "三号门",
		Description: "电缆裸露",
	}
}

func fileHeaders(n int) []*multipart.FileHeader {
	files := make([]*multipart.FileHeader, n)
	for i := range files {
		files[i] = &multipart.FileHeader{Filename: "photo.jpg"}
	}
	return files
}

func TestReportServiceCreate(t *testing.T) {
	repo := &mockReportRepo{}
	uploader := &mockUploader{}
	svc := NewReportService(repo, &mockStatusLogRepo{}, uploader, nil, nil)

	report, err := svc.Create(context.Background(), validCreateRequest(), fileHeaders(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ID)
	assert.Equal(t, models.ReportStatusInProgress, report.Status)
	assert.Len(t, report.Images, 2)
	require.NotNil(t, report.Category)
	assert.Equal(t, "电气", *report.Category)
}

func TestReportServiceCreateRejectsBadPhone(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	req := validCreateRequest()
	req.Phone = "12345"
	_, err := svc.Create(context.Background(), req, fileHeaders(1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateAcceptsLandline(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	req := validCreateRequest()
	req.Phone = "010-12345678"
	_, err := svc.Create(context.Background(), req, fileHeaders(1))
	require.NoError(t, err)
}

func TestReportServiceCreateRejectsFutureFoundAt(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	req := validCreateRequest()
	req.FoundAt = time.Now().Add(48 * time.Hour).Format("2006-01-02 15:04:05")
	_, err := svc.Create(context.Background(), req, fileHeaders(1))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateRequiresImages(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	_, err := svc.Create(context.Background(), validCreateRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateRemovesFilesOnInsertFailure(t *testing.T) {
	repo := &mockReportRepo{createErr: errors.New("insert failed")}
	uploader := &mockUploader{}
	svc := NewReportService(repo, &mockStatusLogRepo{}, uploader, nil, nil)

	_, err := svc.Create(context.Background(), validCreateRequest(), fileHeaders(2))
	require.Error(t, err)
	assert.Equal(t, uploader.saved, uploader.removed)
}

func TestReportServiceListPagination(t *testing.T) {
	repo := &mockReportRepo{listTotal: 25}
	svc := NewReportService(repo, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	page, err := svc.List(context.Background(), models.ReportFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 10, page.Pagination.Limit)
	assert.Equal(t, 3, page.Pagination.Pages)
}

func TestReportServiceListClampsOversizeLimit(t *testing.T) {
	repo := &mockReportRepo{listTotal: 250}
	svc := NewReportService(repo, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	page, err := svc.List(context.Background(), models.ReportFilter{Limit: 200})
	require.NoError(t, err)
	assert.Equal(t, models.MaxPageLimit, repo.lastFilter.Limit)
	assert.Equal(t, models.MaxPageLimit, page.Pagination.Limit)
	assert.Equal(t, 3, page.Pagination.Pages)
}

func TestReportServiceListEmptyHasZeroPages(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	page, err := svc.List(context.Background(), models.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Pagination.Total)
	assert.Equal(t, 0, page.Pagination.Pages)
	assert.Equal(t, 1, page.Pagination.Page)
}

func TestReportServiceSetStatusRecordsHistory(t *testing.T) {
	repo := &mockReportRepo{reports: map[int64]models.Report{
		1: {ID: 1, Status: models.ReportStatusInProgress},
	}}
	logs := &mockStatusLogRepo{}
	svc := NewReportService(repo, logs, &mockUploader{}, nil, nil)

	report, err := svc.SetStatus(context.Background(), 1, models.ReportStatusResolved, "admin")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, report.Status)
	require.NotNil(t, report.StatusUpdatedAt)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, models.ReportStatusInProgress, entry.OldStatus)
	assert.Equal(t, models.ReportStatusResolved, entry.NewStatus)
	assert.Equal(t, "admin", entry.UpdatedBy)
	assert.True(t, entry.Success)
	assert.Nil(t, entry.Error)
}

func TestReportServiceSetStatusRecordsFailure(t *testing.T) {
	repo := &mockReportRepo{
		reports:   map[int64]models.Report{1: {ID: 1, Status: models.ReportStatusInProgress}},
		updateErr: errors.New("db down"),
	}
	logs := &mockStatusLogRepo{}
	svc := NewReportService(repo, logs, &mockUploader{}, nil, nil)

	_, err := svc.SetStatus(context.Background(), 1, models.ReportStatusResolved, "admin")
	require.Error(t, err)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.False(t, entry.Success)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "db down")
}

func TestReportServiceSetStatusRejectsUnknownValue(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	_, err := svc.SetStatus(context.Background(), 1, "done", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStatus.Code, appErrors.FromError(err).Code)
}

func TestReportServiceSetStatusNotFound(t *testing.T) {
	svc := NewReportService(&mockReportRepo{}, &mockStatusLogRepo{}, &mockUploader{}, nil, nil)

	_, err := svc.SetStatus(context.Background(), 42, models.ReportStatusResolved, "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceDeleteUnlinksImages(t *testing.T) {
	repo := &mockReportRepo{reports: map[int64]models.Report{
		1: {ID: 1, Images: []string{"/uploads/a.jpg", "/uploads/b.jpg"}},
	}}
	uploader := &mockUploader{}
	svc := NewReportService(repo, &mockStatusLogRepo{}, uploader, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.Equal(t, []string{"/uploads/a.jpg", "/uploads/b.jpg"}, uploader.removed)
	assert.Empty(t, repo.reports)
}

func TestParseFoundAtLayouts(t *testing.T) {
	for _, raw := range []string{
		"2024-03-01T10:00:00Z",
		"2024-03-01 10:00:00",
		"2024-03-01",
	} {
		_, err := parseFoundAt(raw)
		assert.NoError(t, err, raw)
	}
	_, err := parseFoundAt("March 1st")
	assert.Error(t, err)
}
