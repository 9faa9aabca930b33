package service

import (
	"context"
	"database/sql"
	"mime/multipart"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hse-ops/hazard-report-api/internal/dto"
	"github.com/hse-ops/hazard-report-api/internal/models"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
)

// cnPhonePattern accepts mainland mobile numbers and landlines with an
// optional area-code dash.
var cnPhonePattern = regexp.MustCompile(`^1[3-9]\d{9}$|^0\d{2,3}-?\d{7,8}$`)

// RegisterPhoneValidation adds the cnphone tag used by submission payloads.
func RegisterPhoneValidation(v *validator.Validate) error {
	return v.RegisterValidation("cnphone", func(fl validator.FieldLevel) bool {
		return cnPhonePattern.MatchString(fl.Field().String())
	})
}

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	UpdateStatus(ctx context.Context, id int64, status models.ReportStatus, at time.Time) (*models.Report, error)
	Delete(ctx context.Context, id int64) error
}

type statusLogRepository interface {
	Create(ctx context.Context, entry *models.StatusLog) error
	ListByReport(ctx context.Context, reportID int64) ([]models.StatusLog, error)
}

type reportUploader interface {
	SaveAll(files []*multipart.FileHeader) ([]string, error)
	RemoveAll(paths []string)
}

// ReportService handles hazard report use-cases.
type ReportService struct {
	repo      reportRepository
	logs      statusLogRepository
	uploads   reportUploader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(repo reportRepository, logs statusLogRepository, uploads reportUploader, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	_ = RegisterPhoneValidation(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, logs: logs, uploads: uploads, validator: validate, logger: logger}
}

// Create validates the submission, persists its images and inserts the
// report. Stored images are removed again when the insert fails, so a
// rejected submission leaves nothing on disk.
func (s *ReportService) Create(ctx context.Context, req dto.CreateReportRequest, files []*multipart.FileHeader) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	foundAt, err := parseFoundAt(req.FoundAt)
	if err != nil {
		return nil, err
	}
	if foundAt.After(time.Now()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "foundAt cannot be in the future")
	}
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one image is required")
	}

	images, err := s.uploads.SaveAll(files)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Project:     req.Project,
		Reporter:    req.Reporter,
		Phone:       req.Phone,
		FoundAt:     foundAt,
		Location:    req.Location,
		Description: req.Description,
		Images:      images,
		Status:      models.ReportStatusInProgress,
	}
	if req.Category != "" {
		report.Category = &req.Category
	}
	if err := s.repo.Create(ctx, report); err != nil {
		s.uploads.RemoveAll(images)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	s.logger.Sugar().Infow("report created", "id", report.ID, "project", report.Project, "images", len(images))
	return report, nil
}

// Get returns one report by id.
func (s *ReportService) Get(ctx context.Context, id int64) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// List returns one page of reports with pagination metadata.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) (*dto.ReportPage, error) {
	filter.Normalize()
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	pages := 0
	if total > 0 {
		pages = (total + filter.Limit - 1) / filter.Limit
	}
	return &dto.ReportPage{
		Reports:    reports,
		Pagination: models.Pagination{Total: total, Page: filter.Page, Limit: filter.Limit, Pages: pages},
	}, nil
}

// SetStatus transitions a report and appends a history entry. History is
// best effort: a failed append never rolls the transition back, the entry
// just records the failure.
func (s *ReportService) SetStatus(ctx context.Context, id int64, status models.ReportStatus, updatedBy string) (*models.Report, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "status must be "+string(models.ReportStatusInProgress)+" or "+string(models.ReportStatusResolved))
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, status, time.Now())
	entry := &models.StatusLog{
		ReportID:  id,
		OldStatus: current.Status,
		NewStatus: status,
		UpdatedBy: updatedBy,
		Success:   err == nil,
	}
	if err != nil {
		msg := err.Error()
		entry.Error = &msg
	}
	if logErr := s.logs.Create(ctx, entry); logErr != nil {
		s.logger.Sugar().Warnw("failed to append status history", "report_id", id, "error", logErr)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report status")
	}
	return updated, nil
}

// StatusHistory returns the chronological status log of one report.
func (s *ReportService) StatusHistory(ctx context.Context, id int64) ([]models.StatusLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByReport(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load status history")
	}
	return entries, nil
}

// Delete removes a report and unlinks its images best effort.
func (s *ReportService) Delete(ctx context.Context, id int64) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	s.uploads.RemoveAll(report.Images)
	s.logger.Sugar().Infow("report deleted", "id", id, "images", len(report.Images))
	return nil
}

// foundAtLayouts are the accepted submission timestamp formats, tried in order.
var foundAtLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseFoundAt(raw string) (time.Time, error) {
	for _, layout := range foundAtLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "foundAt is not a recognised timestamp")
}
