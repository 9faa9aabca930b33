package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hse-ops/hazard-report-api/internal/dto"
	"github.com/hse-ops/hazard-report-api/internal/models"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/export"
	"github.com/hse-ops/hazard-report-api/pkg/jobs"
)

// reportExportHeaders mirrors the column labels existing exports carry.
var reportExportHeaders = []string{"项目", "举报人", "电话", "分类", "发现时间", "地点", "描述", "状态", "创建时间"}

var reportExportWidths = []float64{30, 15, 15, 20, 20, 30, 50, 15, 20}

// reportStatusFills colors the status column per value.
var reportStatusFills = map[string]string{
	string(models.ReportStatusInProgress): "#FFF3CD",
	string(models.ReportStatusResolved):   "#D4EDDA",
}

type exportReportSource interface {
	Count(ctx context.Context, filter models.ReportFilter) (int, error)
	ListBatch(ctx context.Context, filter models.ReportFilter, offset, limit int) ([]models.Report, error)
}

type exportFileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportRunConfig tunes export generation.
type ExportRunConfig struct {
	BatchSize int
	FileTTL   time.Duration
	Workers   int
	// PDFFontPath points to a unicode TTF. PDF exports stay disabled until
	// one is configured because the core fonts cannot encode the Chinese
	// headers and status values.
	PDFFontPath string
}

// ExportService renders filtered report dumps in the background and
// tracks their lifecycle through an in-memory task store.
type ExportService struct {
	reports exportReportSource
	storage exportFileStorage
	tasks   *ExportTaskStore
	queue   *jobs.Queue
	excel   datasetRenderer
	csv     datasetRenderer
	pdf     titledRenderer
	logger  *zap.Logger
	cfg     ExportRunConfig

	mu      sync.Mutex
	filters map[string]models.ReportFilter
}

// NewExportService constructs an ExportService. Callers must Start the
// returned service's queue before enqueuing exports.
func NewExportService(reports exportReportSource, storage exportFileStorage, tasks *ExportTaskStore, cfg ExportRunConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	s := &ExportService{
		reports: reports,
		storage: storage,
		tasks:   tasks,
		excel: export.NewExcelExporter(export.ExcelOptions{
			SheetName:    "Reports",
			ColumnWidths: reportExportWidths,
			StatusColumn: 7,
			StatusFills:  reportStatusFills,
		}),
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(export.PDFOptions{FontPath: cfg.PDFFontPath}),
		logger:  logger,
		cfg:     cfg,
		filters: make(map[string]models.ReportFilter),
	}
	s.queue = jobs.NewQueue("report-export", s.run, jobs.QueueConfig{Workers: cfg.Workers, Logger: logger})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Begin registers an export task for the filter and queues its generation.
func (s *ExportService) Begin(format models.ExportFormat, filter models.ReportFilter) (*dto.ExportStarted, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if format == models.ExportFormatPDF && s.cfg.PDFFontPath == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pdf export requires a configured unicode font")
	}
	task := &models.ExportTask{
		ID:        uuid.NewString(),
		Status:    models.ExportTaskPending,
		Format:    format,
		Filename:  exportFilename(format, time.Now()),
		CreatedAt: time.Now(),
	}
	s.tasks.Put(task)
	s.mu.Lock()
	s.filters[task.ID] = filter
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: task.ID, Type: "report-export"}); err != nil {
		s.tasks.Fail(task.ID, err)
		s.dropFilter(task.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return &dto.ExportStarted{TaskID: task.ID, Filename: task.Filename}, nil
}

// Task returns the current state of an export task.
func (s *ExportService) Task(id string) (*models.ExportTask, error) {
	task, ok := s.tasks.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export task not found")
	}
	return task, nil
}

// OpenDownload hands back the rendered file of a completed task.
func (s *ExportService) OpenDownload(id string) (*os.File, string, error) {
	task, ok := s.tasks.Get(id)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export task not found")
	}
	if task.Status != models.ExportTaskCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrExportNotReady, "export task not completed")
	}
	file, err := s.storage.Open(task.Filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, task.Filename, nil
}

// CleanupFiles removes rendered exports older than the file TTL.
func (s *ExportService) CleanupFiles() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.FileTTL)
	if err != nil {
		s.logger.Sugar().Warnw("export file cleanup failed", "error", err)
		return
	}
	if len(deleted) > 0 {
		s.logger.Sugar().Infow("expired export files removed", "count", len(deleted))
	}
}

func (s *ExportService) run(ctx context.Context, job jobs.Job) error {
	filter, ok := s.takeFilter(job.ID)
	if !ok {
		return fmt.Errorf("export %s has no filter", job.ID)
	}
	task, ok := s.tasks.Get(job.ID)
	if !ok {
		return fmt.Errorf("export %s unknown", job.ID)
	}

	if err := s.generate(ctx, task, filter); err != nil {
		s.tasks.Fail(job.ID, err)
		return err
	}
	s.tasks.Complete(job.ID)
	s.logger.Sugar().Infow("export completed", "task_id", job.ID, "format", task.Format, "file", task.Filename)
	return nil
}

func (s *ExportService) generate(ctx context.Context, task *models.ExportTask, filter models.ReportFilter) error {
	total, err := s.reports.Count(ctx, filter)
	if err != nil {
		return fmt.Errorf("count reports: %w", err)
	}
	s.tasks.SetProcessing(task.ID, total)

	rows := make([][]string, 0, total)
	for offset := 0; offset < total; offset += s.cfg.BatchSize {
		batch, err := s.reports.ListBatch(ctx, filter, offset, s.cfg.BatchSize)
		if err != nil {
			return fmt.Errorf("load batch at %d: %w", offset, err)
		}
		for i := range batch {
			rows = append(rows, exportRow(&batch[i]))
		}
		s.tasks.SetProgress(task.ID, len(rows))
	}

	dataset := export.Dataset{Headers: reportExportHeaders, Rows: rows}
	var payload []byte
	switch task.Format {
	case models.ExportFormatExcel:
		payload, err = s.excel.Render(dataset)
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "隐患报告")
	default:
		err = fmt.Errorf("unsupported format %s", task.Format)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", task.Format, err)
	}

	if _, err := s.storage.Save(task.Filename, payload); err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	return nil
}

func (s *ExportService) takeFilter(id string) (models.ReportFilter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filter, ok := s.filters[id]
	if ok {
		delete(s.filters, id)
	}
	return filter, ok
}

func (s *ExportService) dropFilter(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.filters, id)
}

func exportRow(r *models.Report) []string {
	category := ""
	if r.Category != nil {
		category = *r.Category
	}
	status := r.Status
	if status == "" {
		status = models.ReportStatusInProgress
	}
	return []string{
		r.Project,
		r.Reporter,
		r.Phone,
		category,
		r.FoundAt.Format("2006-01-02 15:04:05"),
		r.Location,
		r.Description,
		string(status),
		r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// exportFilename derives the download name from the creation instant,
// with filesystem-hostile characters replaced.
func exportFilename(format models.ExportFormat, at time.Time) string {
	stamp := at.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("reports_%s.%s", stamp, format.Ext())
}
