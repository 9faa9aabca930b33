package service

import (
	"errors"
	"os"
	"sort"

	"go.uber.org/zap"

	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/storage"
)

type orderFileStorage interface {
	List() ([]storage.FileInfo, error)
	Open(filename string) (*os.File, error)
}

// OrderService exposes the shared orders directory.
type OrderService struct {
	storage orderFileStorage
	logger  *zap.Logger
}

// NewOrderService constructs the order service.
func NewOrderService(storage orderFileStorage, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{storage: storage, logger: logger}
}

// List enumerates order files, newest first.
func (s *OrderService) List() ([]storage.FileInfo, error) {
	files, err := s.storage.List()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list order files")
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].LastModified > files[j].LastModified
	})
	return files, nil
}

// Open returns a read handle for one order file.
func (s *OrderService) Open(name string) (*os.File, error) {
	file, err := s.storage.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "order file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open order file")
	}
	return file, nil
}
