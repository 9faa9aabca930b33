package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hse-ops/hazard-report-api/internal/models"
)

// ExportTaskStore tracks export runs in process memory. Tasks are
// throwaway records: a restart loses them, callers simply re-export.
type ExportTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.ExportTask
	ttl   time.Duration
}

// NewExportTaskStore builds a store whose entries expire ttl after creation.
func NewExportTaskStore(ttl time.Duration) *ExportTaskStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportTaskStore{tasks: make(map[string]*models.ExportTask), ttl: ttl}
}

// Put registers a task.
func (s *ExportTaskStore) Put(task *models.ExportTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
}

// Get returns a snapshot of the task, if known.
func (s *ExportTaskStore) Get(id string) (*models.ExportTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// SetProcessing marks a task running with a known row total.
func (s *ExportTaskStore) SetProcessing(id string, total int) {
	s.update(id, func(t *models.ExportTask) {
		t.Status = models.ExportTaskProcessing
		t.Total = total
	})
}

// SetProgress records how many rows have been collected so far.
func (s *ExportTaskStore) SetProgress(id string, processed int) {
	s.update(id, func(t *models.ExportTask) {
		t.Progress = processed
	})
}

// Complete marks a task finished.
func (s *ExportTaskStore) Complete(id string) {
	s.update(id, func(t *models.ExportTask) {
		now := time.Now()
		t.Status = models.ExportTaskCompleted
		t.Progress = t.Total
		t.CompletedAt = &now
	})
}

// Fail marks a task failed with its error message.
func (s *ExportTaskStore) Fail(id string, cause error) {
	s.update(id, func(t *models.ExportTask) {
		now := time.Now()
		t.Status = models.ExportTaskFailed
		t.CompletedAt = &now
		if cause != nil {
			msg := cause.Error()
			t.Error = &msg
		}
	})
}

// Sweep drops tasks older than the TTL and returns how many were removed.
func (s *ExportTaskStore) Sweep() int {
	cutoff := time.Now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, task := range s.tasks {
		if task.CreatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps on the given interval until ctx is cancelled.
func (s *ExportTaskStore) StartSweeper(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					logger.Sugar().Infow("expired export tasks removed", "count", removed)
				}
			}
		}
	}()
}

func (s *ExportTaskStore) update(id string, fn func(*models.ExportTask)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		fn(task)
	}
}
