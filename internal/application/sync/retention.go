package syncapp

import (
	"context"
	"time"

	"github.com/portal/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// LogRetentionService is the only component allowed to delete sync log rows:
// a time-based sweep of entries older than the retention window.
type LogRetentionService struct {
	logs      sync.LogRepository
	retention time.Duration
	logger    *zap.Logger
}

// NewLogRetentionService creates a new LogRetentionService
func NewLogRetentionService(logs sync.LogRepository, retention time.Duration, logger *zap.Logger) *LogRetentionService {
	return &LogRetentionService{
		logs:      logs,
		retention: retention,
		logger:    logger,
	}
}

// Sweep deletes entries older than the retention window and returns how many
// rows were removed
func (s *LogRetentionService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	deleted, err := s.logs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Sync log retention sweep failed", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("Sync log retention sweep completed",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
