// Package audit is a thin adapter over the store's live-subscription
// primitive: it watches batch counter changes and logs them. The write
// path never depends on it; losing the stream loses visibility, not
// correctness.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/repository"
)

// Watcher consumes batch change notifications until its context ends.
type Watcher struct {
	batches repository.BatchRepository
	logger  *zap.Logger
}

func NewWatcher(batches repository.BatchRepository, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{batches: batches, logger: logger}
}

// Run blocks, logging every observed counter change, until ctx is
// cancelled or the stream closes.
func (w *Watcher) Run(ctx context.Context) error {
	changes, err := w.batches.Watch(ctx)
	if err != nil {
		return err
	}

	w.logger.Info("batch audit stream started")
	for change := range changes {
		w.logger.Info("batch counters changed",
			zap.String("batch_id", change.BatchID),
			zap.String("owner_id", change.OwnerID),
			zap.Int("current_count", change.CurrentCount),
			zap.Int("initial_count", change.InitialCount),
			zap.Int("displayed_mortality", change.InitialCount-change.CurrentCount))
	}
	w.logger.Info("batch audit stream closed")
	return nil
}
