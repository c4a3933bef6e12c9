package service

import (
	"context"
	"elearning_backend/internal/config"
	"elearning_backend/internal/repository"
	"elearning_backend/pkg/eventbus"
	"elearning_backend/pkg/logger"
	"elearning_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OutboxDispatcher publishes committed outbox events. Side effects of grading
// and completion (notifications, analytics) hang off these events instead of
// running inside the grading transaction.
type OutboxDispatcher struct {
	DB        *gorm.DB
	Repo      *repository.OutboxRepository
	Publisher eventbus.Publisher
	Cfg       *config.OutboxConfig
}

func NewOutboxDispatcher(db *gorm.DB, repo *repository.OutboxRepository, publisher eventbus.Publisher, cfg *config.OutboxConfig) *OutboxDispatcher {
	return &OutboxDispatcher{DB: db, Repo: repo, Publisher: publisher, Cfg: cfg}
}

// DispatchPending publishes one batch of pending events and returns how many
// were sent.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) (int, error) {
	repo := d.Repo.WithTx(d.DB.WithContext(ctx))
	events, err := repo.ListPending(d.Cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range events {
		ev := &events[i]
		if err := d.Publisher.Publish(ctx, ev.Topic, ev.Payload); err != nil {
			monitoring.OutboxDispatched.WithLabelValues("failed").Inc()
			logger.Log.Warn("Outbox publish failed",
				zap.String("eventID", ev.ID),
				zap.String("topic", ev.Topic),
				zap.Int("attempts", ev.Attempts+1),
				zap.Error(err),
			)
			if err := repo.MarkAttemptFailed(ev, err, d.Cfg.MaxAttempts); err != nil {
				return sent, err
			}
			continue
		}
		if err := repo.MarkSent(ev.ID, time.Now()); err != nil {
			return sent, err
		}
		monitoring.OutboxDispatched.WithLabelValues("sent").Inc()
		sent++
	}
	return sent, nil
}

// Run dispatches on a ticker until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	interval := time.Duration(d.Cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				logger.Log.Error("Outbox dispatch error", zap.Error(err))
			}
		}
	}
}
