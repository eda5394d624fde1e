package worker

import (
	"context"
	"time"

	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/logger"
)

type RetentionConfig struct {
	AuditRetentionDays int
	OutboxRetention    time.Duration
	SweepInterval      time.Duration
}

// RetentionWorker prunes aged rows on a fixed interval: audit logs past
// their retention window, processed outbox events, and expired refresh
// tokens. A failed sweep of one table never blocks the others.
type RetentionWorker struct {
	audit  repository.AuditRepository
	outbox repository.OutboxRepository
	tokens repository.TokenRepository
	config RetentionConfig
	logger *logger.Logger
}

func NewRetentionWorker(
	audit repository.AuditRepository,
	outbox repository.OutboxRepository,
	tokens repository.TokenRepository,
	config RetentionConfig,
	logger *logger.Logger,
) *RetentionWorker {
	return &RetentionWorker{
		audit:  audit,
		outbox: outbox,
		tokens: tokens,
		config: config,
		logger: logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	w.logger.Info("Starting retention worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down retention worker")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) {
	now := time.Now()

	if rows, err := w.audit.DeleteBefore(ctx, now.AddDate(0, 0, -w.config.AuditRetentionDays)); err != nil {
		w.logger.Error(err, "Failed to prune audit logs")
	} else if rows > 0 {
		w.logger.Info("Pruned audit logs", "rows", rows)
	}

	if rows, err := w.outbox.DeleteProcessedBefore(ctx, now.Add(-w.config.OutboxRetention)); err != nil {
		w.logger.Error(err, "Failed to prune processed outbox events")
	} else if rows > 0 {
		w.logger.Info("Pruned processed outbox events", "rows", rows)
	}

	if rows, err := w.tokens.DeleteExpiredBefore(ctx, now); err != nil {
		w.logger.Error(err, "Failed to prune expired refresh tokens")
	} else if rows > 0 {
		w.logger.Info("Pruned expired refresh tokens", "rows", rows)
	}
}
