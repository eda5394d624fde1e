package worker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/pkg/logger"
)

type fakeAuditRepo struct {
	cutoffs []time.Time
	err     error
}

func (f *fakeAuditRepo) Create(context.Context, *model.AuditLog) error { return nil }

func (f *fakeAuditRepo) List(context.Context, *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}

func (f *fakeAuditRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, nil
}

type fakeOutboxPruner struct {
	cutoffs []time.Time
}

func (f *fakeOutboxPruner) Create(context.Context, *model.OutboxEvent) error { return nil }

func (f *fakeOutboxPruner) GetPendingEventsWithLock(context.Context, int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxPruner) BeginTx(context.Context) (*sql.Tx, error) { return nil, nil }

func (f *fakeOutboxPruner) UpdateStatusTx(context.Context, *sql.Tx, uuid.UUID, model.OutboxStatus, *string, *time.Time) error {
	return nil
}

func (f *fakeOutboxPruner) MoveToDeadLetter(context.Context, *sql.Tx, *model.OutboxEvent) error {
	return nil
}

func (f *fakeOutboxPruner) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, before)
	return 2, nil
}

type fakeTokenRepo struct {
	cutoffs []time.Time
}

func (f *fakeTokenRepo) Store(context.Context, *model.RefreshToken) error { return nil }

func (f *fakeTokenRepo) GetByHash(context.Context, string) (*model.RefreshToken, error) {
	return nil, nil
}

func (f *fakeTokenRepo) Revoke(context.Context, uuid.UUID) error           { return nil }
func (f *fakeTokenRepo) RevokeAllForUser(context.Context, uuid.UUID) error { return nil }

func (f *fakeTokenRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, nil
}

func newWorker(audit *fakeAuditRepo, outbox *fakeOutboxPruner, tokens *fakeTokenRepo) *RetentionWorker {
	return NewRetentionWorker(audit, outbox, tokens, RetentionConfig{
		AuditRetentionDays: 90,
		OutboxRetention:    24 * time.Hour,
		SweepInterval:      time.Minute,
	}, logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}))
}

func TestSweepPrunesAllTables(t *testing.T) {
	audit := &fakeAuditRepo{}
	outbox := &fakeOutboxPruner{}
	tokens := &fakeTokenRepo{}

	newWorker(audit, outbox, tokens).sweep(context.Background())

	require.Len(t, audit.cutoffs, 1)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -90), audit.cutoffs[0], time.Second)

	require.Len(t, outbox.cutoffs, 1)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), outbox.cutoffs[0], time.Second)

	require.Len(t, tokens.cutoffs, 1)
	assert.WithinDuration(t, time.Now(), tokens.cutoffs[0], time.Second)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	audit := &fakeAuditRepo{err: errors.New("deadlock detected")}
	outbox := &fakeOutboxPruner{}
	tokens := &fakeTokenRepo{}

	newWorker(audit, outbox, tokens).sweep(context.Background())

	assert.Len(t, outbox.cutoffs, 1)
	assert.Len(t, tokens.cutoffs, 1)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		newWorker(&fakeAuditRepo{}, &fakeOutboxPruner{}, &fakeTokenRepo{}).Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention worker did not stop after context cancellation")
	}
}
