package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/internal/service/sequence"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) Today() time.Time {
	y, m, d := c.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeOrderRepo struct {
	mu              sync.Mutex
	orders          map[uuid.UUID]*model.Order
	createConflicts int
	createCalls     int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createConflicts > 0 {
		f.createConflicts--
		return apperrors.NewConflict("order number", nil)
	}
	order.Version = 1
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperrors.NewNotFound("order", nil)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) Update(ctx context.Context, order *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.orders[order.ID]
	if !ok {
		return apperrors.NewNotFound("order", nil)
	}
	if stored.Version != order.Version {
		return apperrors.NewConflict("order", nil)
	}
	order.Version++
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Order
	for _, o := range f.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeOrderRepo) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Order
	for _, o := range f.orders {
		if o.VisitID == visitID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeVisitRepo struct {
	mu     sync.Mutex
	visits map[uuid.UUID]*model.Visit
}

func (f *fakeVisitRepo) Create(ctx context.Context, v *model.Visit) error { return nil }

func (f *fakeVisitRepo) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.visits[id]
	if !ok {
		return nil, apperrors.NewNotFound("visit", nil)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVisitRepo) GetByNumber(ctx context.Context, visitNumber string) (*model.Visit, error) {
	return nil, apperrors.NewNotFound("visit", nil)
}

func (f *fakeVisitRepo) Update(ctx context.Context, v *model.Visit) error { return nil }

func (f *fakeVisitRepo) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	return nil, nil
}

func (f *fakeVisitRepo) ListActive(ctx context.Context, date time.Time, statuses []model.VisitStatus) ([]*model.Visit, error) {
	return nil, nil
}

func (f *fakeVisitRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Visit, error) {
	return nil, nil
}

func (f *fakeVisitRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Visit, error) {
	return nil, nil
}

func (f *fakeVisitRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	return nil, nil
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	logs []*model.AuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, log *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error) {
	return f.logs, int64(len(f.logs)), nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (f *fakeCounterRepo) IncrementAndGet(ctx context.Context, class model.SequenceClass, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[string(class)]++
	return f.counters[string(class)], nil
}

func (f *fakeCounterRepo) Get(ctx context.Context, class model.SequenceClass, year int) (*model.SequenceCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.SequenceCounter{Class: class, Year: year, LastValue: f.counters[string(class)]}, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

var _ repository.OrderRepository = (*fakeOrderRepo)(nil)
var _ repository.VisitRepository = (*fakeVisitRepo)(nil)
var _ repository.AuditRepository = (*fakeAuditRepo)(nil)
var _ repository.CounterRepository = (*fakeCounterRepo)(nil)

type testEnv struct {
	svc     *Service
	repo    *fakeOrderRepo
	visits  *fakeVisitRepo
	emitter *fakeEmitter
	clock   *stubClock
	visit   *model.Visit
	actor   uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeOrderRepo()
	visits := &fakeVisitRepo{visits: make(map[uuid.UUID]*model.Visit)}
	emitter := &fakeEmitter{}
	clk := &stubClock{now: time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)}

	visit := &model.Visit{
		Base:        model.Base{ID: uuid.New()},
		VisitNumber: "VIS-2025-00001",
		PatientID:   uuid.New(),
		Status:      model.VisitStatusInProgress,
	}
	visits.visits[visit.ID] = visit

	gen := sequence.NewGenerator(&fakeCounterRepo{counters: make(map[string]int64)}, clk, nil)
	svc := NewService(repo, visits, gen, clk, audit.NewService(&fakeAuditRepo{}), emitter)

	return &testEnv{
		svc:     svc,
		repo:    repo,
		visits:  visits,
		emitter: emitter,
		clock:   clk,
		visit:   visit,
		actor:   uuid.New(),
	}
}

func (e *testEnv) createOrder(t *testing.T, orderType string) *model.Order {
	t.Helper()
	order, err := e.svc.Create(context.Background(), &model.CreateOrderRequest{
		VisitID:   e.visit.ID,
		OrderType: orderType,
	}, e.actor)
	require.NoError(t, err)
	return order
}

func TestCreateIssuesOrderAndAccessionNumbers(t *testing.T) {
	env := newTestEnv(t)

	imaging := env.createOrder(t, "imaging")
	assert.Equal(t, "ORD-2025-00001", imaging.OrderNumber)
	assert.Equal(t, "ACC-2025-00001", imaging.AccessionNumber)
	assert.Equal(t, model.OrderStatusOrdered, imaging.Status)
	assert.Equal(t, env.visit.PatientID, imaging.PatientID)
	assert.Equal(t, env.actor, imaging.OrderedBy)

	lab := env.createOrder(t, "lab")
	assert.Equal(t, "ORD-2025-00002", lab.OrderNumber)
	assert.Equal(t, "ACC-2025-00002", lab.AccessionNumber)
}

func TestCreateProcedureSkipsAccessionNumber(t *testing.T) {
	env := newTestEnv(t)

	procedure := env.createOrder(t, "procedure")
	assert.Equal(t, "ORD-2025-00001", procedure.OrderNumber)
	assert.Empty(t, procedure.AccessionNumber)
}

func TestCreateRejectsTerminalVisit(t *testing.T) {
	env := newTestEnv(t)
	env.visit.Status = model.VisitStatusCompleted
	env.visits.visits[env.visit.ID] = env.visit

	_, err := env.svc.Create(context.Background(), &model.CreateOrderRequest{
		VisitID:   env.visit.ID,
		OrderType: "lab",
	}, env.actor)

	require.Error(t, err)
	assert.True(t, apperrors.IsImmutableState(err))
}

func TestCreateRetriesWithFreshNumberOnCollision(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createConflicts = 1

	order := env.createOrder(t, "procedure")
	assert.Equal(t, "ORD-2025-00002", order.OrderNumber)
	assert.Equal(t, 2, env.repo.createCalls)
}

func TestUpdateStatusSideEffects(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "imaging")
	scheduledFor := env.clock.now.Add(2 * time.Hour)

	scheduled, err := env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
		Status:      string(model.OrderStatusScheduled),
		ScheduledAt: &scheduledFor,
	}, env.actor)
	require.NoError(t, err)
	require.NotNil(t, scheduled.ScheduledAt)
	assert.Equal(t, scheduledFor, *scheduled.ScheduledAt)

	performer := uuid.New()
	inProgress, err := env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
		Status: string(model.OrderStatusInProgress),
	}, performer)
	require.NoError(t, err)
	require.NotNil(t, inProgress.PerformedBy)
	assert.Equal(t, performer, *inProgress.PerformedBy)

	env.clock.now = env.clock.now.Add(30 * time.Minute)
	completed, err := env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
		Status: string(model.OrderStatusCompleted),
	}, performer)
	require.NoError(t, err)
	require.NotNil(t, completed.PerformedAt)
	assert.Equal(t, env.clock.Now(), *completed.PerformedAt)
}

func TestAttachReportMovesCompletedToReported(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "imaging")

	for _, status := range []model.OrderStatus{model.OrderStatusInProgress, model.OrderStatusCompleted} {
		_, err := env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
			Status: string(status),
		}, env.actor)
		require.NoError(t, err)
	}

	reporter := uuid.New()
	reported, err := env.svc.AttachReport(context.Background(), order.ID, &model.AttachReportRequest{
		ReportText: "No acute findings.",
	}, reporter)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusReported, reported.Status)
	assert.Equal(t, "No acute findings.", reported.ReportText)
	require.NotNil(t, reported.ReportedBy)
	assert.Equal(t, reporter, *reported.ReportedBy)
	require.NotNil(t, reported.ReportedAt)
}

func TestAttachReportRejectsUnfinishedOrder(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "lab")

	_, err := env.svc.AttachReport(context.Background(), order.ID, &model.AttachReportRequest{
		ReportText: "premature",
	}, env.actor)

	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.EqualError(t, err, "invalid status transition from ordered to reported")
}

func TestCancelRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "lab")

	_, err := env.svc.Cancel(context.Background(), order.ID, "  ", env.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsMissingReason(err))

	cancelled, err := env.svc.Cancel(context.Background(), order.ID, "duplicate order", env.actor)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "duplicate order", *cancelled.CancellationReason)
}

func TestTerminalOrderRejectsTransitions(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "procedure")

	_, err := env.svc.Cancel(context.Background(), order.ID, "not needed", env.actor)
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
		Status: string(model.OrderStatusInProgress),
	}, env.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	env := newTestEnv(t)
	order := env.createOrder(t, "lab")

	_, err := env.svc.UpdateStatus(context.Background(), order.ID, &model.UpdateOrderStatusRequest{
		Status: string(model.OrderStatusInProgress),
	}, env.actor)
	require.NoError(t, err)

	assert.Equal(t, []string{model.EventOrderStatusChanged}, env.emitter.events)
}
