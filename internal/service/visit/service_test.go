package visit

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

type fakeVisitRepo struct {
	mu              sync.Mutex
	visits          map[uuid.UUID]*model.Visit
	createConflicts int
	createCalls     int
	afterGet        func()
}

func newFakeVisitRepo() *fakeVisitRepo {
	return &fakeVisitRepo{visits: make(map[uuid.UUID]*model.Visit)}
}

func (f *fakeVisitRepo) Create(ctx context.Context, visit *model.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createConflicts > 0 {
		f.createConflicts--
		return apperrors.NewConflict("visit number", nil)
	}
	visit.Version = 1
	cp := *visit
	f.visits[visit.ID] = &cp
	return nil
}

func (f *fakeVisitRepo) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	f.mu.Lock()
	stored, ok := f.visits[id]
	var cp model.Visit
	if ok {
		cp = *stored
	}
	hook := f.afterGet
	f.afterGet = nil
	f.mu.Unlock()

	if !ok {
		return nil, apperrors.NewNotFound("visit", nil)
	}
	if hook != nil {
		hook()
	}
	return &cp, nil
}

func (f *fakeVisitRepo) GetByNumber(ctx context.Context, visitNumber string) (*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.visits {
		if v.VisitNumber == visitNumber {
			cp := *v
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("visit", nil)
}

func (f *fakeVisitRepo) Update(ctx context.Context, visit *model.Visit) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.visits[visit.ID]
	if !ok {
		return apperrors.NewNotFound("visit", nil)
	}
	if stored.Version != visit.Version {
		return apperrors.NewConflict("visit", nil)
	}
	visit.Version++
	cp := *visit
	f.visits[visit.ID] = &cp
	return nil
}

func (f *fakeVisitRepo) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Visit
	for _, v := range f.visits {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeVisitRepo) ListActive(ctx context.Context, date time.Time, statuses []model.VisitStatus) ([]*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowed := make(map[model.VisitStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []*model.Visit
	for _, v := range f.visits {
		if sameDay(v.VisitDate, date) && allowed[v.Status] {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (f *fakeVisitRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Visit
	for _, v := range f.visits {
		if !v.VisitDate.Before(from) && v.VisitDate.Before(to.AddDate(0, 0, 1)) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (f *fakeVisitRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Visit
	for _, v := range f.visits {
		if v.DoctorID != nil && *v.DoctorID == doctorID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sortByCheckIn(out)
	return out, nil
}

func (f *fakeVisitRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Visit
	for _, v := range f.visits {
		if v.PatientID == patientID {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeVisitRepo) seed(visit *model.Visit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if visit.Version == 0 {
		visit.Version = 1
	}
	cp := *visit
	f.visits[visit.ID] = &cp
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByCheckIn(visits []*model.Visit) {
	for i := 1; i < len(visits); i++ {
		for j := i; j > 0 && visits[j].CheckInTime.Before(visits[j-1].CheckInTime); j-- {
			visits[j], visits[j-1] = visits[j-1], visits[j]
		}
	}
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (f *fakePatientRepo) Create(ctx context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, apperrors.NewNotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePatientRepo) GetByMRN(ctx context.Context, mrn string) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if p.MRN == mrn {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFound("patient", nil)
}

func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.patients[p.ID] = &cp
	return nil
}

func (f *fakePatientRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.patients, id)
	return nil
}

func (f *fakePatientRepo) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Patient
	for _, p := range f.patients {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
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
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logs, int64(len(f.logs)), nil
}

func (f *fakeAuditRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: make(map[string]int64)}
}

func (f *fakeCounterRepo) IncrementAndGet(ctx context.Context, class model.SequenceClass, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(class)
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeCounterRepo) Get(ctx context.Context, class model.SequenceClass, year int) (*model.SequenceCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.SequenceCounter{Class: class, Year: year, LastValue: f.counters[string(class)]}, nil
}

type emittedEvent struct {
	eventType string
	payload   interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, eventType string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{eventType: eventType, payload: payload})
	return nil
}

func (f *fakeEmitter) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.eventType
	}
	return out
}

type fakeNotifier struct {
	mu          sync.Mutex
	emergencies []*model.Visit
	summaries   []*model.Patient
}

func (f *fakeNotifier) NotifyEmergencyCheckIn(ctx context.Context, visit *model.Visit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergencies = append(f.emergencies, visit)
}

func (f *fakeNotifier) SendVisitSummary(ctx context.Context, visit *model.Visit, patient *model.Patient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, patient)
}

type testEnv struct {
	svc      *Service
	repo     *fakeVisitRepo
	patients *fakePatientRepo
	audits   *fakeAuditRepo
	emitter  *fakeEmitter
	notifier *fakeNotifier
	clock    *stubClock
	patient  *model.Patient
	actor    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeVisitRepo()
	patients := newFakePatientRepo()
	audits := &fakeAuditRepo{}
	emitter := &fakeEmitter{}
	notifier := &fakeNotifier{}
	clk := &stubClock{now: time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)}

	patient := &model.Patient{
		Base:      model.Base{ID: uuid.New()},
		MRN:       "CLI-2025-00001",
		FirstName: "Ada",
		LastName:  "Osei",
		Email:     "ada.osei@example.com",
	}
	require.NoError(t, patients.Create(context.Background(), patient))

	gen := sequence.NewGenerator(newFakeCounterRepo(), clk, nil)
	svc := NewService(repo, patients, gen, clk, audit.NewService(audits), emitter, notifier, nil)

	return &testEnv{
		svc:      svc,
		repo:     repo,
		patients: patients,
		audits:   audits,
		emitter:  emitter,
		notifier: notifier,
		clock:    clk,
		patient:  patient,
		actor:    uuid.New(),
	}
}

func (e *testEnv) createVisit(t *testing.T, priority string) *model.Visit {
	t.Helper()
	visit, err := e.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientID: e.patient.ID,
		VisitType: string(model.VisitTypeConsultation),
		Priority:  priority,
	}, e.actor)
	require.NoError(t, err)
	return visit
}

func (e *testEnv) seedVisitInStatus(status model.VisitStatus) *model.Visit {
	visit := &model.Visit{
		Base:        model.Base{ID: uuid.New()},
		VisitNumber: "VIS-2025-09999",
		PatientID:   e.patient.ID,
		VisitDate:   e.clock.Today(),
		VisitType:   model.VisitTypeConsultation,
		Status:      status,
		Priority:    model.VisitPriorityNormal,
		CheckInTime: e.clock.Now(),
	}
	if status == model.VisitStatusInProgress || status == model.VisitStatusCompleted {
		start := e.clock.Now()
		visit.ConsultationStartTime = &start
	}
	if status == model.VisitStatusCompleted {
		end := e.clock.Now().Add(30 * time.Minute)
		visit.ConsultationEndTime = &end
	}
	if status == model.VisitStatusCancelled {
		reason := "seeded cancellation"
		visit.CancellationReason = &reason
	}
	e.repo.seed(visit)
	return visit
}

var _ repository.VisitRepository = (*fakeVisitRepo)(nil)
var _ repository.PatientRepository = (*fakePatientRepo)(nil)
var _ repository.AuditRepository = (*fakeAuditRepo)(nil)
var _ repository.CounterRepository = (*fakeCounterRepo)(nil)

func TestCreateStartsRegistered(t *testing.T) {
	env := newTestEnv(t)

	visit := env.createVisit(t, "")

	assert.Equal(t, model.VisitStatusRegistered, visit.Status)
	assert.Equal(t, "VIS-2025-00001", visit.VisitNumber)
	assert.Equal(t, model.VisitPriorityNormal, visit.Priority)
	assert.Equal(t, env.clock.Now(), visit.CheckInTime)
	assert.Nil(t, visit.ConsultationStartTime)
	assert.Nil(t, visit.ConsultationEndTime)
	assert.Equal(t, env.actor, visit.CreatedBy)
	assert.Equal(t, []string{model.EventVisitRegistered}, env.emitter.types())
}

func TestCreateUnknownPatientFails(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientID: uuid.New(),
		VisitType: string(model.VisitTypeConsultation),
	}, env.actor)

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateRetriesWithFreshNumberOnCollision(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createConflicts = 1

	visit := env.createVisit(t, "")

	// The colliding number is abandoned; the retry gets the next one.
	assert.Equal(t, "VIS-2025-00002", visit.VisitNumber)
	assert.Equal(t, 2, env.repo.createCalls)
}

func TestCreateSurfacesConflictAfterRetriesExhausted(t *testing.T) {
	env := newTestEnv(t)
	env.repo.createConflicts = 5

	_, err := env.svc.Create(context.Background(), &model.CreateVisitRequest{
		PatientID: env.patient.ID,
		VisitType: string(model.VisitTypeConsultation),
	}, env.actor)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, createAttempts, env.repo.createCalls)
}

func TestCreateEmergencyPriorityNotifies(t *testing.T) {
	env := newTestEnv(t)

	env.createVisit(t, string(model.VisitPriorityEmergency))

	require.Len(t, env.notifier.emergencies, 1)
	assert.Equal(t, model.VisitPriorityEmergency, env.notifier.emergencies[0].Priority)
}

func TestTransitionTable(t *testing.T) {
	targets := []model.VisitStatus{
		model.VisitStatusRegistered,
		model.VisitStatusWaiting,
		model.VisitStatusInProgress,
		model.VisitStatusCompleted,
		model.VisitStatusCancelled,
	}
	allowed := map[model.VisitStatus]map[model.VisitStatus]bool{
		model.VisitStatusRegistered: {model.VisitStatusWaiting: true, model.VisitStatusCancelled: true},
		model.VisitStatusWaiting:    {model.VisitStatusInProgress: true, model.VisitStatusCancelled: true},
		model.VisitStatusInProgress: {model.VisitStatusCompleted: true, model.VisitStatusCancelled: true},
		model.VisitStatusCompleted:  {},
		model.VisitStatusCancelled:  {},
	}

	for from, targetsAllowed := range allowed {
		for _, target := range targets {
			t.Run(string(from)+"_to_"+string(target), func(t *testing.T) {
				env := newTestEnv(t)
				visit := env.seedVisitInStatus(from)

				updated, err := env.svc.UpdateStatus(context.Background(), visit.ID, target, "queue cleared", env.actor)
				if targetsAllowed[target] {
					require.NoError(t, err)
					assert.Equal(t, target, updated.Status)
				} else {
					require.Error(t, err)
					assert.True(t, apperrors.IsInvalidTransition(err))
					assert.EqualError(t, err,
						"invalid status transition from "+string(from)+" to "+string(target))
				}
			})
		}
	}
}

func TestCancelWithoutReasonFails(t *testing.T) {
	env := newTestEnv(t)
	visit := env.createVisit(t, "")

	for _, reason := range []string{"", "   "} {
		_, err := env.svc.Cancel(context.Background(), visit.ID, reason, env.actor)
		require.Error(t, err)
		assert.True(t, apperrors.IsMissingReason(err))
		assert.EqualError(t, err, "cancellation requires a reason")
	}

	// The failed cancellations left the visit untouched.
	current, err := env.svc.Get(context.Background(), visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusRegistered, current.Status)
	assert.Nil(t, current.CancellationReason)
}

func TestCancelRecordsExactReason(t *testing.T) {
	env := newTestEnv(t)
	visit := env.createVisit(t, "")

	reason := "patient left after two hour wait"
	cancelled, err := env.svc.Cancel(context.Background(), visit.ID, reason, env.actor)
	require.NoError(t, err)

	assert.Equal(t, model.VisitStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)
}

func TestStartConsultationAssignsCallerWhenUnassigned(t *testing.T) {
	env := newTestEnv(t)
	visit := env.seedVisitInStatus(model.VisitStatusWaiting)

	started, err := env.svc.StartConsultation(context.Background(), visit.ID, env.actor)
	require.NoError(t, err)

	assert.Equal(t, model.VisitStatusInProgress, started.Status)
	require.NotNil(t, started.DoctorID)
	assert.Equal(t, env.actor, *started.DoctorID)
	require.NotNil(t, started.ConsultationStartTime)
	assert.Equal(t, env.clock.Now(), *started.ConsultationStartTime)
}

func TestStartConsultationNeverOverwritesAssignment(t *testing.T) {
	env := newTestEnv(t)
	assigned := uuid.New()
	visit := env.seedVisitInStatus(model.VisitStatusWaiting)
	visit.DoctorID = &assigned
	env.repo.seed(visit)

	started, err := env.svc.StartConsultation(context.Background(), visit.ID, env.actor)
	require.NoError(t, err)

	require.NotNil(t, started.DoctorID)
	assert.Equal(t, assigned, *started.DoctorID)
}

func TestConsultationStartTimeSetOnlyWhenUnset(t *testing.T) {
	earlier := time.Date(2025, 5, 20, 8, 15, 0, 0, time.UTC)
	visit := &model.Visit{
		Status:                model.VisitStatusWaiting,
		ConsultationStartTime: &earlier,
	}

	err := applyTransition(visit, model.VisitStatusInProgress, "", time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, earlier, *visit.ConsultationStartTime)
}

func TestCompleteConsultationSetsEndTimeAndSendsSummary(t *testing.T) {
	env := newTestEnv(t)
	visit := env.seedVisitInStatus(model.VisitStatusInProgress)
	env.clock.now = env.clock.now.Add(45 * time.Minute)

	completed, err := env.svc.CompleteConsultation(context.Background(), visit.ID, env.actor)
	require.NoError(t, err)

	assert.Equal(t, model.VisitStatusCompleted, completed.Status)
	require.NotNil(t, completed.ConsultationEndTime)
	assert.Equal(t, env.clock.Now(), *completed.ConsultationEndTime)

	require.Len(t, env.notifier.summaries, 1)
	assert.Equal(t, env.patient.Email, env.notifier.summaries[0].Email)
	assert.Contains(t, env.emitter.types(), model.EventVisitCompleted)
}

func TestCompleteConsultationSkipsSummaryWithoutEmail(t *testing.T) {
	env := newTestEnv(t)
	env.patient.Email = ""
	require.NoError(t, env.patients.Update(context.Background(), env.patient))
	visit := env.seedVisitInStatus(model.VisitStatusInProgress)

	_, err := env.svc.CompleteConsultation(context.Background(), visit.ID, env.actor)
	require.NoError(t, err)
	assert.Empty(t, env.notifier.summaries)
}

func TestUpdateOnTerminalVisitFails(t *testing.T) {
	env := newTestEnv(t)

	for _, status := range []model.VisitStatus{model.VisitStatusCompleted, model.VisitStatusCancelled} {
		visit := env.seedVisitInStatus(status)
		notes := "amended"

		_, err := env.svc.Update(context.Background(), visit.ID, &model.UpdateVisitRequest{Notes: &notes}, env.actor)
		require.Error(t, err)
		assert.True(t, apperrors.IsImmutableState(err))
		assert.EqualError(t, err, "visit in terminal status "+string(status)+" cannot be modified")
	}
}

func TestConcurrentTransitionLoserGetsConflict(t *testing.T) {
	env := newTestEnv(t)
	visit := env.createVisit(t, "")

	// Between the loser's read and write, a competing transition moves
	// the visit to waiting and bumps its version.
	env.repo.afterGet = func() {
		_, err := env.svc.UpdateStatus(context.Background(), visit.ID, model.VisitStatusWaiting, "", uuid.New())
		require.NoError(t, err)
	}

	_, err := env.svc.Cancel(context.Background(), visit.ID, "no longer needed", env.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.False(t, apperrors.IsInvalidTransition(err))

	// The winner's transition stands.
	current, err := env.svc.Get(context.Background(), visit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusWaiting, current.Status)
}

func TestVisitLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	visit := env.createVisit(t, "")
	assert.Equal(t, model.VisitStatusRegistered, visit.Status)

	_, err := env.svc.UpdateStatus(context.Background(), visit.ID, model.VisitStatusWaiting, "", env.actor)
	require.NoError(t, err)

	started, err := env.svc.StartConsultation(context.Background(), visit.ID, env.actor)
	require.NoError(t, err)
	require.NotNil(t, started.ConsultationStartTime)
	require.NotNil(t, started.DoctorID)
	assert.Equal(t, env.actor, *started.DoctorID)

	_, err = env.svc.UpdateStatus(context.Background(), visit.ID, model.VisitStatusRegistered, "", env.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestQueueReturnsRankedWaitingVisits(t *testing.T) {
	env := newTestEnv(t)
	base := env.clock.Today().Add(9 * time.Hour)

	urgent := env.seedVisitInStatus(model.VisitStatusWaiting)
	urgent.Priority = model.VisitPriorityUrgent
	urgent.CheckInTime = base
	env.repo.seed(urgent)

	emergency := env.seedVisitInStatus(model.VisitStatusWaiting)
	emergency.Priority = model.VisitPriorityEmergency
	emergency.CheckInTime = base.Add(5 * time.Minute)
	env.repo.seed(emergency)

	env.seedVisitInStatus(model.VisitStatusCompleted)

	queue, err := env.svc.Queue(context.Background(), time.Time{})
	require.NoError(t, err)

	require.Len(t, queue, 2)
	assert.Equal(t, emergency.ID, queue[0].ID)
	assert.Equal(t, urgent.ID, queue[1].ID)
}

func TestStatsDefaultsToToday(t *testing.T) {
	env := newTestEnv(t)
	env.seedVisitInStatus(model.VisitStatusCompleted)

	stats, err := env.svc.Stats(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, env.clock.Today(), stats.DateFrom)
	assert.Equal(t, env.clock.Today(), stats.DateTo)
	assert.Equal(t, 1, stats.TotalVisits)
}
