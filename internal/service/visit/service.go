package visit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/internal/service/sequence"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

// createAttempts bounds retries when a freshly issued visit number
// loses a uniqueness race at insert time.
const createAttempts = 3

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// Notifier delivers operational notifications for visit milestones.
type Notifier interface {
	NotifyEmergencyCheckIn(ctx context.Context, visit *model.Visit)
	SendVisitSummary(ctx context.Context, visit *model.Visit, patient *model.Patient)
}

type Service struct {
	repo        repository.VisitRepository
	patientRepo repository.PatientRepository
	generator   *sequence.Generator
	clock       clock.Clock
	auditor     *audit.Service
	events      EventEmitter
	notifier    Notifier
	metrics     *metrics.Metrics
}

// NewService builds the visit service. notifier and m may be nil.
func NewService(
	repo repository.VisitRepository,
	patientRepo repository.PatientRepository,
	generator *sequence.Generator,
	clk clock.Clock,
	auditor *audit.Service,
	events EventEmitter,
	notifier Notifier,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		generator:   generator,
		clock:       clk,
		auditor:     auditor,
		events:      events,
		notifier:    notifier,
		metrics:     m,
	}
}

// Create registers a visit. Every visit starts in registered with its
// check-in time stamped from the injected clock. The visit number is
// issued per attempt: when the insert loses a uniqueness race the next
// attempt uses a fresh number rather than fighting over the old one.
func (s *Service) Create(ctx context.Context, req *model.CreateVisitRequest, actorID uuid.UUID) (*model.Visit, error) {
	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	now := s.clock.Now()
	visitDate := s.clock.Today()
	if req.VisitDate != nil {
		visitDate = *req.VisitDate
	}
	priority := model.VisitPriorityNormal
	if req.Priority != "" {
		priority = model.VisitPriority(req.Priority)
	}

	var visit *model.Visit
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.generator.Next(ctx, model.SequenceClassVisit)
		if err != nil {
			return nil, err
		}

		visit = &model.Visit{
			Base:           model.Base{ID: uuid.New()},
			VisitNumber:    number,
			PatientID:      patient.ID,
			DoctorID:       req.DoctorID,
			VisitDate:      visitDate,
			VisitType:      model.VisitType(req.VisitType),
			Status:         model.VisitStatusRegistered,
			Priority:       priority,
			Department:     req.Department,
			ChiefComplaint: req.ChiefComplaint,
			Notes:          req.Notes,
			CheckInTime:    now,
			CreatedBy:      actorID,
			UpdatedBy:      actorID,
		}

		err = s.repo.Create(ctx, visit)
		if err == nil {
			lastErr = nil
			break
		}
		if apperrors.IsConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}

	if s.metrics != nil {
		s.metrics.VisitsRegistered.Inc()
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityVisit, visit.ID, &audit.LogOptions{
		Changes: visit,
	})
	s.emit(ctx, model.EventVisitRegistered, visit, "", actorID)

	if s.notifier != nil && visit.Priority == model.VisitPriorityEmergency {
		s.notifier.NotifyEmergencyCheckIn(ctx, visit)
	}

	return visit, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	return s.repo.List(ctx, filters)
}

// Update changes non-status fields. Terminal visits are immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateVisitRequest, actorID uuid.UUID) (*model.Visit, error) {
	visit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit.Status.IsTerminal() {
		return nil, apperrors.NewImmutableState(string(visit.Status))
	}

	if req.DoctorID != nil {
		visit.DoctorID = req.DoctorID
	}
	if req.Department != nil {
		visit.Department = *req.Department
	}
	if req.ChiefComplaint != nil {
		visit.ChiefComplaint = *req.ChiefComplaint
	}
	if req.Notes != nil {
		visit.Notes = *req.Notes
	}
	if req.Priority != nil {
		visit.Priority = model.VisitPriority(*req.Priority)
	}
	visit.UpdatedBy = actorID

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityVisit, visit.ID, &audit.LogOptions{
		Changes: req,
	})
	return visit, nil
}

// UpdateStatus applies one state machine transition. The losing side
// of a concurrent transition gets Conflict from the storage layer, not
// InvalidTransition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target model.VisitStatus, reason string, actorID uuid.UUID) (*model.Visit, error) {
	visit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := visit.Status
	if err := applyTransition(visit, target, reason, s.clock.Now()); err != nil {
		if s.metrics != nil {
			s.metrics.TransitionsDenied.WithLabelValues(denialReason(err)).Inc()
		}
		return nil, err
	}
	visit.UpdatedBy = actorID

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VisitTransitions.WithLabelValues(string(prev), string(target)).Inc()
	}

	s.auditor.Log(ctx, actorID, model.AuditActionStatusChange, model.AuditEntityVisit, visit.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"from":   prev,
			"to":     target,
			"reason": reason,
		},
	})
	s.emit(ctx, model.EventVisitStatusChanged, visit, prev, actorID)
	if target == model.VisitStatusCompleted {
		s.emit(ctx, model.EventVisitCompleted, visit, prev, actorID)
	}

	return visit, nil
}

// StartConsultation moves the visit to in_progress and assigns the
// acting clinician when the visit has none. An existing assignment is
// never overwritten.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*model.Visit, error) {
	visit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := visit.Status
	if err := applyTransition(visit, model.VisitStatusInProgress, "", s.clock.Now()); err != nil {
		if s.metrics != nil {
			s.metrics.TransitionsDenied.WithLabelValues(denialReason(err)).Inc()
		}
		return nil, err
	}
	if visit.DoctorID == nil {
		doctorID := actorID
		visit.DoctorID = &doctorID
	}
	visit.UpdatedBy = actorID

	if err := s.repo.Update(ctx, visit); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VisitTransitions.WithLabelValues(string(prev), string(model.VisitStatusInProgress)).Inc()
	}

	s.auditor.Log(ctx, actorID, model.AuditActionStatusChange, model.AuditEntityVisit, visit.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"from": prev,
			"to":   model.VisitStatusInProgress,
		},
	})
	s.emit(ctx, model.EventVisitStatusChanged, visit, prev, actorID)

	return visit, nil
}

// CompleteConsultation moves the visit to completed and sends the
// patient a visit summary when an email is on file.
func (s *Service) CompleteConsultation(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*model.Visit, error) {
	visit, err := s.UpdateStatus(ctx, id, model.VisitStatusCompleted, "", actorID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		patient, err := s.patientRepo.Get(ctx, visit.PatientID)
		if err != nil {
			log.Warn().Err(err).Str("visit", visit.VisitNumber).Msg("failed to load patient for visit summary")
		} else if patient.Email != "" {
			s.notifier.SendVisitSummary(ctx, visit, patient)
		}
	}

	return visit, nil
}

// Cancel moves the visit to cancelled, recording the reason verbatim.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (*model.Visit, error) {
	return s.UpdateStatus(ctx, id, model.VisitStatusCancelled, reason, actorID)
}

// Queue returns the ranked waiting queue for a date: visits still
// awaiting consultation ordered by urgency then arrival.
func (s *Service) Queue(ctx context.Context, date time.Time) ([]*model.Visit, error) {
	if date.IsZero() {
		date = s.clock.Today()
	}
	visits, err := s.repo.ListActive(ctx, date, []model.VisitStatus{
		model.VisitStatusRegistered,
		model.VisitStatusWaiting,
	})
	if err != nil {
		return nil, err
	}

	ranked := Rank(visits)
	if s.metrics != nil {
		s.metrics.QueueLength.Set(float64(len(ranked)))
	}
	return ranked, nil
}

// Today returns all of today's visits in arrival order.
func (s *Service) Today(ctx context.Context) ([]*model.Visit, error) {
	today := s.clock.Today()
	return s.repo.ListByDateRange(ctx, today, today)
}

// ForDoctor returns a doctor's visits over a date range, defaulting to
// today when the range is unset.
func (s *Service) ForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Visit, error) {
	if from.IsZero() {
		from = s.clock.Today()
	}
	if to.IsZero() {
		to = from
	}
	return s.repo.ListByDoctor(ctx, doctorID, from, to)
}

// Stats aggregates visit counts and durations over a date range,
// defaulting to today/today.
func (s *Service) Stats(ctx context.Context, from, to time.Time) (*model.VisitStats, error) {
	if from.IsZero() {
		from = s.clock.Today()
	}
	if to.IsZero() {
		to = from
	}
	visits, err := s.repo.ListByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return Aggregate(visits, from, to), nil
}

// ForPatient returns a patient's visit history, newest first.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) emit(ctx context.Context, eventType string, visit *model.Visit, prev model.VisitStatus, actorID uuid.UUID) {
	if s.events == nil {
		return
	}
	payload := model.VisitEventPayload{
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		PatientID:   visit.PatientID,
		Status:      visit.Status,
		PrevStatus:  prev,
		Priority:    visit.Priority,
		Department:  visit.Department,
		ActorID:     actorID,
		OccurredAt:  s.clock.Now(),
	}
	if err := s.events.Emit(ctx, eventType, payload); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("visit", visit.VisitNumber).Msg("failed to emit event")
	}
}

// applyTransition validates the target against the transition table and
// applies the transition's side effects. Consultation start is stamped
// only on first entry to in_progress; a reason is mandatory for
// cancellation and recorded exactly as given.
func applyTransition(visit *model.Visit, target model.VisitStatus, reason string, now time.Time) error {
	if !visit.Status.CanTransition(target) {
		return apperrors.NewInvalidTransition(string(visit.Status), string(target))
	}

	switch target {
	case model.VisitStatusInProgress:
		if visit.ConsultationStartTime == nil {
			start := now
			visit.ConsultationStartTime = &start
		}
	case model.VisitStatusCompleted:
		end := now
		visit.ConsultationEndTime = &end
	case model.VisitStatusCancelled:
		if strings.TrimSpace(reason) == "" {
			return apperrors.NewMissingReason()
		}
		r := reason
		visit.CancellationReason = &r
	}

	visit.Status = target
	return nil
}

func denialReason(err error) string {
	switch {
	case apperrors.IsInvalidTransition(err):
		return "invalid_transition"
	case apperrors.IsMissingReason(err):
		return "missing_reason"
	default:
		return "other"
	}
}
