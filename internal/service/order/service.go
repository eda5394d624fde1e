package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/internal/service/sequence"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

// createAttempts bounds retries when a freshly issued order number loses
// a uniqueness race at insert time.
const createAttempts = 3

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	repo      repository.OrderRepository
	visitRepo repository.VisitRepository
	generator *sequence.Generator
	clock     clock.Clock
	auditor   *audit.Service
	events    EventEmitter
}

func NewService(
	repo repository.OrderRepository,
	visitRepo repository.VisitRepository,
	generator *sequence.Generator,
	clk clock.Clock,
	auditor *audit.Service,
	events EventEmitter,
) *Service {
	return &Service{
		repo:      repo,
		visitRepo: visitRepo,
		generator: generator,
		clock:     clk,
		auditor:   auditor,
		events:    events,
	}
}

// Create places an order against an active visit. Every order gets an
// order number; imaging and lab orders additionally get an accession
// number for the performing department. Numbers are issued per attempt
// so a lost uniqueness race never reuses the colliding number.
func (s *Service) Create(ctx context.Context, req *model.CreateOrderRequest, actorID uuid.UUID) (*model.Order, error) {
	visit, err := s.visitRepo.Get(ctx, req.VisitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}
	if visit.Status.IsTerminal() {
		return nil, apperrors.NewImmutableState(string(visit.Status))
	}

	orderType := model.OrderType(req.OrderType)
	priority := req.Priority
	if priority == "" {
		priority = "routine"
	}

	var order *model.Order
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		number, err := s.generator.Next(ctx, model.SequenceClassOrder)
		if err != nil {
			return nil, err
		}
		var accession string
		if orderType == model.OrderTypeImaging || orderType == model.OrderTypeLab {
			accession, err = s.generator.Next(ctx, model.SequenceClassAccession)
			if err != nil {
				return nil, err
			}
		}

		order = &model.Order{
			Base:               model.Base{ID: uuid.New()},
			OrderNumber:        number,
			AccessionNumber:    accession,
			VisitID:            visit.ID,
			PatientID:          visit.PatientID,
			OrderType:          orderType,
			Status:             model.OrderStatusOrdered,
			Priority:           priority,
			Modality:           req.Modality,
			BodyPart:           req.BodyPart,
			Specimen:           req.Specimen,
			TestPanel:          req.TestPanel,
			Site:               req.Site,
			ClinicalIndication: req.ClinicalIndication,
			Notes:              req.Notes,
			OrderedBy:          actorID,
		}

		err = s.repo.Create(ctx, order)
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

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityOrder, order.ID, &audit.LogOptions{
		Changes: order,
	})

	return order, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Order, error) {
	return s.repo.ListByVisit(ctx, visitID)
}

// UpdateStatus applies one order workflow transition. The losing side of
// a concurrent transition gets Conflict from the storage layer.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateOrderStatusRequest, actorID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := order.Status
	target := model.OrderStatus(req.Status)
	if err := s.applyTransition(order, target, req, actorID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionStatusChange, model.AuditEntityOrder, order.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"from":   prev,
			"to":     target,
			"reason": req.Reason,
		},
	})
	s.emit(ctx, order, prev, actorID)

	return order, nil
}

// AttachReport moves a completed order to reported with the report text.
func (s *Service) AttachReport(ctx context.Context, id uuid.UUID, req *model.AttachReportRequest, actorID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := order.Status
	if !order.Status.CanTransition(model.OrderStatusReported) {
		return nil, apperrors.NewInvalidTransition(string(order.Status), string(model.OrderStatusReported))
	}
	now := s.clock.Now()
	order.Status = model.OrderStatusReported
	order.ReportText = req.ReportText
	order.ReportedAt = &now
	reportedBy := actorID
	order.ReportedBy = &reportedBy

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, err
	}

	s.auditor.Log(ctx, actorID, model.AuditActionStatusChange, model.AuditEntityOrder, order.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"from": prev,
			"to":   model.OrderStatusReported,
		},
	})
	s.emit(ctx, order, prev, actorID)

	return order, nil
}

// Cancel moves the order to cancelled, recording the reason verbatim.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actorID uuid.UUID) (*model.Order, error) {
	return s.UpdateStatus(ctx, id, &model.UpdateOrderStatusRequest{
		Status: string(model.OrderStatusCancelled),
		Reason: reason,
	}, actorID)
}

func (s *Service) applyTransition(order *model.Order, target model.OrderStatus, req *model.UpdateOrderStatusRequest, actorID uuid.UUID) error {
	if !order.Status.CanTransition(target) {
		return apperrors.NewInvalidTransition(string(order.Status), string(target))
	}

	now := s.clock.Now()
	switch target {
	case model.OrderStatusScheduled:
		if req.ScheduledAt != nil {
			order.ScheduledAt = req.ScheduledAt
		} else {
			order.ScheduledAt = &now
		}
	case model.OrderStatusInProgress:
		if order.PerformedBy == nil {
			performer := actorID
			order.PerformedBy = &performer
		}
	case model.OrderStatusCompleted:
		order.PerformedAt = &now
	case model.OrderStatusReported:
		order.ReportedAt = &now
		reporter := actorID
		order.ReportedBy = &reporter
	case model.OrderStatusCancelled:
		if strings.TrimSpace(req.Reason) == "" {
			return apperrors.NewMissingReason()
		}
		reason := req.Reason
		order.CancellationReason = &reason
	}

	order.Status = target
	return nil
}

func (s *Service) emit(ctx context.Context, order *model.Order, prev model.OrderStatus, actorID uuid.UUID) {
	if s.events == nil {
		return
	}
	payload := model.OrderEventPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		VisitID:     order.VisitID,
		Status:      order.Status,
		PrevStatus:  prev,
		ActorID:     actorID,
		OccurredAt:  s.clock.Now(),
	}
	if err := s.events.Emit(ctx, model.EventOrderStatusChanged, payload); err != nil {
		log.Error().Err(err).Str("event_type", model.EventOrderStatusChanged).Str("order", order.OrderNumber).Msg("failed to emit event")
	}
}
