package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/internal/service/sequence"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

// createAttempts bounds retries when a freshly issued medical record
// number loses a uniqueness race at insert time.
const createAttempts = 3

// EventEmitter appends domain events to the transactional outbox.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type Service struct {
	repo      repository.PatientRepository
	generator *sequence.Generator
	clock     clock.Clock
	auditor   *audit.Service
	events    EventEmitter
}

func NewService(
	repo repository.PatientRepository,
	generator *sequence.Generator,
	clk clock.Clock,
	auditor *audit.Service,
	events EventEmitter,
) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		clock:     clk,
		auditor:   auditor,
		events:    events,
	}
}

// Create registers a patient under a newly issued medical record number.
// The number is issued per attempt: when the insert loses a uniqueness
// race the next attempt uses a fresh number.
func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest, actorID uuid.UUID) (*model.Patient, error) {
	var patient *model.Patient
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		mrn, err := s.generator.Next(ctx, model.SequenceClassPatientRecord)
		if err != nil {
			return nil, err
		}

		patient = &model.Patient{
			Base:                  model.Base{ID: uuid.New()},
			MRN:                   mrn,
			FirstName:             req.FirstName,
			LastName:              req.LastName,
			DateOfBirth:           req.DateOfBirth,
			Gender:                model.Gender(req.Gender),
			Phone:                 req.Phone,
			Email:                 req.Email,
			Address:               req.Address,
			BloodGroup:            req.BloodGroup,
			Allergies:             req.Allergies,
			EmergencyContactName:  req.EmergencyContactName,
			EmergencyContactPhone: req.EmergencyContactPhone,
			IsActive:              true,
			CreatedBy:             actorID,
			UpdatedBy:             actorID,
		}

		err = s.repo.Create(ctx, patient)
		if err == nil {
			lastErr = nil
			break
		}
		if apperrors.IsConflict(err) {
			lastErr = err
			continue
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	if lastErr != nil {
		return nil, lastErr
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityPatient, patient.ID, &audit.LogOptions{
		Changes: patient,
	})
	s.emit(ctx, patient, actorID)

	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*model.Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

// Update changes patient demographics. The medical record number is
// immutable and never touched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest, actorID uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = model.Gender(*req.Gender)
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.BloodGroup != nil {
		patient.BloodGroup = *req.BloodGroup
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.EmergencyContactName != nil {
		patient.EmergencyContactName = *req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = *req.EmergencyContactPhone
	}
	if req.IsActive != nil {
		patient.IsActive = *req.IsActive
	}
	patient.UpdatedBy = actorID

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityPatient, patient.ID, &audit.LogOptions{
		Changes: req,
	})
	return patient, nil
}

// Delete soft-deletes the patient; the record stays addressable for
// audit history but disappears from reads.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, model.AuditEntityPatient, id, nil)
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) emit(ctx context.Context, patient *model.Patient, actorID uuid.UUID) {
	if s.events == nil {
		return
	}
	payload := model.PatientEventPayload{
		PatientID:  patient.ID,
		MRN:        patient.MRN,
		ActorID:    actorID,
		OccurredAt: s.clock.Now(),
	}
	if err := s.events.Emit(ctx, model.EventPatientCreated, payload); err != nil {
		log.Error().Err(err).Str("mrn", patient.MRN).Msg("failed to emit event")
	}
}
