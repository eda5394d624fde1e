package medical

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/audit"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

// Service covers the clinical documentation attached to a visit: vital
// signs, diagnoses, and SOAP notes.
type Service struct {
	vitals    repository.VitalRepository
	diagnoses repository.DiagnosisRepository
	notes     repository.ClinicalNoteRepository
	visitRepo repository.VisitRepository
	clock     clock.Clock
	auditor   *audit.Service
}

func NewService(
	vitals repository.VitalRepository,
	diagnoses repository.DiagnosisRepository,
	notes repository.ClinicalNoteRepository,
	visitRepo repository.VisitRepository,
	clk clock.Clock,
	auditor *audit.Service,
) *Service {
	return &Service{
		vitals:    vitals,
		diagnoses: diagnoses,
		notes:     notes,
		visitRepo: visitRepo,
		clock:     clk,
		auditor:   auditor,
	}
}

// RecordVitals stores a vitals reading for a visit. BMI is derived from
// height and weight when both are present.
func (s *Service) RecordVitals(ctx context.Context, visitID uuid.UUID, req *model.RecordVitalsRequest, actorID uuid.UUID) (*model.VitalSign, error) {
	visit, err := s.visitRepo.Get(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}

	vital := &model.VitalSign{
		Base:            model.Base{ID: uuid.New()},
		VisitID:         visit.ID,
		PatientID:       visit.PatientID,
		TemperatureC:    req.TemperatureC,
		PulseBPM:        req.PulseBPM,
		RespiratoryRate: req.RespiratoryRate,
		SystolicBP:      req.SystolicBP,
		DiastolicBP:     req.DiastolicBP,
		SpO2:            req.SpO2,
		HeightCM:        req.HeightCM,
		WeightKG:        req.WeightKG,
		PainScore:       req.PainScore,
		Notes:           req.Notes,
		RecordedAt:      s.clock.Now(),
		RecordedBy:      actorID,
	}
	vital.ComputeBMI()

	if err := s.vitals.Create(ctx, vital); err != nil {
		return nil, fmt.Errorf("failed to record vitals: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityVitalSign, vital.ID, &audit.LogOptions{
		Changes: vital,
	})
	return vital, nil
}

func (s *Service) ListVitals(ctx context.Context, visitID uuid.UUID) ([]*model.VitalSign, error) {
	return s.vitals.ListByVisit(ctx, visitID)
}

// LatestVitals returns the most recent reading across all of a
// patient's visits.
func (s *Service) LatestVitals(ctx context.Context, patientID uuid.UUID) (*model.VitalSign, error) {
	return s.vitals.LatestForPatient(ctx, patientID)
}

// AddDiagnosis records a diagnosis against a visit, defaulting to
// provisional until confirmed.
func (s *Service) AddDiagnosis(ctx context.Context, visitID uuid.UUID, req *model.CreateDiagnosisRequest, actorID uuid.UUID) (*model.Diagnosis, error) {
	visit, err := s.visitRepo.Get(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}

	status := model.DiagnosisStatusProvisional
	if req.Status != "" {
		status = model.DiagnosisStatus(req.Status)
	}

	diagnosis := &model.Diagnosis{
		Base:        model.Base{ID: uuid.New()},
		VisitID:     visit.ID,
		PatientID:   visit.PatientID,
		ICD10Code:   req.ICD10Code,
		Description: req.Description,
		Type:        model.DiagnosisType(req.Type),
		Status:      status,
		Severity:    req.Severity,
		Notes:       req.Notes,
		DiagnosedBy: actorID,
	}

	if err := s.diagnoses.Create(ctx, diagnosis); err != nil {
		return nil, fmt.Errorf("failed to add diagnosis: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityDiagnosis, diagnosis.ID, &audit.LogOptions{
		Changes: diagnosis,
	})
	return diagnosis, nil
}

func (s *Service) UpdateDiagnosis(ctx context.Context, id uuid.UUID, req *model.UpdateDiagnosisRequest, actorID uuid.UUID) (*model.Diagnosis, error) {
	diagnosis, err := s.diagnoses.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ICD10Code != nil {
		diagnosis.ICD10Code = *req.ICD10Code
	}
	if req.Description != nil {
		diagnosis.Description = *req.Description
	}
	if req.Type != nil {
		diagnosis.Type = model.DiagnosisType(*req.Type)
	}
	if req.Status != nil {
		diagnosis.Status = model.DiagnosisStatus(*req.Status)
	}
	if req.Severity != nil {
		diagnosis.Severity = *req.Severity
	}
	if req.Notes != nil {
		diagnosis.Notes = *req.Notes
	}

	if err := s.diagnoses.Update(ctx, diagnosis); err != nil {
		return nil, fmt.Errorf("failed to update diagnosis: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityDiagnosis, diagnosis.ID, &audit.LogOptions{
		Changes: req,
	})
	return diagnosis, nil
}

func (s *Service) DeleteDiagnosis(ctx context.Context, id uuid.UUID, actorID uuid.UUID) error {
	if _, err := s.diagnoses.Get(ctx, id); err != nil {
		return err
	}
	if err := s.diagnoses.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionDelete, model.AuditEntityDiagnosis, id, nil)
	return nil
}

func (s *Service) ListDiagnoses(ctx context.Context, visitID uuid.UUID) ([]*model.Diagnosis, error) {
	return s.diagnoses.ListByVisit(ctx, visitID)
}

func (s *Service) ListPatientDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	return s.diagnoses.ListByPatient(ctx, patientID)
}

// CreateNote opens a SOAP note on a visit with the acting user as
// author.
func (s *Service) CreateNote(ctx context.Context, visitID uuid.UUID, req *model.CreateClinicalNoteRequest, actorID uuid.UUID) (*model.ClinicalNote, error) {
	visit, err := s.visitRepo.Get(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visit: %w", err)
	}

	note := &model.ClinicalNote{
		Base:       model.Base{ID: uuid.New()},
		VisitID:    visit.ID,
		PatientID:  visit.PatientID,
		AuthorID:   actorID,
		Subjective: req.Subjective,
		Objective:  req.Objective,
		Assessment: req.Assessment,
		Plan:       req.Plan,
		Summary:    req.Summary,
		IsPrimary:  req.IsPrimary,
	}

	if err := s.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create clinical note: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionCreate, model.AuditEntityClinicalNote, note.ID, &audit.LogOptions{
		Changes: note,
	})
	return note, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*model.ClinicalNote, error) {
	return s.notes.Get(ctx, id)
}

// UpdateNote edits an unsigned note. Signed notes are locked.
func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, req *model.UpdateClinicalNoteRequest, actorID uuid.UUID) (*model.ClinicalNote, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.IsSigned {
		return nil, apperrors.NewBadRequest("clinical note is signed and can no longer be edited", nil)
	}

	if req.Subjective != nil {
		note.Subjective = *req.Subjective
	}
	if req.Objective != nil {
		note.Objective = *req.Objective
	}
	if req.Assessment != nil {
		note.Assessment = *req.Assessment
	}
	if req.Plan != nil {
		note.Plan = *req.Plan
	}
	if req.Summary != nil {
		note.Summary = *req.Summary
	}

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to update clinical note: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionUpdate, model.AuditEntityClinicalNote, note.ID, &audit.LogOptions{
		Changes: req,
	})
	return note, nil
}

// SignNote locks the note. Signing is one-way and one-time.
func (s *Service) SignNote(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*model.ClinicalNote, error) {
	note, err := s.notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.IsSigned {
		return nil, apperrors.NewBadRequest("clinical note is already signed", nil)
	}

	now := s.clock.Now()
	signer := actorID
	note.IsSigned = true
	note.SignedAt = &now
	note.SignedBy = &signer

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to sign clinical note: %w", err)
	}

	s.auditor.Log(ctx, actorID, model.AuditActionSign, model.AuditEntityClinicalNote, note.ID, nil)
	return note, nil
}

func (s *Service) ListNotes(ctx context.Context, visitID uuid.UUID) ([]*model.ClinicalNote, error) {
	return s.notes.ListByVisit(ctx, visitID)
}
