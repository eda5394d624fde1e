package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type diagnosisRepository struct {
	db *sqlx.DB
}

func NewDiagnosisRepository(db *sqlx.DB) repository.DiagnosisRepository {
	return &diagnosisRepository{db: db}
}

func (r *diagnosisRepository) Create(ctx context.Context, diagnosis *model.Diagnosis) error {
	query := `
		INSERT INTO diagnoses (
			id, visit_id, patient_id, icd10_code, description,
			diagnosis_type, status, severity, notes, diagnosed_by,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	now := time.Now()
	diagnosis.CreatedAt = now
	diagnosis.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		diagnosis.ID,
		diagnosis.VisitID,
		diagnosis.PatientID,
		diagnosis.ICD10Code,
		diagnosis.Description,
		diagnosis.Type,
		diagnosis.Status,
		diagnosis.Severity,
		diagnosis.Notes,
		diagnosis.DiagnosedBy,
		diagnosis.CreatedAt,
		diagnosis.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis: %w", err)
	}
	return nil
}

func (r *diagnosisRepository) Get(ctx context.Context, id uuid.UUID) (*model.Diagnosis, error) {
	query := `SELECT * FROM diagnoses WHERE id = $1`
	var diagnosis model.Diagnosis
	err := r.db.GetContext(ctx, &diagnosis, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("diagnosis", err)
		}
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}
	return &diagnosis, nil
}

func (r *diagnosisRepository) Update(ctx context.Context, diagnosis *model.Diagnosis) error {
	query := `
		UPDATE diagnoses SET
			icd10_code = $1,
			description = $2,
			diagnosis_type = $3,
			status = $4,
			severity = $5,
			notes = $6,
			updated_at = $7
		WHERE id = $8
	`
	diagnosis.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		diagnosis.ICD10Code,
		diagnosis.Description,
		diagnosis.Type,
		diagnosis.Status,
		diagnosis.Severity,
		diagnosis.Notes,
		diagnosis.UpdatedAt,
		diagnosis.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update diagnosis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("diagnosis", nil)
	}
	return nil
}

func (r *diagnosisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM diagnoses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("diagnosis", nil)
	}
	return nil
}

func (r *diagnosisRepository) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Diagnosis, error) {
	query := `SELECT * FROM diagnoses WHERE visit_id = $1 ORDER BY created_at ASC`
	var diagnoses []*model.Diagnosis
	err := r.db.SelectContext(ctx, &diagnoses, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses by visit: %w", err)
	}
	return diagnoses, nil
}

func (r *diagnosisRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	query := `SELECT * FROM diagnoses WHERE patient_id = $1 ORDER BY created_at DESC`
	var diagnoses []*model.Diagnosis
	err := r.db.SelectContext(ctx, &diagnoses, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses by patient: %w", err)
	}
	return diagnoses, nil
}
