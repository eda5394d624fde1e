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

type clinicalNoteRepository struct {
	db *sqlx.DB
}

func NewClinicalNoteRepository(db *sqlx.DB) repository.ClinicalNoteRepository {
	return &clinicalNoteRepository{db: db}
}

func (r *clinicalNoteRepository) Create(ctx context.Context, note *model.ClinicalNote) error {
	query := `
		INSERT INTO clinical_notes (
			id, visit_id, patient_id, author_id, subjective, objective,
			assessment, plan, summary, is_primary, is_signed,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		note.ID,
		note.VisitID,
		note.PatientID,
		note.AuthorID,
		note.Subjective,
		note.Objective,
		note.Assessment,
		note.Plan,
		note.Summary,
		note.IsPrimary,
		note.IsSigned,
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("primary note for visit", err)
		}
		return fmt.Errorf("failed to create clinical note: %w", err)
	}
	return nil
}

func (r *clinicalNoteRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalNote, error) {
	query := `SELECT * FROM clinical_notes WHERE id = $1`
	var note model.ClinicalNote
	err := r.db.GetContext(ctx, &note, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("clinical note", err)
		}
		return nil, fmt.Errorf("failed to get clinical note: %w", err)
	}
	return &note, nil
}

// Update writes content and signature fields. Signing is one way; the
// guard against editing a signed note lives in the service layer.
func (r *clinicalNoteRepository) Update(ctx context.Context, note *model.ClinicalNote) error {
	query := `
		UPDATE clinical_notes SET
			subjective = $1,
			objective = $2,
			assessment = $3,
			plan = $4,
			summary = $5,
			is_signed = $6,
			signed_at = $7,
			signed_by = $8,
			updated_at = $9
		WHERE id = $10
	`
	note.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		note.Subjective,
		note.Objective,
		note.Assessment,
		note.Plan,
		note.Summary,
		note.IsSigned,
		note.SignedAt,
		note.SignedBy,
		note.UpdatedAt,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinical note: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("clinical note", nil)
	}
	return nil
}

func (r *clinicalNoteRepository) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.ClinicalNote, error) {
	query := `SELECT * FROM clinical_notes WHERE visit_id = $1 ORDER BY created_at ASC`
	var notes []*model.ClinicalNote
	err := r.db.SelectContext(ctx, &notes, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinical notes: %w", err)
	}
	return notes, nil
}
