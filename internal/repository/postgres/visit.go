package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type visitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) repository.VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			id, visit_number, patient_id, doctor_id, visit_date, visit_type,
			status, priority, department, chief_complaint, notes,
			check_in_time, version, created_by, updated_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`
	now := time.Now()
	visit.CreatedAt = now
	visit.UpdatedAt = now
	visit.Version = 1

	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.VisitNumber,
		visit.PatientID,
		visit.DoctorID,
		visit.VisitDate,
		visit.VisitType,
		visit.Status,
		visit.Priority,
		visit.Department,
		visit.ChiefComplaint,
		visit.Notes,
		visit.CheckInTime,
		visit.Version,
		visit.CreatedBy,
		visit.UpdatedBy,
		visit.CreatedAt,
		visit.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("visit number", err)
		}
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

func (r *visitRepository) Get(ctx context.Context, id uuid.UUID) (*model.Visit, error) {
	query := `SELECT * FROM visits WHERE id = $1 AND is_deleted = false`
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("visit", err)
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return &visit, nil
}

func (r *visitRepository) GetByNumber(ctx context.Context, visitNumber string) (*model.Visit, error) {
	query := `SELECT * FROM visits WHERE visit_number = $1 AND is_deleted = false`
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, query, visitNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("visit", err)
		}
		return nil, fmt.Errorf("failed to get visit by number: %w", err)
	}
	return &visit, nil
}

// Update writes the visit guarded by its version. The version the
// caller loaded must still be current; otherwise a concurrent writer
// won and the caller gets Conflict. The stored version advances by one
// on every successful write.
func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) error {
	query := `
		UPDATE visits SET
			doctor_id = $1,
			visit_type = $2,
			status = $3,
			priority = $4,
			department = $5,
			chief_complaint = $6,
			notes = $7,
			cancellation_reason = $8,
			consultation_start_time = $9,
			consultation_end_time = $10,
			version = version + 1,
			updated_by = $11,
			updated_at = $12
		WHERE id = $13 AND version = $14 AND is_deleted = false
	`
	visit.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		visit.DoctorID,
		visit.VisitType,
		visit.Status,
		visit.Priority,
		visit.Department,
		visit.ChiefComplaint,
		visit.Notes,
		visit.CancellationReason,
		visit.ConsultationStartTime,
		visit.ConsultationEndTime,
		visit.UpdatedBy,
		visit.UpdatedAt,
		visit.ID,
		visit.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update visit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return r.classifyMissedUpdate(ctx, visit.ID)
	}
	visit.Version++
	return nil
}

// classifyMissedUpdate distinguishes a lost version race from a
// missing row after an update matched nothing.
func (r *visitRepository) classifyMissedUpdate(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1 AND is_deleted = false)`, id)
	if err != nil {
		return fmt.Errorf("failed to classify missed update: %w", err)
	}
	if exists {
		return apperrors.NewConflict("visit", nil)
	}
	return apperrors.NewNotFound("visit", nil)
}

func (r *visitRepository) List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error) {
	query := `SELECT * FROM visits WHERE is_deleted = false`
	args := []interface{}{}
	argPos := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argPos)
		args = append(args, filters.PatientID)
		argPos++
	}
	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argPos)
		args = append(args, filters.DoctorID)
		argPos++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.VisitType != "" {
		query += fmt.Sprintf(" AND visit_type = $%d", argPos)
		args = append(args, filters.VisitType)
		argPos++
	}
	if !filters.DateFrom.IsZero() {
		query += fmt.Sprintf(" AND visit_date >= $%d", argPos)
		args = append(args, filters.DateFrom)
		argPos++
	}
	if !filters.DateTo.IsZero() {
		query += fmt.Sprintf(" AND visit_date < $%d", argPos)
		args = append(args, filters.DateTo.AddDate(0, 0, 1))
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY check_in_time DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.Limit(), filters.Offset())

	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) ListActive(ctx context.Context, date time.Time, statuses []model.VisitStatus) ([]*model.Visit, error) {
	query := `
		SELECT * FROM visits
		WHERE is_deleted = false
		AND visit_date >= $1 AND visit_date < $2
		AND status = ANY($3)
		ORDER BY check_in_time ASC
	`
	day := date.Truncate(24 * time.Hour)
	states := make([]string, len(statuses))
	for i, s := range statuses {
		states[i] = string(s)
	}

	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, day, day.AddDate(0, 0, 1), pq.Array(states))
	if err != nil {
		return nil, fmt.Errorf("failed to list active visits: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Visit, error) {
	query := `
		SELECT * FROM visits
		WHERE is_deleted = false
		AND visit_date >= $1 AND visit_date < $2
		ORDER BY check_in_time ASC
	`
	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list visits by date range: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Visit, error) {
	query := `
		SELECT * FROM visits
		WHERE is_deleted = false
		AND doctor_id = $1
		AND visit_date >= $2 AND visit_date < $3
		ORDER BY check_in_time ASC
	`
	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, doctorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list visits by doctor: %w", err)
	}
	return visits, nil
}

func (r *visitRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error) {
	query := `
		SELECT * FROM visits
		WHERE is_deleted = false AND patient_id = $1
		ORDER BY visit_date DESC, check_in_time DESC
	`
	var visits []*model.Visit
	err := r.db.SelectContext(ctx, &visits, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits by patient: %w", err)
	}
	return visits, nil
}
