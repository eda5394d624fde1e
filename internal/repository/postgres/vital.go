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

type vitalRepository struct {
	db *sqlx.DB
}

func NewVitalRepository(db *sqlx.DB) repository.VitalRepository {
	return &vitalRepository{db: db}
}

func (r *vitalRepository) Create(ctx context.Context, vital *model.VitalSign) error {
	query := `
		INSERT INTO vital_signs (
			id, visit_id, patient_id, temperature_c, pulse_bpm,
			respiratory_rate, systolic_bp, diastolic_bp, spo2,
			height_cm, weight_kg, bmi, pain_score, notes,
			recorded_at, recorded_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
	`
	now := time.Now()
	vital.CreatedAt = now
	vital.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		vital.ID,
		vital.VisitID,
		vital.PatientID,
		vital.TemperatureC,
		vital.PulseBPM,
		vital.RespiratoryRate,
		vital.SystolicBP,
		vital.DiastolicBP,
		vital.SpO2,
		vital.HeightCM,
		vital.WeightKG,
		vital.BMI,
		vital.PainScore,
		vital.Notes,
		vital.RecordedAt,
		vital.RecordedBy,
		vital.CreatedAt,
		vital.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vital signs: %w", err)
	}
	return nil
}

func (r *vitalRepository) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.VitalSign, error) {
	query := `SELECT * FROM vital_signs WHERE visit_id = $1 ORDER BY recorded_at ASC`
	var vitals []*model.VitalSign
	err := r.db.SelectContext(ctx, &vitals, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vital signs: %w", err)
	}
	return vitals, nil
}

func (r *vitalRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.VitalSign, error) {
	query := `
		SELECT * FROM vital_signs
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	var vital model.VitalSign
	err := r.db.GetContext(ctx, &vital, query, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("vital signs", err)
		}
		return nil, fmt.Errorf("failed to get latest vital signs: %w", err)
	}
	return &vital, nil
}
