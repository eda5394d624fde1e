package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type VitalSign struct {
	Base
	VisitID         uuid.UUID `db:"visit_id" json:"visit_id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	TemperatureC    *float64  `db:"temperature_c" json:"temperature_c,omitempty"`
	PulseBPM        *int      `db:"pulse_bpm" json:"pulse_bpm,omitempty"`
	RespiratoryRate *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	SystolicBP      *int      `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP     *int      `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	SpO2            *int      `db:"spo2" json:"spo2,omitempty"`
	HeightCM        *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG        *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	BMI             *float64  `db:"bmi" json:"bmi,omitempty"`
	PainScore       *int      `db:"pain_score" json:"pain_score,omitempty"`
	Notes           string    `db:"notes" json:"notes,omitempty"`
	RecordedAt      time.Time `db:"recorded_at" json:"recorded_at"`
	RecordedBy      uuid.UUID `db:"recorded_by" json:"recorded_by"`
}

// ComputeBMI derives the body mass index from height and weight when
// both are present, rounded to two decimals.
func (v *VitalSign) ComputeBMI() {
	if v.HeightCM == nil || v.WeightKG == nil || *v.HeightCM <= 0 {
		v.BMI = nil
		return
	}
	meters := *v.HeightCM / 100
	bmi := math.Round(*v.WeightKG/(meters*meters)*100) / 100
	v.BMI = &bmi
}

type RecordVitalsRequest struct {
	TemperatureC    *float64 `json:"temperature_c" binding:"omitempty,gte=25,lte=45"`
	PulseBPM        *int     `json:"pulse_bpm" binding:"omitempty,gte=20,lte=300"`
	RespiratoryRate *int     `json:"respiratory_rate" binding:"omitempty,gte=4,lte=80"`
	SystolicBP      *int     `json:"systolic_bp" binding:"omitempty,gte=40,lte=300"`
	DiastolicBP     *int     `json:"diastolic_bp" binding:"omitempty,gte=20,lte=200"`
	SpO2            *int     `json:"spo2" binding:"omitempty,gte=0,lte=100"`
	HeightCM        *float64 `json:"height_cm" binding:"omitempty,gt=0,lte=300"`
	WeightKG        *float64 `json:"weight_kg" binding:"omitempty,gt=0,lte=700"`
	PainScore       *int     `json:"pain_score" binding:"omitempty,gte=0,lte=10"`
	Notes           string   `json:"notes" binding:"max=2000"`
}
