package model

import (
	"github.com/google/uuid"
)

type DiagnosisType string

const (
	DiagnosisTypePrimary   DiagnosisType = "primary"
	DiagnosisTypeSecondary DiagnosisType = "secondary"
)

type DiagnosisStatus string

const (
	DiagnosisStatusProvisional DiagnosisStatus = "provisional"
	DiagnosisStatusConfirmed   DiagnosisStatus = "confirmed"
)

type Diagnosis struct {
	Base
	VisitID     uuid.UUID       `db:"visit_id" json:"visit_id"`
	PatientID   uuid.UUID       `db:"patient_id" json:"patient_id"`
	ICD10Code   string          `db:"icd10_code" json:"icd10_code,omitempty"`
	Description string          `db:"description" json:"description"`
	Type        DiagnosisType   `db:"diagnosis_type" json:"diagnosis_type"`
	Status      DiagnosisStatus `db:"status" json:"status"`
	Severity    string          `db:"severity" json:"severity,omitempty"`
	Notes       string          `db:"notes" json:"notes,omitempty"`
	DiagnosedBy uuid.UUID       `db:"diagnosed_by" json:"diagnosed_by"`
}

type CreateDiagnosisRequest struct {
	ICD10Code   string `json:"icd10_code" binding:"omitempty,icd10"`
	Description string `json:"description" binding:"required,max=1000"`
	Type        string `json:"diagnosis_type" binding:"required,oneof=primary secondary"`
	Status      string `json:"status" binding:"omitempty,oneof=provisional confirmed"`
	Severity    string `json:"severity" binding:"omitempty,oneof=mild moderate severe"`
	Notes       string `json:"notes" binding:"max=2000"`
}

type UpdateDiagnosisRequest struct {
	ICD10Code   *string `json:"icd10_code" binding:"omitempty,icd10"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Type        *string `json:"diagnosis_type" binding:"omitempty,oneof=primary secondary"`
	Status      *string `json:"status" binding:"omitempty,oneof=provisional confirmed"`
	Severity    *string `json:"severity" binding:"omitempty,oneof=mild moderate severe"`
	Notes       *string `json:"notes" binding:"omitempty,max=2000"`
}
