package model

import (
	"time"

	"github.com/google/uuid"
)

type ClinicalNote struct {
	Base
	VisitID    uuid.UUID  `db:"visit_id" json:"visit_id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	AuthorID   uuid.UUID  `db:"author_id" json:"author_id"`
	Subjective string     `db:"subjective" json:"subjective,omitempty"`
	Objective  string     `db:"objective" json:"objective,omitempty"`
	Assessment string     `db:"assessment" json:"assessment,omitempty"`
	Plan       string     `db:"plan" json:"plan,omitempty"`
	Summary    string     `db:"summary" json:"summary,omitempty"`
	IsPrimary  bool       `db:"is_primary" json:"is_primary"`
	IsSigned   bool       `db:"is_signed" json:"is_signed"`
	SignedAt   *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	SignedBy   *uuid.UUID `db:"signed_by" json:"signed_by,omitempty"`
}

type CreateClinicalNoteRequest struct {
	Subjective string `json:"subjective" binding:"max=8000"`
	Objective  string `json:"objective" binding:"max=8000"`
	Assessment string `json:"assessment" binding:"max=8000"`
	Plan       string `json:"plan" binding:"max=8000"`
	Summary    string `json:"summary" binding:"max=4000"`
	IsPrimary  bool   `json:"is_primary"`
}

type UpdateClinicalNoteRequest struct {
	Subjective *string `json:"subjective" binding:"omitempty,max=8000"`
	Objective  *string `json:"objective" binding:"omitempty,max=8000"`
	Assessment *string `json:"assessment" binding:"omitempty,max=8000"`
	Plan       *string `json:"plan" binding:"omitempty,max=8000"`
	Summary    *string `json:"summary" binding:"omitempty,max=4000"`
}
