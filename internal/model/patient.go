package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type Patient struct {
	Base
	MRN                   string    `db:"mrn" json:"mrn"`
	FirstName             string    `db:"first_name" json:"first_name"`
	LastName              string    `db:"last_name" json:"last_name"`
	DateOfBirth           time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender                Gender    `db:"gender" json:"gender"`
	Phone                 string    `db:"phone" json:"phone,omitempty"`
	Email                 string    `db:"email" json:"email,omitempty"`
	Address               string    `db:"address" json:"address,omitempty"`
	BloodGroup            string    `db:"blood_group" json:"blood_group,omitempty"`
	Allergies             string    `db:"allergies" json:"allergies,omitempty"`
	EmergencyContactName  string    `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	IsActive              bool      `db:"is_active" json:"is_active"`
	IsDeleted             bool      `db:"is_deleted" json:"-"`
	CreatedBy             uuid.UUID `db:"created_by" json:"created_by"`
	UpdatedBy             uuid.UUID `db:"updated_by" json:"updated_by"`
}

// FullName returns the display name used in notifications and audit entries.
func (p *Patient) FullName() string {
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

type CreatePatientRequest struct {
	FirstName             string    `json:"first_name" binding:"required,max=100"`
	LastName              string    `json:"last_name" binding:"required,max=100"`
	DateOfBirth           time.Time `json:"date_of_birth" binding:"required"`
	Gender                string    `json:"gender" binding:"required,oneof=male female other"`
	Phone                 string    `json:"phone" binding:"max=20"`
	Email                 string    `json:"email" binding:"omitempty,email"`
	Address               string    `json:"address" binding:"max=500"`
	BloodGroup            string    `json:"blood_group" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies             string    `json:"allergies" binding:"max=2000"`
	EmergencyContactName  string    `json:"emergency_contact_name" binding:"max=200"`
	EmergencyContactPhone string    `json:"emergency_contact_phone" binding:"max=20"`
}

type UpdatePatientRequest struct {
	FirstName             *string    `json:"first_name" binding:"omitempty,max=100"`
	LastName              *string    `json:"last_name" binding:"omitempty,max=100"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Gender                *string    `json:"gender" binding:"omitempty,oneof=male female other"`
	Phone                 *string    `json:"phone" binding:"omitempty,max=20"`
	Email                 *string    `json:"email" binding:"omitempty,email"`
	Address               *string    `json:"address" binding:"omitempty,max=500"`
	BloodGroup            *string    `json:"blood_group" binding:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	Allergies             *string    `json:"allergies" binding:"omitempty,max=2000"`
	EmergencyContactName  *string    `json:"emergency_contact_name" binding:"omitempty,max=200"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone" binding:"omitempty,max=20"`
	IsActive              *bool      `json:"is_active"`
}

type PatientFilters struct {
	SearchTerm string
	ActiveOnly bool
	Pagination
}
