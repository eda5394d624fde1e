package model

import (
	"time"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusRegistered VisitStatus = "registered"
	VisitStatusWaiting    VisitStatus = "waiting"
	VisitStatusInProgress VisitStatus = "in_progress"
	VisitStatusCompleted  VisitStatus = "completed"
	VisitStatusCancelled  VisitStatus = "cancelled"
)

type VisitType string

const (
	VisitTypeConsultation VisitType = "consultation"
	VisitTypeFollowUp     VisitType = "follow_up"
	VisitTypeEmergency    VisitType = "emergency"
	VisitTypeProcedure    VisitType = "procedure"
)

type VisitPriority string

const (
	VisitPriorityNormal    VisitPriority = "normal"
	VisitPriorityUrgent    VisitPriority = "urgent"
	VisitPriorityEmergency VisitPriority = "emergency"
)

// visitTransitions is the full status transition table. Absence means
// the transition is rejected.
var visitTransitions = map[VisitStatus][]VisitStatus{
	VisitStatusRegistered: {VisitStatusWaiting, VisitStatusCancelled},
	VisitStatusWaiting:    {VisitStatusInProgress, VisitStatusCancelled},
	VisitStatusInProgress: {VisitStatusCompleted, VisitStatusCancelled},
	VisitStatusCompleted:  {},
	VisitStatusCancelled:  {},
}

// CanTransition reports whether s may move to target.
func (s VisitStatus) CanTransition(target VisitStatus) bool {
	for _, allowed := range visitTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s VisitStatus) IsTerminal() bool {
	return s == VisitStatusCompleted || s == VisitStatusCancelled
}

// Rank returns the urgency rank for queue ordering, lower is more urgent.
func (p VisitPriority) Rank() int {
	switch p {
	case VisitPriorityEmergency:
		return 1
	case VisitPriorityUrgent:
		return 2
	default:
		return 3
	}
}

type Visit struct {
	Base
	VisitNumber           string        `db:"visit_number" json:"visit_number"`
	PatientID             uuid.UUID     `db:"patient_id" json:"patient_id"`
	DoctorID              *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	VisitDate             time.Time     `db:"visit_date" json:"visit_date"`
	VisitType             VisitType     `db:"visit_type" json:"visit_type"`
	Status                VisitStatus   `db:"status" json:"status"`
	Priority              VisitPriority `db:"priority" json:"priority"`
	Department            string        `db:"department" json:"department,omitempty"`
	ChiefComplaint        string        `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Notes                 string        `db:"notes" json:"notes,omitempty"`
	CancellationReason    *string       `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CheckInTime           time.Time     `db:"check_in_time" json:"check_in_time"`
	ConsultationStartTime *time.Time    `db:"consultation_start_time" json:"consultation_start_time,omitempty"`
	ConsultationEndTime   *time.Time    `db:"consultation_end_time" json:"consultation_end_time,omitempty"`
	Version               int           `db:"version" json:"version"`
	CreatedBy             uuid.UUID     `db:"created_by" json:"created_by"`
	UpdatedBy             uuid.UUID     `db:"updated_by" json:"updated_by"`
	IsDeleted             bool          `db:"is_deleted" json:"-"`
}

type CreateVisitRequest struct {
	PatientID      uuid.UUID  `json:"patient_id" binding:"required"`
	DoctorID       *uuid.UUID `json:"doctor_id"`
	VisitDate      *time.Time `json:"visit_date"`
	VisitType      string     `json:"visit_type" binding:"required,oneof=consultation follow_up emergency procedure"`
	Priority       string     `json:"priority" binding:"omitempty,oneof=normal urgent emergency"`
	Department     string     `json:"department" binding:"max=100"`
	ChiefComplaint string     `json:"chief_complaint" binding:"max=2000"`
	Notes          string     `json:"notes" binding:"max=4000"`
}

type UpdateVisitRequest struct {
	DoctorID       *uuid.UUID `json:"doctor_id"`
	Department     *string    `json:"department" binding:"omitempty,max=100"`
	ChiefComplaint *string    `json:"chief_complaint" binding:"omitempty,max=2000"`
	Notes          *string    `json:"notes" binding:"omitempty,max=4000"`
	Priority       *string    `json:"priority" binding:"omitempty,oneof=normal urgent emergency"`
}

type UpdateVisitStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=registered waiting in_progress completed cancelled"`
	Reason string `json:"reason" binding:"max=1000"`
}

type CancelVisitRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type VisitFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    VisitStatus
	VisitType VisitType
	DateFrom  time.Time
	DateTo    time.Time
	Pagination
}

// VisitStats aggregates visit counts and durations over a date range.
// Average fields are nil when no visit in the range qualifies.
type VisitStats struct {
	DateFrom              time.Time           `json:"date_from"`
	DateTo                time.Time           `json:"date_to"`
	TotalVisits           int                 `json:"total_visits"`
	ByStatus              map[VisitStatus]int `json:"by_status"`
	ByType                map[VisitType]int   `json:"by_type"`
	AverageWaitMinutes    *float64            `json:"average_wait_minutes"`
	AverageConsultMinutes *float64            `json:"average_consultation_minutes"`
}
