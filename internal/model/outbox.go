package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Domain event types appended to the outbox.
const (
	EventVisitRegistered    = "visit.registered"
	EventVisitStatusChanged = "visit.status_changed"
	EventVisitCompleted     = "visit.completed"
	EventOrderStatusChanged = "order.status_changed"
	EventPatientCreated     = "patient.created"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// NewOutboxEvent builds a pending event with a marshalled payload.
func NewOutboxEvent(eventType string, payload interface{}) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    OutboxStatusPending,
	}, nil
}

// VisitEventPayload is the payload for visit lifecycle events.
type VisitEventPayload struct {
	VisitID     uuid.UUID     `json:"visit_id"`
	VisitNumber string        `json:"visit_number"`
	PatientID   uuid.UUID     `json:"patient_id"`
	Status      VisitStatus   `json:"status"`
	PrevStatus  VisitStatus   `json:"previous_status,omitempty"`
	Priority    VisitPriority `json:"priority"`
	Department  string        `json:"department,omitempty"`
	ActorID     uuid.UUID     `json:"actor_id"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// OrderEventPayload is the payload for order lifecycle events.
type OrderEventPayload struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	VisitID     uuid.UUID   `json:"visit_id"`
	Status      OrderStatus `json:"status"`
	PrevStatus  OrderStatus `json:"previous_status,omitempty"`
	ActorID     uuid.UUID   `json:"actor_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// PatientEventPayload is the payload for patient events.
type PatientEventPayload struct {
	PatientID  uuid.UUID `json:"patient_id"`
	MRN        string    `json:"mrn"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
