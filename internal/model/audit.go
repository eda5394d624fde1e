package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes,omitempty" db:"changes"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string          `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionDelete       = "delete"
	AuditActionStatusChange = "status_change"
	AuditActionSign         = "sign"
	AuditActionLogin        = "login"
	AuditActionTokenRefresh = "token_refresh"

	// Entity types
	AuditEntityPatient      = "patient"
	AuditEntityVisit        = "visit"
	AuditEntityVitalSign    = "vital_sign"
	AuditEntityDiagnosis    = "diagnosis"
	AuditEntityClinicalNote = "clinical_note"
	AuditEntityOrder        = "order"
	AuditEntitySetting      = "system_setting"
	AuditEntityUser         = "user"
)

type AuditLogFilters struct {
	UserID     uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Action     string
	DateFrom   time.Time
	DateTo     time.Time
	Pagination
}
