package model

import (
	"time"

	"github.com/google/uuid"
)

type OrderType string

const (
	OrderTypeImaging   OrderType = "imaging"
	OrderTypeLab       OrderType = "lab"
	OrderTypeProcedure OrderType = "procedure"
)

type OrderStatus string

const (
	OrderStatusOrdered    OrderStatus = "ordered"
	OrderStatusScheduled  OrderStatus = "scheduled"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusReported   OrderStatus = "reported"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusOrdered:    {OrderStatusScheduled, OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusScheduled:  {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {OrderStatusReported, OrderStatusCancelled},
	OrderStatusReported:   {},
	OrderStatusCancelled:  {},
}

// CanTransition reports whether s may move to target.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusReported || s == OrderStatusCancelled
}

type Order struct {
	Base
	OrderNumber        string      `db:"order_number" json:"order_number"`
	AccessionNumber    string      `db:"accession_number" json:"accession_number"`
	VisitID            uuid.UUID   `db:"visit_id" json:"visit_id"`
	PatientID          uuid.UUID   `db:"patient_id" json:"patient_id"`
	OrderType          OrderType   `db:"order_type" json:"order_type"`
	Status             OrderStatus `db:"status" json:"status"`
	Priority           string      `db:"priority" json:"priority,omitempty"`
	Modality           string      `db:"modality" json:"modality,omitempty"`
	BodyPart           string      `db:"body_part" json:"body_part,omitempty"`
	Specimen           string      `db:"specimen" json:"specimen,omitempty"`
	TestPanel          string      `db:"test_panel" json:"test_panel,omitempty"`
	Site               string      `db:"site" json:"site,omitempty"`
	ClinicalIndication string      `db:"clinical_indication" json:"clinical_indication,omitempty"`
	Notes              string      `db:"notes" json:"notes,omitempty"`
	CancellationReason *string     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	OrderedBy          uuid.UUID   `db:"ordered_by" json:"ordered_by"`
	ScheduledAt        *time.Time  `db:"scheduled_at" json:"scheduled_at,omitempty"`
	PerformedBy        *uuid.UUID  `db:"performed_by" json:"performed_by,omitempty"`
	PerformedAt        *time.Time  `db:"performed_at" json:"performed_at,omitempty"`
	ReportedBy         *uuid.UUID  `db:"reported_by" json:"reported_by,omitempty"`
	ReportedAt         *time.Time  `db:"reported_at" json:"reported_at,omitempty"`
	ReportText         string      `db:"report_text" json:"report_text,omitempty"`
	Version            int         `db:"version" json:"version"`
	IsDeleted          bool        `db:"is_deleted" json:"-"`
}

type CreateOrderRequest struct {
	VisitID            uuid.UUID `json:"visit_id" binding:"required"`
	OrderType          string    `json:"order_type" binding:"required,oneof=imaging lab procedure"`
	Priority           string    `json:"priority" binding:"omitempty,oneof=routine urgent stat"`
	Modality           string    `json:"modality" binding:"max=50"`
	BodyPart           string    `json:"body_part" binding:"max=100"`
	Specimen           string    `json:"specimen" binding:"max=100"`
	TestPanel          string    `json:"test_panel" binding:"max=200"`
	Site               string    `json:"site" binding:"max=100"`
	ClinicalIndication string    `json:"clinical_indication" binding:"max=2000"`
	Notes              string    `json:"notes" binding:"max=4000"`
}

type UpdateOrderStatusRequest struct {
	Status      string     `json:"status" binding:"required,oneof=ordered scheduled in_progress completed reported cancelled"`
	Reason      string     `json:"reason" binding:"max=1000"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type AttachReportRequest struct {
	ReportText string `json:"report_text" binding:"required,max=16000"`
}

type OrderFilters struct {
	VisitID   uuid.UUID
	PatientID uuid.UUID
	Status    OrderStatus
	OrderType OrderType
	Pagination
}
