package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "in_app"
	NotificationChannelEmail NotificationChannel = "email"
)

type Notification struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	Channel    NotificationChannel `db:"channel" json:"channel"`
	Recipient  string              `db:"recipient" json:"recipient"`
	Subject    string              `db:"subject" json:"subject"`
	Content    string              `db:"content" json:"content"`
	Status     NotificationStatus  `db:"status" json:"status"`
	RetryCount int                 `db:"retry_count" json:"retry_count"`
	LastError  string              `db:"last_error" json:"last_error,omitempty"`
	SentAt     *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}
