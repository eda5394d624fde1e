package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/email"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/setting"
	"github.com/clinicore/clinic-api/pkg/clock"
	"github.com/clinicore/clinic-api/pkg/messaging"
)

const (
	// brokerChannel carries in-app alerts consumed by clinician front ends.
	brokerChannel = "notifications"

	recipientClinicians = "clinicians"
)

// EmergencyAlert is published to the broker when an emergency patient
// checks in.
type EmergencyAlert struct {
	Type        string    `json:"type"`
	VisitID     uuid.UUID `json:"visit_id"`
	VisitNumber string    `json:"visit_number"`
	PatientID   uuid.UUID `json:"patient_id"`
	Department  string    `json:"department,omitempty"`
	CheckInTime time.Time `json:"check_in_time"`
}

// FlagSource resolves runtime feature flags.
type FlagSource interface {
	BoolFlag(ctx context.Context, key string, def bool) bool
}

// Service delivers operational notifications and records every attempt.
// Delivery failures are logged, never propagated, so a slow SMTP relay
// or broker outage cannot fail the clinical operation that triggered it.
type Service struct {
	repo   repository.NotificationRepository
	email  email.Service
	broker messaging.Broker
	flags  FlagSource
	clock  clock.Clock
}

// NewService builds the notification service. flags may be nil, in
// which case emergency alerts are always delivered.
func NewService(
	repo repository.NotificationRepository,
	emailSvc email.Service,
	broker messaging.Broker,
	flags FlagSource,
	clk clock.Clock,
) *Service {
	return &Service{
		repo:   repo,
		email:  emailSvc,
		broker: broker,
		flags:  flags,
		clock:  clk,
	}
}

// NotifyEmergencyCheckIn broadcasts an in-app alert to clinicians when
// an emergency patient checks in. Gated by the emergency notifications
// feature flag.
func (s *Service) NotifyEmergencyCheckIn(ctx context.Context, visit *model.Visit) {
	if s.flags != nil && !s.flags.BoolFlag(ctx, setting.FlagEmergencyNotifications, true) {
		return
	}

	notification := s.newNotification(model.NotificationChannelInApp, recipientClinicians,
		"Emergency check-in",
		fmt.Sprintf("Emergency patient checked in, visit %s", visit.VisitNumber))
	if !s.store(ctx, notification) {
		return
	}

	alert := EmergencyAlert{
		Type:        "emergency_check_in",
		VisitID:     visit.ID,
		VisitNumber: visit.VisitNumber,
		PatientID:   visit.PatientID,
		Department:  visit.Department,
		CheckInTime: visit.CheckInTime,
	}
	s.finish(ctx, notification, s.broker.Publish(ctx, brokerChannel, alert))
}

// SendVisitSummary mails the patient a summary of their completed
// visit. Skipped when the patient has no email address on file.
func (s *Service) SendVisitSummary(ctx context.Context, visit *model.Visit, patient *model.Patient) {
	if patient.Email == "" {
		return
	}

	subject, body := email.FormatVisitSummary(visit, patient)

	notification := s.newNotification(model.NotificationChannelEmail, patient.Email, subject, body)
	if !s.store(ctx, notification) {
		return
	}

	s.finish(ctx, notification, s.email.Send(ctx, &email.Message{
		To:      patient.Email,
		Subject: subject,
		Body:    body,
	}))
}

func (s *Service) newNotification(channel model.NotificationChannel, recipient, subject, content string) *model.Notification {
	now := s.clock.Now()
	return &model.Notification{
		ID:        uuid.New(),
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Content:   content,
		Status:    model.NotificationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) store(ctx context.Context, notification *model.Notification) bool {
	if err := s.repo.Create(ctx, notification); err != nil {
		log.Error().Err(err).
			Str("channel", string(notification.Channel)).
			Msg("failed to record notification")
		return false
	}
	return true
}

// finish records the delivery outcome on the notification row.
func (s *Service) finish(ctx context.Context, notification *model.Notification, deliveryErr error) {
	now := s.clock.Now()
	if deliveryErr != nil {
		notification.Status = model.NotificationStatusFailed
		notification.LastError = deliveryErr.Error()
		notification.RetryCount++
		log.Error().Err(deliveryErr).
			Str("channel", string(notification.Channel)).
			Str("recipient", notification.Recipient).
			Msg("notification delivery failed")
	} else {
		notification.Status = model.NotificationStatusSent
		notification.SentAt = &now
	}
	notification.UpdatedAt = now

	if err := s.repo.Update(ctx, notification); err != nil {
		log.Error().Err(err).Msg("failed to update notification status")
	}
}
