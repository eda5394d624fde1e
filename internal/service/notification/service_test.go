package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/email"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/internal/service/setting"
	"github.com/clinicore/clinic-api/internal/service/visit"
)

var _ visit.Notifier = (*Service)(nil)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) Today() time.Time {
	return time.Date(c.now.Year(), c.now.Month(), c.now.Day(), 0, 0, 0, 0, time.UTC)
}

type fakeNotificationRepo struct {
	created   []*model.Notification
	updated   []*model.Notification
	createErr error
}

var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)

func (f *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationRepo) Update(_ context.Context, n *model.Notification) error {
	f.updated = append(f.updated, n)
	return nil
}

type fakeEmailService struct {
	messages []*email.Message
	err      error
}

func (f *fakeEmailService) Send(_ context.Context, msg *email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

type published struct {
	channel string
	message interface{}
}

type fakeBroker struct {
	publishes []published
	err       error
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.publishes = append(f.publishes, published{channel: channel, message: message})
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

type fakeFlags struct {
	flags map[string]bool
}

func (f *fakeFlags) BoolFlag(_ context.Context, key string, def bool) bool {
	if v, ok := f.flags[key]; ok {
		return v
	}
	return def
}

type testEnv struct {
	svc    *Service
	repo   *fakeNotificationRepo
	email  *fakeEmailService
	broker *fakeBroker
	flags  *fakeFlags
	clock  *stubClock
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:   &fakeNotificationRepo{},
		email:  &fakeEmailService{},
		broker: &fakeBroker{},
		flags:  &fakeFlags{flags: map[string]bool{}},
		clock:  &stubClock{now: time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)},
	}
	env.svc = NewService(env.repo, env.email, env.broker, env.flags, env.clock)
	return env
}

func emergencyVisit() *model.Visit {
	visit := &model.Visit{
		VisitNumber: "VIS-2025-00007",
		PatientID:   uuid.New(),
		Priority:    model.VisitPriorityEmergency,
		Department:  "emergency",
		CheckInTime: time.Date(2025, 5, 20, 9, 25, 0, 0, time.UTC),
	}
	visit.ID = uuid.New()
	return visit
}

func TestEmergencyCheckInPublishesAlert(t *testing.T) {
	env := newTestEnv()
	visit := emergencyVisit()

	env.svc.NotifyEmergencyCheckIn(context.Background(), visit)

	require.Len(t, env.broker.publishes, 1)
	assert.Equal(t, "notifications", env.broker.publishes[0].channel)

	alert, ok := env.broker.publishes[0].message.(EmergencyAlert)
	require.True(t, ok)
	assert.Equal(t, "emergency_check_in", alert.Type)
	assert.Equal(t, visit.ID, alert.VisitID)
	assert.Equal(t, "VIS-2025-00007", alert.VisitNumber)
	assert.Equal(t, visit.CheckInTime, alert.CheckInTime)

	require.Len(t, env.repo.created, 1)
	row := env.repo.created[0]
	assert.Equal(t, model.NotificationChannelInApp, row.Channel)
	assert.Equal(t, "clinicians", row.Recipient)

	require.Len(t, env.repo.updated, 1)
	assert.Equal(t, model.NotificationStatusSent, env.repo.updated[0].Status)
	require.NotNil(t, env.repo.updated[0].SentAt)
	assert.Equal(t, env.clock.now, *env.repo.updated[0].SentAt)
}

func TestEmergencyCheckInHonorsKillSwitch(t *testing.T) {
	env := newTestEnv()
	env.flags.flags[setting.FlagEmergencyNotifications] = false

	env.svc.NotifyEmergencyCheckIn(context.Background(), emergencyVisit())

	assert.Empty(t, env.broker.publishes)
	assert.Empty(t, env.repo.created)
}

func TestEmergencyCheckInBrokerFailureRecorded(t *testing.T) {
	env := newTestEnv()
	env.broker.err = errors.New("broker down")

	env.svc.NotifyEmergencyCheckIn(context.Background(), emergencyVisit())

	require.Len(t, env.repo.updated, 1)
	row := env.repo.updated[0]
	assert.Equal(t, model.NotificationStatusFailed, row.Status)
	assert.Equal(t, "broker down", row.LastError)
	assert.Equal(t, 1, row.RetryCount)
	assert.Nil(t, row.SentAt)
}

func TestVisitSummaryEmailsPatient(t *testing.T) {
	env := newTestEnv()

	start := time.Date(2025, 5, 20, 9, 25, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	visit := emergencyVisit()
	visit.VisitDate = start
	visit.ConsultationStartTime = &start
	visit.ConsultationEndTime = &end
	patient := &model.Patient{
		FirstName: "Ada",
		LastName:  "Osei",
		Email:     "ada.osei@example.com",
	}

	env.svc.SendVisitSummary(context.Background(), visit, patient)

	require.Len(t, env.email.messages, 1)
	msg := env.email.messages[0]
	assert.Equal(t, "ada.osei@example.com", msg.To)
	assert.Contains(t, msg.Subject, "VIS-2025-00007")
	assert.Contains(t, msg.Body, "Dear Ada Osei,")

	require.Len(t, env.repo.created, 1)
	assert.Equal(t, model.NotificationChannelEmail, env.repo.created[0].Channel)
	assert.Equal(t, "ada.osei@example.com", env.repo.created[0].Recipient)

	require.Len(t, env.repo.updated, 1)
	assert.Equal(t, model.NotificationStatusSent, env.repo.updated[0].Status)
}

func TestVisitSummarySkippedWithoutEmail(t *testing.T) {
	env := newTestEnv()

	env.svc.SendVisitSummary(context.Background(), emergencyVisit(), &model.Patient{FirstName: "Kofi"})

	assert.Empty(t, env.email.messages)
	assert.Empty(t, env.repo.created)
}

func TestVisitSummaryEmailFailureRecorded(t *testing.T) {
	env := newTestEnv()
	env.email.err = errors.New("smtp timeout")

	env.svc.SendVisitSummary(context.Background(), emergencyVisit(), &model.Patient{Email: "ada.osei@example.com"})

	require.Len(t, env.repo.updated, 1)
	assert.Equal(t, model.NotificationStatusFailed, env.repo.updated[0].Status)
	assert.Equal(t, "smtp timeout", env.repo.updated[0].LastError)
}
