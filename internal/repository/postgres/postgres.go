package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/repository"
)

// Repositories bundles every repository over one database handle.
type Repositories struct {
	Patient      repository.PatientRepository
	Visit        repository.VisitRepository
	Counter      repository.CounterRepository
	Vital        repository.VitalRepository
	Diagnosis    repository.DiagnosisRepository
	ClinicalNote repository.ClinicalNoteRepository
	Order        repository.OrderRepository
	Setting      repository.SettingRepository
	User         repository.UserRepository
	Token        repository.TokenRepository
	Audit        repository.AuditRepository
	Outbox       repository.OutboxRepository
	Notification repository.NotificationRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Patient:      NewPatientRepository(db),
		Visit:        NewVisitRepository(db),
		Counter:      NewCounterRepository(db),
		Vital:        NewVitalRepository(db),
		Diagnosis:    NewDiagnosisRepository(db),
		ClinicalNote: NewClinicalNoteRepository(db),
		Order:        NewOrderRepository(db),
		Setting:      NewSettingRepository(db),
		User:         NewUserRepository(base),
		Token:        NewTokenRepository(base),
		Audit:        NewAuditRepository(base),
		Outbox:       NewOutboxRepository(base),
		Notification: NewNotificationRepository(base),
	}
}
