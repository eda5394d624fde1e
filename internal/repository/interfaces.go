package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByMRN(ctx context.Context, mrn string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	// VisitRepository persists visits. Update performs an optimistic
	// version check and reports Conflict when the stored version moved.
	VisitRepository interface {
		Create(ctx context.Context, visit *model.Visit) error
		Get(ctx context.Context, id uuid.UUID) (*model.Visit, error)
		GetByNumber(ctx context.Context, visitNumber string) (*model.Visit, error)
		Update(ctx context.Context, visit *model.Visit) error
		List(ctx context.Context, filters *model.VisitFilters) ([]*model.Visit, error)
		ListActive(ctx context.Context, date time.Time, statuses []model.VisitStatus) ([]*model.Visit, error)
		ListByDateRange(ctx context.Context, from, to time.Time) ([]*model.Visit, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Visit, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Visit, error)
	}

	// CounterRepository is the durable sequence counter store. The
	// increment is a single atomic statement safe under concurrent
	// callers across service instances.
	CounterRepository interface {
		IncrementAndGet(ctx context.Context, class model.SequenceClass, year int) (int64, error)
		Get(ctx context.Context, class model.SequenceClass, year int) (*model.SequenceCounter, error)
	}

	VitalRepository interface {
		Create(ctx context.Context, vital *model.VitalSign) error
		ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.VitalSign, error)
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.VitalSign, error)
	}

	DiagnosisRepository interface {
		Create(ctx context.Context, diagnosis *model.Diagnosis) error
		Get(ctx context.Context, id uuid.UUID) (*model.Diagnosis, error)
		Update(ctx context.Context, diagnosis *model.Diagnosis) error
		Delete(ctx context.Context, id uuid.UUID) error
		ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Diagnosis, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error)
	}

	ClinicalNoteRepository interface {
		Create(ctx context.Context, note *model.ClinicalNote) error
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicalNote, error)
		Update(ctx context.Context, note *model.ClinicalNote) error
		ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.ClinicalNote, error)
	}

	// OrderRepository persists diagnostic orders with the same
	// optimistic version rule as visits.
	OrderRepository interface {
		Create(ctx context.Context, order *model.Order) error
		Get(ctx context.Context, id uuid.UUID) (*model.Order, error)
		Update(ctx context.Context, order *model.Order) error
		List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error)
		ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Order, error)
	}

	SettingRepository interface {
		Get(ctx context.Context, key string) (*model.SystemSetting, error)
		List(ctx context.Context, publicOnly bool) ([]*model.SystemSetting, error)
		Upsert(ctx context.Context, setting *model.SystemSetting) error
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	TokenRepository interface {
		Store(ctx context.Context, token *model.RefreshToken) error
		GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
		Revoke(ctx context.Context, id uuid.UUID) error
		RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
		DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, int64, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		BeginTx(ctx context.Context) (*sql.Tx, error)
		UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		MoveToDeadLetter(ctx context.Context, tx *sql.Tx, event *model.OutboxEvent) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Update(ctx context.Context, notification *model.Notification) error
	}
)
