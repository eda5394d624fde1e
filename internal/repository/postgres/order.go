package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type orderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, accession_number, visit_id, patient_id,
			order_type, status, priority, modality, body_part, specimen,
			test_panel, site, clinical_indication, notes, ordered_by,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		)
	`
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.Version = 1

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.AccessionNumber,
		order.VisitID,
		order.PatientID,
		order.OrderType,
		order.Status,
		order.Priority,
		order.Modality,
		order.BodyPart,
		order.Specimen,
		order.TestPanel,
		order.Site,
		order.ClinicalIndication,
		order.Notes,
		order.OrderedBy,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("order number", err)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT * FROM orders WHERE id = $1 AND is_deleted = false`
	var order model.Order
	err := r.db.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("order", err)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// Update writes the order guarded by its version, same contract as
// visit updates.
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	query := `
		UPDATE orders SET
			status = $1,
			priority = $2,
			notes = $3,
			cancellation_reason = $4,
			scheduled_at = $5,
			performed_by = $6,
			performed_at = $7,
			reported_by = $8,
			reported_at = $9,
			report_text = $10,
			version = version + 1,
			updated_at = $11
		WHERE id = $12 AND version = $13 AND is_deleted = false
	`
	order.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		order.Status,
		order.Priority,
		order.Notes,
		order.CancellationReason,
		order.ScheduledAt,
		order.PerformedBy,
		order.PerformedAt,
		order.ReportedBy,
		order.ReportedAt,
		order.ReportText,
		order.UpdatedAt,
		order.ID,
		order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		var exists bool
		err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1 AND is_deleted = false)`, order.ID)
		if err != nil {
			return fmt.Errorf("failed to classify missed update: %w", err)
		}
		if exists {
			return apperrors.NewConflict("order", nil)
		}
		return apperrors.NewNotFound("order", nil)
	}
	order.Version++
	return nil
}

func (r *orderRepository) List(ctx context.Context, filters *model.OrderFilters) ([]*model.Order, error) {
	query := `SELECT * FROM orders WHERE is_deleted = false`
	args := []interface{}{}
	argPos := 1

	if filters.VisitID != uuid.Nil {
		query += fmt.Sprintf(" AND visit_id = $%d", argPos)
		args = append(args, filters.VisitID)
		argPos++
	}
	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argPos)
		args = append(args, filters.PatientID)
		argPos++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filters.Status)
		argPos++
	}
	if filters.OrderType != "" {
		query += fmt.Sprintf(" AND order_type = $%d", argPos)
		args = append(args, filters.OrderType)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, filters.Limit(), filters.Offset())

	var orders []*model.Order
	err := r.db.SelectContext(ctx, &orders, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*model.Order, error) {
	query := `SELECT * FROM orders WHERE visit_id = $1 AND is_deleted = false ORDER BY created_at ASC`
	var orders []*model.Order
	err := r.db.SelectContext(ctx, &orders, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by visit: %w", err)
	}
	return orders, nil
}
