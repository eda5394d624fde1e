package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type counterRepository struct {
	db *sqlx.DB
}

func NewCounterRepository(db *sqlx.DB) repository.CounterRepository {
	return &counterRepository{db: db}
}

// IncrementAndGet bumps the per-(class, year) counter and returns the
// new value in one atomic statement. The first call for a class/year
// creates the row at 1, so each year restarts the sequence. Concurrent
// callers serialize on the row; none can observe the same value twice.
func (r *counterRepository) IncrementAndGet(ctx context.Context, class model.SequenceClass, year int) (int64, error) {
	query := `
		INSERT INTO sequence_counters (class, year, last_value, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (class, year)
		DO UPDATE SET last_value = sequence_counters.last_value + 1, updated_at = NOW()
		RETURNING last_value
	`
	var value int64
	err := r.db.QueryRowContext(ctx, query, class, year).Scan(&value)
	if err != nil {
		if isSerializationFailure(err) {
			return 0, apperrors.NewConflict("sequence counter", err)
		}
		return 0, fmt.Errorf("failed to increment sequence counter: %w", err)
	}
	return value, nil
}

func (r *counterRepository) Get(ctx context.Context, class model.SequenceClass, year int) (*model.SequenceCounter, error) {
	query := `SELECT class, year, last_value FROM sequence_counters WHERE class = $1 AND year = $2`
	var counter model.SequenceCounter
	err := r.db.GetContext(ctx, &counter, query, class, year)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("sequence counter", err)
		}
		return nil, fmt.Errorf("failed to get sequence counter: %w", err)
	}
	return &counter, nil
}
