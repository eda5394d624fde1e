package sequence

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/repository"
	"github.com/clinicore/clinic-api/pkg/clock"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
	"github.com/clinicore/clinic-api/pkg/metrics"
)

// maxAttempts bounds internal retries when concurrent issuance loses a
// race on the counter row.
const maxAttempts = 3

// Generator issues formatted identifiers (PREFIX-YYYY-NNNNN) backed by
// durable per-(class, year) counters. Correct under concurrent callers
// across service instances; the counter increment is a single atomic
// statement, never a read-modify-write, and never derived from counting
// existing identifiers.
type Generator struct {
	counters repository.CounterRepository
	clock    clock.Clock
	metrics  *metrics.Metrics
}

// NewGenerator builds a generator. metrics may be nil.
func NewGenerator(counters repository.CounterRepository, clk clock.Clock, m *metrics.Metrics) *Generator {
	return &Generator{
		counters: counters,
		clock:    clk,
		metrics:  m,
	}
}

// Next issues the next identifier for the class. The year comes from
// the injected clock at call time, so the first issuance of a new year
// lazily starts that year's counter at 1. Values past the five digit
// space fail with CapacityExceeded and are never retried; counter
// conflicts are retried with a fresh value up to maxAttempts.
func (g *Generator) Next(ctx context.Context, class model.SequenceClass) (string, error) {
	if !class.Valid() {
		return "", apperrors.NewBadRequest(fmt.Sprintf("unknown sequence class %q", class), nil)
	}

	if g.metrics != nil {
		timer := prometheus.NewTimer(g.metrics.SequenceLatency)
		defer timer.ObserveDuration()
	}

	year := g.clock.Today().Year()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		value, err := g.counters.IncrementAndGet(ctx, class, year)
		if err != nil {
			if apperrors.IsConflict(err) {
				if g.metrics != nil {
					g.metrics.SequenceConflicts.WithLabelValues(string(class)).Inc()
				}
				lastErr = err
				continue
			}
			return "", err
		}

		if value > model.MaxSequenceValue {
			if g.metrics != nil {
				g.metrics.SequenceExhausted.WithLabelValues(string(class)).Inc()
			}
			return "", apperrors.NewCapacityExceeded(string(class), year)
		}

		if g.metrics != nil {
			g.metrics.IdentifiersIssued.WithLabelValues(string(class)).Inc()
		}
		return model.FormatIdentifier(class, year, value), nil
	}

	return "", lastErr
}
