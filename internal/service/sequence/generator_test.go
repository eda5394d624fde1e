package sequence

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-api/internal/model"
	apperrors "github.com/clinicore/clinic-api/pkg/errors"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) Today() time.Time {
	y, m, d := c.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeCounterRepo struct {
	mu        sync.Mutex
	counters  map[string]int64
	conflicts int
	calls     int
}

func newFakeCounterRepo() *fakeCounterRepo {
	return &fakeCounterRepo{counters: make(map[string]int64)}
}

func counterKey(class model.SequenceClass, year int) string {
	return fmt.Sprintf("%s:%d", class, year)
}

func (f *fakeCounterRepo) IncrementAndGet(ctx context.Context, class model.SequenceClass, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.conflicts > 0 {
		f.conflicts--
		return 0, apperrors.NewConflict("sequence counter", nil)
	}

	key := counterKey(class, year)
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeCounterRepo) Get(ctx context.Context, class model.SequenceClass, year int) (*model.SequenceCounter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.counters[counterKey(class, year)]
	if !ok {
		return nil, apperrors.NewNotFound("sequence counter", nil)
	}
	return &model.SequenceCounter{Class: class, Year: year, LastValue: value}, nil
}

func (f *fakeCounterRepo) seed(class model.SequenceClass, year int, value int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[counterKey(class, year)] = value
}

func newTestGenerator(repo *fakeCounterRepo, now time.Time) *Generator {
	return NewGenerator(repo, &stubClock{now: now}, nil)
}

func TestNextFormatsIdentifier(t *testing.T) {
	repo := newFakeCounterRepo()
	gen := newTestGenerator(repo, time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC))

	tests := []struct {
		class model.SequenceClass
		want  string
	}{
		{model.SequenceClassVisit, "VIS-2025-00001"},
		{model.SequenceClassPatientRecord, "CLI-2025-00001"},
		{model.SequenceClassOrder, "ORD-2025-00001"},
		{model.SequenceClassAccession, "ACC-2025-00001"},
	}
	for _, tt := range tests {
		got, err := gen.Next(context.Background(), tt.class)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	// Classes advance independently.
	got, err := gen.Next(context.Background(), model.SequenceClassVisit)
	require.NoError(t, err)
	assert.Equal(t, "VIS-2025-00002", got)
}

func TestNextRejectsUnknownClass(t *testing.T) {
	gen := newTestGenerator(newFakeCounterRepo(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := gen.Next(context.Background(), model.SequenceClass("bogus"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestNextConcurrentCallersGetDistinctIdentifiers(t *testing.T) {
	repo := newFakeCounterRepo()
	gen := newTestGenerator(repo, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))

	const callers = 50
	const perCaller = 20

	var wg sync.WaitGroup
	results := make(chan string, callers*perCaller)
	errs := make(chan error, callers*perCaller)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perCaller; j++ {
				id, err := gen.Next(context.Background(), model.SequenceClassVisit)
				if err != nil {
					errs <- err
					continue
				}
				results <- id
			}
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	pattern := regexp.MustCompile(`^VIS-2025-\d{5}$`)
	seen := make(map[string]bool)
	for id := range results {
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "identifier %s issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, callers*perCaller)
}

func TestNextRestartsEachYear(t *testing.T) {
	repo := newFakeCounterRepo()
	clk := &stubClock{now: time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)}
	gen := NewGenerator(repo, clk, nil)

	for i := 0; i < 3; i++ {
		_, err := gen.Next(context.Background(), model.SequenceClassOrder)
		require.NoError(t, err)
	}

	clk.now = time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)

	got, err := gen.Next(context.Background(), model.SequenceClassOrder)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00001", got)

	// Prior year's counter is untouched by the rollover.
	prior, err := repo.Get(context.Background(), model.SequenceClassOrder, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(3), prior.LastValue)
}

func TestNextFailsWhenCapacityExhausted(t *testing.T) {
	repo := newFakeCounterRepo()
	repo.seed(model.SequenceClassOrder, 2025, model.MaxSequenceValue-1)
	gen := newTestGenerator(repo, time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC))

	got, err := gen.Next(context.Background(), model.SequenceClassOrder)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2025-99999", got)

	_, err = gen.Next(context.Background(), model.SequenceClassOrder)
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacityExceeded(err))
	assert.EqualError(t, err, "sequence capacity exhausted for class order in year 2025")
}

func TestNextRetriesCounterConflicts(t *testing.T) {
	repo := newFakeCounterRepo()
	repo.conflicts = 2
	gen := newTestGenerator(repo, time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC))

	got, err := gen.Next(context.Background(), model.SequenceClassVisit)
	require.NoError(t, err)
	assert.Equal(t, "VIS-2025-00001", got)
	assert.Equal(t, 3, repo.calls)
}

func TestNextSurfacesConflictAfterRetriesExhausted(t *testing.T) {
	repo := newFakeCounterRepo()
	repo.conflicts = 10
	gen := newTestGenerator(repo, time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC))

	_, err := gen.Next(context.Background(), model.SequenceClassVisit)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 3, repo.calls)
}
