package visit

import (
	"sort"

	"github.com/clinicore/clinic-api/internal/model"
)

// Rank orders visits for the waiting queue: emergency before urgent
// before normal, then earliest check-in first. The sort is stable, so
// visits with equal priority and check-in time keep their input order;
// identifiers never participate in the ordering. The input is not
// mutated.
func Rank(visits []*model.Visit) []*model.Visit {
	ranked := make([]*model.Visit, len(visits))
	copy(ranked, visits)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.CheckInTime.Before(b.CheckInTime)
	})
	return ranked
}
