package visit

import (
	"math"
	"time"

	"github.com/clinicore/clinic-api/internal/model"
)

// Aggregate computes visit statistics over a date range: total count,
// counts grouped by status and type, and average wait and consultation
// durations in minutes rounded to one decimal. A visit contributes to
// an average only when both of its bounding timestamps are set; when no
// visit qualifies the average is nil rather than zero. The input is not
// mutated.
func Aggregate(visits []*model.Visit, from, to time.Time) *model.VisitStats {
	stats := &model.VisitStats{
		DateFrom:    from,
		DateTo:      to,
		TotalVisits: len(visits),
		ByStatus:    make(map[model.VisitStatus]int),
		ByType:      make(map[model.VisitType]int),
	}

	var waitSum float64
	var waitCount int
	var consultSum float64
	var consultCount int

	for _, v := range visits {
		stats.ByStatus[v.Status]++
		stats.ByType[v.VisitType]++

		if !v.CheckInTime.IsZero() && v.ConsultationStartTime != nil {
			waitSum += v.ConsultationStartTime.Sub(v.CheckInTime).Minutes()
			waitCount++
		}
		if v.ConsultationStartTime != nil && v.ConsultationEndTime != nil {
			consultSum += v.ConsultationEndTime.Sub(*v.ConsultationStartTime).Minutes()
			consultCount++
		}
	}

	if waitCount > 0 {
		avg := roundOneDecimal(waitSum / float64(waitCount))
		stats.AverageWaitMinutes = &avg
	}
	if consultCount > 0 {
		avg := roundOneDecimal(consultSum / float64(consultCount))
		stats.AverageConsultMinutes = &avg
	}
	return stats
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
