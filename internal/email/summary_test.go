package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clinicore/clinic-api/internal/model"
)

func TestFormatVisitSummary(t *testing.T) {
	checkIn := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	start := checkIn.Add(25 * time.Minute)
	end := start.Add(20 * time.Minute)

	visit := &model.Visit{
		VisitNumber:           "VIS-2025-00042",
		VisitDate:             checkIn,
		Department:            "cardiology",
		CheckInTime:           checkIn,
		ConsultationStartTime: &start,
		ConsultationEndTime:   &end,
	}
	patient := &model.Patient{FirstName: "Ada", LastName: "Osei"}

	subject, body := FormatVisitSummary(visit, patient)

	assert.Equal(t, "Your visit summary VIS-2025-00042", subject)
	assert.Contains(t, body, "Dear Ada Osei,")
	assert.Contains(t, body, "20 May 2025")
	assert.Contains(t, body, "Visit number: VIS-2025-00042")
	assert.Contains(t, body, "Department: cardiology")
	assert.Contains(t, body, "Checked in: 09:00")
	assert.Contains(t, body, "Consultation: 09:25 to 09:45 (20 min)")
}

func TestFormatVisitSummaryWithoutConsultationTimes(t *testing.T) {
	visit := &model.Visit{
		VisitNumber: "VIS-2025-00043",
		VisitDate:   time.Date(2025, 5, 21, 10, 30, 0, 0, time.UTC),
		CheckInTime: time.Date(2025, 5, 21, 10, 30, 0, 0, time.UTC),
	}
	patient := &model.Patient{FirstName: "Kofi", LastName: "Mensah"}

	_, body := FormatVisitSummary(visit, patient)

	assert.NotContains(t, body, "Consultation:")
	assert.NotContains(t, body, "Department:")
}
