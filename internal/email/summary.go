package email

import (
	"bytes"
	"fmt"
	"time"

	"github.com/clinicore/clinic-api/internal/model"
)

// FormatVisitSummary builds the subject and plain-text body for the
// summary mailed to a patient after a completed visit.
func FormatVisitSummary(visit *model.Visit, patient *model.Patient) (subject, body string) {
	subject = fmt.Sprintf("Your visit summary %s", visit.VisitNumber)

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Dear %s,\n\n", patient.FullName())
	fmt.Fprintf(&buf, "Thank you for your visit on %s.\n\n", visit.VisitDate.Format("2 January 2006"))

	fmt.Fprintf(&buf, "Visit number: %s\n", visit.VisitNumber)
	if visit.Department != "" {
		fmt.Fprintf(&buf, "Department: %s\n", visit.Department)
	}
	fmt.Fprintf(&buf, "Checked in: %s\n", visit.CheckInTime.Format("15:04"))

	if visit.ConsultationStartTime != nil && visit.ConsultationEndTime != nil {
		duration := visit.ConsultationEndTime.Sub(*visit.ConsultationStartTime).Round(time.Minute)
		fmt.Fprintf(&buf, "Consultation: %s to %s (%d min)\n",
			visit.ConsultationStartTime.Format("15:04"),
			visit.ConsultationEndTime.Format("15:04"),
			int(duration.Minutes()))
	}

	fmt.Fprintf(&buf, "\nIf you have questions about your visit, please contact the clinic and quote your visit number.\n")

	return subject, buf.String()
}
