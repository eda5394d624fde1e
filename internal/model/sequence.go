package model

import "fmt"

// SequenceClass identifies an independent identifier sequence. Each
// class has its own per-year counter and prefix.
type SequenceClass string

const (
	SequenceClassVisit         SequenceClass = "visit"
	SequenceClassPatientRecord SequenceClass = "patient_record"
	SequenceClassOrder         SequenceClass = "order"
	SequenceClassAccession     SequenceClass = "accession"
)

var sequencePrefixes = map[SequenceClass]string{
	SequenceClassVisit:         "VIS",
	SequenceClassPatientRecord: "CLI",
	SequenceClassOrder:         "ORD",
	SequenceClassAccession:     "ACC",
}

// Valid reports whether c is a known sequence class.
func (c SequenceClass) Valid() bool {
	_, ok := sequencePrefixes[c]
	return ok
}

// Prefix returns the identifier prefix for the class.
func (c SequenceClass) Prefix() string {
	return sequencePrefixes[c]
}

// MaxSequenceValue is the highest sequence number expressible in the
// five digit identifier format. Issuance beyond it fails for the rest
// of the year.
const MaxSequenceValue = 99999

// FormatIdentifier renders a counter value as PREFIX-YYYY-NNNNN.
func FormatIdentifier(class SequenceClass, year int, value int64) string {
	return fmt.Sprintf("%s-%04d-%05d", class.Prefix(), year, value)
}

// SequenceCounter is the durable per-(class, year) counter row backing
// identifier issuance.
type SequenceCounter struct {
	Class     SequenceClass `db:"class" json:"class"`
	Year      int           `db:"year" json:"year"`
	LastValue int64         `db:"last_value" json:"last_value"`
}
