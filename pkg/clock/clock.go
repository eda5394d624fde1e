package clock

import "time"

// Clock supplies the current instant and calendar day. Injected into the
// sequence generator and visit services so year derivation and timestamp
// side effects are testable.
type Clock interface {
	Now() time.Time
	Today() time.Time
}

type systemClock struct{}

// New returns a Clock backed by the system time in UTC.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
