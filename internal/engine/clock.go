package engine

import "time"

// Clock supplies the creation time stamped on readings and audit rows.
// Measurement times come from the submission, never from the clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
