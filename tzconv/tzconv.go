// Package tzconv converts date/time values between timezones. Timezone
// database correctness is delegated to the platform's zoneinfo via the time
// package.
package tzconv

import (
	"errors"
	"time"
)

var ErrNilLocation = errors.New("tzconv: nil location")

// Convert maps t to the same absolute instant expressed in loc.
func Convert(t time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, ErrNilLocation
	}
	return t.In(loc), nil
}

// Localize reinterprets t's wall-clock fields in loc, discarding t's own
// zone. This is the "naive datetime" case: the caller has clock fields that
// were never zone-qualified and asserts they belong to loc.
func Localize(t time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, ErrNilLocation
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}
