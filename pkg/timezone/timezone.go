package timezone

import "time"

const DefaultTimezone = "UTC"

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location falls back to DefaultTimezone when tz is empty or unknown
func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}

// Clock supplies the clinic's notion of now
type Clock interface {
	Now() time.Time
}

type clinicClock struct {
	loc *time.Location
}

func NewClock(tz string) Clock {
	return clinicClock{loc: Location(tz)}
}

func (c clinicClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the clinic's current calendar day as a UTC midnight value
func Today(c Clock) time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FixedClock always reports the same instant
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}
