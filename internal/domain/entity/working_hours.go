package entity

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidWorkingHours = errors.New("working hours must look like HH:MM-HH:MM")

// WorkingHours is a provider's daily window as offsets from midnight
type WorkingHours struct {
	Start time.Duration
	End   time.Duration
}

// ParseWorkingHours parses values such as "09:00-17:00". The end must be after the start.
func ParseWorkingHours(value string) (WorkingHours, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return WorkingHours{}, ErrInvalidWorkingHours
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return WorkingHours{}, ErrInvalidWorkingHours
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return WorkingHours{}, ErrInvalidWorkingHours
	}
	if end <= start {
		return WorkingHours{}, ErrInvalidWorkingHours
	}

	return WorkingHours{Start: start, End: end}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// FormatClock renders an offset from midnight as HH:MM
func FormatClock(offset time.Duration) string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset).Format(TimeLayout)
}
