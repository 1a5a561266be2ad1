// Package cutoff models the gateway's daily settlement cutoff.
package cutoff

import (
	"fmt"
	"time"
)

// Schedule is a daily cutoff at Hour:Minute in Location.
type Schedule struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Parse reads an "HH:MM" cutoff in the named time zone.
func Parse(hhmm, timezone string) (Schedule, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return Schedule{}, fmt.Errorf("parse cutoff %q: %w", hhmm, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Schedule{}, fmt.Errorf("cutoff %q out of range", hhmm)
	}

	loc := time.UTC
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return Schedule{}, fmt.Errorf("load timezone %q: %w", timezone, err)
		}
	}

	return Schedule{Hour: h, Minute: m, Location: loc}, nil
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Next returns the first cutoff at or after t.
func (s Schedule) Next(t time.Time) time.Time {
	local := t.In(s.location())
	c := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.location())
	if c.Before(local) {
		c = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, s.location())
	}
	return c
}

// String returns the cutoff as "HH:MM zone".
func (s Schedule) String() string {
	return fmt.Sprintf("%02d:%02d %s", s.Hour, s.Minute, s.location())
}
