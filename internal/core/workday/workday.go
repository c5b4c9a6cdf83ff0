// Package workday classifies check-in times against configured cutoffs and
// normalizes timestamps to calendar days in one canonical time zone.
package workday

import (
	"errors"
	"fmt"
	"time"
)

// Outcome is the classification of a check-in attempt.
type Outcome int

const (
	Present Outcome = iota
	Late
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case Present:
		return "present"
	case Late:
		return "late"
	case Blocked:
		return "blocked"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

const (
	DefaultLateCutoff = 10 * time.Hour
	DefaultHardCutoff = 13 * time.Hour
)

// Policy holds the cutoffs as offsets from local midnight and the zone the
// day boundary is computed in.
type Policy struct {
	LateCutoff time.Duration
	HardCutoff time.Duration
	Location   *time.Location
}

// DefaultPolicy returns the 10:00/13:00 cutoffs in loc.
func DefaultPolicy(loc *time.Location) Policy {
	return Policy{LateCutoff: DefaultLateCutoff, HardCutoff: DefaultHardCutoff, Location: loc}
}

// Validate checks cutoff ordering.
func (p Policy) Validate() error {
	if p.Location == nil {
		return errors.New("workday location is required")
	}
	if p.LateCutoff < 0 || p.HardCutoff > 24*time.Hour {
		return errors.New("cutoffs must fall within a day")
	}
	if p.LateCutoff >= p.HardCutoff {
		return fmt.Errorf("late cutoff %s must be before hard cutoff %s", p.LateCutoff, p.HardCutoff)
	}
	return nil
}

// Classify maps the wall-clock time of now, read in the policy location, to
// an outcome.
func (p Policy) Classify(now time.Time) Outcome {
	tod := TimeOfDay(now.In(p.Location))
	switch {
	case tod < p.LateCutoff:
		return Present
	case tod < p.HardCutoff:
		return Late
	default:
		return Blocked
	}
}

// Day returns midnight of now's calendar date in the policy location.
func (p Policy) Day(now time.Time) time.Time {
	return StartOfDay(now, p.Location)
}

// StartOfDay returns local midnight of t's date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// TimeOfDay is the wall-clock offset of t from its own midnight. It is built
// from clock fields so DST transitions do not shift the cutoffs.
func TimeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// ParseClock parses "HH:MM" into an offset from midnight. "24:00" is
// accepted as the end of the day.
func ParseClock(s string) (time.Duration, error) {
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
