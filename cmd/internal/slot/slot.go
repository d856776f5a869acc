package slot

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DateLayout is the wire format for calendar dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire format for grid times.
	TimeLayout = "15:04"
	// StepsPerDay is the number of grid slots in one day (half-hour steps).
	StepsPerDay = 48
	// StepMinutes is the width of one grid step.
	StepMinutes = 30
)

var ErrInvalidInput = errors.New("invalid slot input")

// Slot is a single bookable position on the half-hour grid: a calendar
// day plus a step index (0 = 00:00, 47 = 23:30). The zero value is the
// grid origin and should not be used as a real slot.
type Slot struct {
	Day   time.Time // midnight UTC
	Index int
}

// Normalize parses a "YYYY-MM-DD" date and an "HH:MM" time into a Slot.
// The time must fall exactly on a 30-minute boundary.
func Normalize(date, clock string) (Slot, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: date %q is not %s", ErrInvalidInput, date, DateLayout)
	}

	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return Slot{}, fmt.Errorf("%w: time %q is not %s", ErrInvalidInput, clock, TimeLayout)
	}

	if t.Minute()%StepMinutes != 0 {
		return Slot{}, fmt.Errorf("%w: time %q is not on a %d-minute boundary", ErrInvalidInput, clock, StepMinutes)
	}

	return Slot{
		Day:   day.UTC(),
		Index: t.Hour()*2 + t.Minute()/StepMinutes,
	}, nil
}

// Next returns the slot one grid step later. 23:30 rolls over to 00:00
// of the following day. The grid has no upper bound; callers iterating
// with Next must bound the walk themselves.
func (s Slot) Next() Slot {
	if s.Index >= StepsPerDay-1 {
		return Slot{Day: s.Day.AddDate(0, 0, 1), Index: 0}
	}
	return Slot{Day: s.Day, Index: s.Index + 1}
}

// AddDays returns the slot at the same time n days later.
func (s Slot) AddDays(n int) Slot {
	return Slot{Day: s.Day.AddDate(0, 0, n), Index: s.Index}
}

func (s Slot) Before(o Slot) bool {
	if !s.Day.Equal(o.Day) {
		return s.Day.Before(o.Day)
	}
	return s.Index < o.Index
}

func (s Slot) After(o Slot) bool {
	return o.Before(s)
}

func (s Slot) Equal(o Slot) bool {
	return s.Day.Equal(o.Day) && s.Index == o.Index
}

// DateString formats the slot's date as "YYYY-MM-DD".
func (s Slot) DateString() string {
	return s.Day.Format(DateLayout)
}

// TimeString formats the slot's time as "HH:MM".
func (s Slot) TimeString() string {
	return fmt.Sprintf("%02d:%02d", s.Index/2, (s.Index%2)*StepMinutes)
}

func (s Slot) String() string {
	return s.DateString() + " " + s.TimeString()
}
