package core

import (
	"time"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// Before returns true if t is before u
func (t Timestamp) Before(u Timestamp) bool {
	return time.Time(t).Before(time.Time(u))
}

// After returns true if t is after u
func (t Timestamp) After(u Timestamp) bool {
	return time.Time(t).After(time.Time(u))
}

// Hour returns the hour-of-day component (0-23)
func (t Timestamp) Hour() int {
	return time.Time(t).Hour()
}

// Weekday returns the day of week
func (t Timestamp) Weekday() time.Weekday {
	return time.Time(t).Weekday()
}

// Quarter returns the calendar quarter (1-4)
func (t Timestamp) Quarter() int {
	return (int(time.Time(t).Month())-1)/3 + 1
}

// IsWeekend reports whether the timestamp falls on Saturday or Sunday
func (t Timestamp) IsWeekend() bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// JSON marshaling for Timestamp
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tm)
	return nil
}

// String representation
func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }
