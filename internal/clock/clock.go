// Package clock provides the time-of-day arithmetic used by planned
// assignment slots. Times are minutes since midnight within a single day.
package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Time is a time of day, in minutes since midnight.
type Time int

const (
	// StartOfDay is 00:00.
	StartOfDay Time = 0
	// EndOfDay is 23:59, the last displayable minute of a day.
	EndOfDay Time = 23*60 + 59
)

// Parse reads a "HH:MM" (or "HH:MM:SS", seconds ignored) time of day.
func Parse(s string) (Time, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("clock: invalid time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock: invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("clock: invalid minute in %q", s)
	}
	return Time(h*60 + m), nil
}

// MustParse is Parse for literals known to be valid. It panics otherwise.
func MustParse(s string) Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String formats t as "HH:MM".
func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Valid reports whether t lies within a single day.
func (t Time) Valid() bool {
	return t >= StartOfDay && t <= EndOfDay
}

// Offset returns t shifted by h hours without clamping to the day. The
// result may be negative or past midnight.
func (t Time) Offset(h float64) Time {
	return t + Time(math.Round(h*60))
}

// AddHours returns t shifted by h hours. ok is false when the result falls
// outside the day.
func (t Time) AddHours(h float64) (Time, bool) {
	r := t.Offset(h)
	return r, r.Valid()
}

// SubHours returns t shifted back by h hours. ok is false when the result
// falls outside the day.
func (t Time) SubHours(h float64) (Time, bool) {
	return t.AddHours(-h)
}

// Hours returns the duration from start to end in hours, rounded to two
// decimals. It is negative when end is before start.
func Hours(start, end Time) float64 {
	return math.Round(float64(end-start)/60*100) / 100
}

// MarshalText implements encoding.TextMarshaler.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Time) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
