// Package daywindow combines natural sunrise/sunset with the user's wake-up
// and bed times into the interval the lighting curves follow.
package daywindow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSlack is subtracted from wake-up and added to bed time
const DefaultSlack = 30 * time.Minute

var (
	// ErrInvertedWindow means the inputs produced start >= end
	ErrInvertedWindow = errors.New("day window start is not before its end")

	// ErrInvalidClockTime is returned for malformed or out-of-range HH:MM values
	ErrInvalidClockTime = errors.New("invalid clock time")
)

// ClockTime is a wall-clock time of day with minute precision
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" (24-hour clock)
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidClockTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q: bad hour", ErrInvalidClockTime, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q: bad minute", ErrInvalidClockTime, s)
	}
	ct := ClockTime{Hour: hour, Minute: minute}
	if err := ct.Validate(); err != nil {
		return ClockTime{}, err
	}
	return ct, nil
}

// Validate checks hour and minute ranges
func (c ClockTime) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d out of range", ErrInvalidClockTime, c.Hour, c.Minute)
	}
	return nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On resolves the clock time on day's calendar date, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Config holds the user's active hours
type Config struct {
	WakeUp  ClockTime
	BedTime ClockTime
	Slack   time.Duration
}

// Validate checks the clock times and slack
func (c Config) Validate() error {
	if err := c.WakeUp.Validate(); err != nil {
		return fmt.Errorf("wake-up: %w", err)
	}
	if err := c.BedTime.Validate(); err != nil {
		return fmt.Errorf("bed time: %w", err)
	}
	if c.Slack < 0 {
		return fmt.Errorf("slack must not be negative, got %s", c.Slack)
	}
	return nil
}

// Window is the interval during which lighting follows the daylight curve.
// Start is always before End.
type Window struct {
	Start time.Time
	End   time.Time

	// Date is local midnight of the day the window was computed for
	Date time.Time
}

// Duration returns End - Start
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Midday returns the midpoint of the window
func (w Window) Midday() time.Time {
	return w.Start.Add(w.Duration() / 2)
}

// IsToday reports whether now falls on the calendar day the window was computed for
func (w Window) IsToday(now time.Time) bool {
	y1, m1, d1 := w.Date.Date()
	y2, m2, d2 := now.In(w.Date.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Compute builds the window for today's calendar date in today's location:
//
//	start = min(sunrise, wake-up - slack)
//	end   = max(sunset, bed time + slack)
func Compute(sunrise, sunset time.Time, cfg Config, today time.Time) (Window, error) {
	if err := cfg.Validate(); err != nil {
		return Window{}, err
	}

	wake := cfg.WakeUp.On(today).Add(-cfg.Slack)
	bed := cfg.BedTime.On(today).Add(cfg.Slack)

	start := sunrise
	if wake.Before(start) {
		start = wake
	}
	end := sunset
	if bed.After(end) {
		end = bed
	}

	if !start.Before(end) {
		return Window{}, fmt.Errorf("%w: start %s, end %s",
			ErrInvertedWindow, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	loc := today.Location()
	y, m, d := today.Date()
	return Window{
		Start: start.In(loc),
		End:   end.In(loc),
		Date:  time.Date(y, m, d, 0, 0, 0, 0, loc),
	}, nil
}
