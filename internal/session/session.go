// Package session decides where "now" sits relative to the daily 16:30 cutover.
//
// The same cutover answers two questions: whether today's daily bar is final
// (LastDayChangePercent) and whether the first intraday candle of the session
// exists yet (risk analysis). Callers always pass the time in; nothing here reads
// the system clock except the Clock helpers.
package session

import (
	"fmt"
	"time"
)

// Clock returns the current time. Production code passes SystemClock; tests pass Fixed.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time { return time.Now() }

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Default cutover: 16:30 local time.
const (
	DefaultHour   = 16
	DefaultMinute = 30
)

// Cutover is a wall-clock time of day in a fixed location.
type Cutover struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// Default returns the 16:30 cutover in the process-local zone.
func Default() Cutover {
	return Cutover{Hour: DefaultHour, Minute: DefaultMinute, Location: time.Local}
}

// Parse builds a Cutover from "HH:MM" and an IANA zone name ("" or "Local" means time.Local).
func Parse(hhmm, tz string) (Cutover, error) {
	c := Default()
	if hhmm != "" {
		t, err := time.Parse("15:04", hhmm)
		if err != nil {
			return Cutover{}, fmt.Errorf("parse cutover %q: %w", hhmm, err)
		}
		c.Hour, c.Minute = t.Hour(), t.Minute()
	}
	if tz != "" && tz != "Local" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Cutover{}, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		c.Location = loc
	}
	return c, nil
}

func (c Cutover) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Passed reports whether now is at or after the cutover on its local calendar day.
func (c Cutover) Passed(now time.Time) bool {
	local := now.In(c.loc())
	return local.Hour()*60+local.Minute() >= c.Hour*60+c.Minute
}

// Today truncates now to midnight of its local calendar day.
func (c Cutover) Today(now time.Time) time.Time {
	local := now.In(c.loc())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc())
}

// SameDay reports whether a and b fall on the same local calendar day.
func (c Cutover) SameDay(a, b time.Time) bool {
	return c.Today(a).Equal(c.Today(b))
}

func (c Cutover) String() string {
	return fmt.Sprintf("%02d:%02d %s", c.Hour, c.Minute, c.loc())
}
