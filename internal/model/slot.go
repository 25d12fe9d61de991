package model

import (
	"fmt"
	"strings"
	"time"
)

// Slot is a time-of-day interval expressed as minutes from midnight.
// A slot applies uniformly to every available date of its calendar.
type Slot struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// minutesPerDay bounds slot offsets; End may equal it for a slot running
// to midnight.
const minutesPerDay = 24 * 60

// Validate checks the slot invariant End > Start and that both offsets
// fall within a single day.
func (s Slot) Validate() error {
	if s.Start < 0 || s.Start >= minutesPerDay {
		return NewValidationError("slot start %d out of range [0, %d)", s.Start, minutesPerDay)
	}
	if s.End <= s.Start {
		return NewValidationError("slot end %s must be after start %s", formatMinutes(s.End), formatMinutes(s.Start))
	}
	if s.End > minutesPerDay {
		return NewValidationError("slot end %d exceeds end of day", s.End)
	}
	return nil
}

// String renders the slot as "09:00-10:00".
func (s Slot) String() string {
	return formatMinutes(s.Start) + "-" + formatMinutes(s.End)
}

// ParseSlot parses "HH:MM-HH:MM" and validates the result.
func ParseSlot(text string) (Slot, error) {
	start, end, ok := strings.Cut(text, "-")
	if !ok {
		return Slot{}, NewValidationError("invalid slot %q: expected HH:MM-HH:MM", text)
	}
	startMin, err := parseMinutes(start)
	if err != nil {
		return Slot{}, err
	}
	endMin, err := parseMinutes(end)
	if err != nil {
		return Slot{}, err
	}
	slot := Slot{Start: startMin, End: endMin}
	if err := slot.Validate(); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// SlotRef pairs a day with a slot, forming one bookable unit.
type SlotRef struct {
	Day  Day  `json:"day"`
	Slot Slot `json:"slot"`
}

// StartTime returns the moment the pair begins in the given location.
func (r SlotRef) StartTime(loc *time.Location) time.Time {
	return r.Day.Time(loc).Add(time.Duration(r.Slot.Start) * time.Minute)
}

// String renders the pair as "2026-08-24 09:00-10:00".
func (r SlotRef) String() string {
	return r.Day.String() + " " + r.Slot.String()
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func parseMinutes(text string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(text), "%d:%d", &h, &m); err != nil {
		return 0, NewValidationError("invalid time of day %q: expected HH:MM", text)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, NewValidationError("time of day %q out of range", text)
	}
	return h*60 + m, nil
}
