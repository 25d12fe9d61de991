package model

import (
	"iter"
	"slices"
	"time"
)

// EnumerationGrace keeps a just-started pair enumerable for one more
// minute, so a selection made while the pair was valid can still submit
// without flapping between render and request.
const EnumerationGrace = time.Minute

// Calendar represents a resource's offered time windows as the cross
// product of its available dates and its time slots.
//
// Invariants (maintained by the mutating methods, assumed by Enumerate):
//   - Dates is sorted chronologically with no duplicates.
//   - Slots is sorted by start then end offset with no duplicates.
//   - Every slot satisfies Slot.Validate.
type Calendar struct {
	Dates []Day  `json:"dates,omitempty"`
	Slots []Slot `json:"slots,omitempty"`

	// Scheduling granularity hints for downstream UI. The engine stores
	// and transports them but never enforces them.
	DurationMinutes int `json:"duration_minutes,omitempty"`
	IntervalMinutes int `json:"interval_minutes,omitempty"`
}

// AddDate inserts a day, keeping Dates sorted. Adding a day that is
// already present is a no-op.
func (c *Calendar) AddDate(d Day) {
	i, found := slices.BinarySearchFunc(c.Dates, d, Day.Compare)
	if found {
		return
	}
	c.Dates = slices.Insert(c.Dates, i, d)
}

// RemoveDate deletes a day. Removing an absent day is a no-op.
func (c *Calendar) RemoveDate(d Day) {
	i, found := slices.BinarySearchFunc(c.Dates, d, Day.Compare)
	if found {
		c.Dates = slices.Delete(c.Dates, i, i+1)
	}
}

// AddSlot inserts a slot, keeping Slots ordered by start then end.
// Returns a ValidationError if the slot is invalid or duplicates an
// existing slot exactly.
func (c *Calendar) AddSlot(s Slot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	i, found := slices.BinarySearchFunc(c.Slots, s, compareSlots)
	if found {
		return NewValidationError("slot %s already exists", s)
	}
	c.Slots = slices.Insert(c.Slots, i, s)
	return nil
}

// RemoveSlot deletes a slot. Removing an absent slot is a no-op.
func (c *Calendar) RemoveSlot(s Slot) {
	i, found := slices.BinarySearchFunc(c.Slots, s, compareSlots)
	if found {
		c.Slots = slices.Delete(c.Slots, i, i+1)
	}
}

// HasPair reports whether the pair's day and slot are both stored exactly.
func (c *Calendar) HasPair(ref SlotRef) bool {
	_, dayFound := slices.BinarySearchFunc(c.Dates, ref.Day, Day.Compare)
	_, slotFound := slices.BinarySearchFunc(c.Slots, ref.Slot, compareSlots)
	return dayFound && slotFound
}

// Enumerate returns a lazy, finite, restartable sequence of (day, slot)
// pairs ordered first by day, then by slot start offset. Pairs whose
// start already lies more than EnumerationGrace before now are filtered
// out; the stored data is never modified.
//
// The sequence snapshots the calendar at call time, so mutating the
// calendar mid-iteration does not affect an in-progress or restarted
// range over the same sequence.
func (c *Calendar) Enumerate(now time.Time) iter.Seq[SlotRef] {
	dates := slices.Clone(c.Dates)
	slots := slices.Clone(c.Slots)
	cutoff := now.Add(-EnumerationGrace)
	loc := now.Location()

	return func(yield func(SlotRef) bool) {
		for _, day := range dates {
			for _, slot := range slots {
				ref := SlotRef{Day: day, Slot: slot}
				if ref.StartTime(loc).Before(cutoff) {
					continue
				}
				if !yield(ref) {
					return
				}
			}
		}
	}
}

// Clone returns a deep copy of the calendar.
func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	return &Calendar{
		Dates:           slices.Clone(c.Dates),
		Slots:           slices.Clone(c.Slots),
		DurationMinutes: c.DurationMinutes,
		IntervalMinutes: c.IntervalMinutes,
	}
}

func compareSlots(a, b Slot) int {
	if a.Start != b.Start {
		return sign(a.Start - b.Start)
	}
	return sign(a.End - b.End)
}
