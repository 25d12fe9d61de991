// Package conflict implements the advisory slot conflict detector.
//
// The detector answers one question: given a subject's availability
// calendar and the engagements already committed against it, is a
// requested (day, slot) pair still free, and if not, what else is?
//
// The check is strictly advisory. It exists to fail fast in the client;
// the authoritative decision is always made by the remote store. A remote
// rejection after a passed local check is an expected race outcome, not a
// bug, and callers must treat it as a conflict that forces re-selection.
package conflict

import (
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// DefaultMaxAlternatives bounds the number of free pairs proposed when a
// requested pair is unavailable.
const DefaultMaxAlternatives = 5

// Result is the outcome of a slot validation.
//
// When the request fails as a conflict, Alternatives is non-nil: an empty slice
// means nothing else is available, a populated one means other pairs
// remain. Callers must render the two cases distinctly ("try another
// slot" vs "nothing else is available").
type Result struct {
	Valid        bool
	Err          error
	Alternatives []model.SlotRef
}

// Detector validates requested pairs against calendars and committed
// engagements.
type Detector struct {
	maxAlternatives int
}

// Option configures a Detector.
type Option func(*Detector)

// WithMaxAlternatives overrides the alternative proposal bound.
func WithMaxAlternatives(n int) Option {
	return func(d *Detector) { d.maxAlternatives = n }
}

// NewDetector constructs a Detector with the default alternative bound.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{maxAlternatives: DefaultMaxAlternatives}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ValidateSlot checks whether requested is still free on the subject.
//
// The candidate set is the calendar's enumeration at now; every pair
// claimed by an approved engagement for the same subject is removed from
// it. If the requested pair survives, the result is valid. Otherwise the
// result carries a ConflictError and up to the configured number of
// remaining free pairs as alternatives.
func (d *Detector) ValidateSlot(
	subjectID string,
	requested model.SlotRef,
	calendar *model.Calendar,
	committed []model.Engagement,
	now time.Time,
) Result {
	if calendar == nil {
		return Result{
			Valid: false,
			Err:   model.NewValidationError("subject %s has no availability calendar", subjectID),
		}
	}

	claimed := claimedPairs(subjectID, committed)

	found := false
	alternatives := make([]model.SlotRef, 0, d.maxAlternatives)
	for ref := range calendar.Enumerate(now) {
		if claimed[ref.String()] {
			continue
		}
		if ref == requested {
			found = true
			continue
		}
		if len(alternatives) < d.maxAlternatives {
			alternatives = append(alternatives, ref)
		}
	}

	if found {
		return Result{Valid: true}
	}

	return Result{
		Valid:        false,
		Err:          model.NewConflictError(subjectID, "slot %s is not available", requested),
		Alternatives: alternatives,
	}
}

// claimedPairs indexes the pairs held by approved engagements on the
// subject. Pending and terminal engagements do not block a pair.
func claimedPairs(subjectID string, committed []model.Engagement) map[string]bool {
	claimed := make(map[string]bool)
	for _, e := range committed {
		if e.SubjectID != subjectID || e.Status != model.EngagementApproved || e.Slot == nil {
			continue
		}
		claimed[e.Slot.String()] = true
	}
	return claimed
}
