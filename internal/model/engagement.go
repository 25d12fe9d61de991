package model

import "time"

// EngagementStatus is the lifecycle state of a party's claim on a subject.
type EngagementStatus string

const (
	// EngagementPending awaits the subject owner's decision.
	EngagementPending EngagementStatus = "pending"

	// EngagementApproved is the owner's accepted claim. At most one
	// engagement per subject holds this status at any time.
	EngagementApproved EngagementStatus = "approved"

	// EngagementRejected was declined by the owner. Terminal.
	EngagementRejected EngagementStatus = "rejected"

	// EngagementCompleted was approved and then carried out. Terminal.
	EngagementCompleted EngagementStatus = "completed"

	// EngagementCancelled was approved but did not occur; the subject was
	// reopened. Terminal.
	EngagementCancelled EngagementStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
// Terminal engagements are retained for audit, never deleted.
func (s EngagementStatus) Terminal() bool {
	switch s {
	case EngagementRejected, EngagementCompleted, EngagementCancelled:
		return true
	default:
		return false
	}
}

// Engagement is a party's claim against a subject.
type Engagement struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subject_id"`
	Actor     string           `json:"actor"`
	Status    EngagementStatus `json:"status"`
	Slot      *SlotRef         `json:"slot,omitempty"`
	Note      string           `json:"note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	// CompletedAt is stamped by the complete transition and nil otherwise.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the engagement.
func (e *Engagement) Clone() *Engagement {
	if e == nil {
		return nil
	}
	out := *e
	if e.Slot != nil {
		slot := *e.Slot
		out.Slot = &slot
	}
	if e.CompletedAt != nil {
		at := *e.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}
