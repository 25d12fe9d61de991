package model

import "time"

// SubjectKind identifies what sort of bookable entity a subject is.
// The kind selects the engagement policy applied to it.
type SubjectKind string

const (
	// KindTask is a posted task offer. Tasks admit counter-offers, so new
	// engagements are accepted even after one has been approved.
	KindTask SubjectKind = "task"

	// KindSwap is an exchange post with an availability calendar. A swap
	// accepts claims only while open, and completing it closes it.
	KindSwap SubjectKind = "swap"

	// KindVolunteer is a community volunteer-slot post.
	KindVolunteer SubjectKind = "volunteer"
)

// SubjectStatus is the lifecycle state of a bookable subject.
type SubjectStatus string

const (
	// SubjectOpen accepts new engagements.
	SubjectOpen SubjectStatus = "open"

	// SubjectPendingDecision has engagements awaiting the owner's decision.
	SubjectPendingDecision SubjectStatus = "pending_decision"

	// SubjectAssigned has exactly one approved engagement.
	SubjectAssigned SubjectStatus = "assigned"

	// SubjectClosed is finished and accepts nothing further.
	SubjectClosed SubjectStatus = "closed"
)

// Subject is a bookable entity that engagements are made against.
type Subject struct {
	ID        string        `json:"id"`
	Kind      SubjectKind   `json:"kind"`
	Owner     string        `json:"owner"`
	Title     string        `json:"title,omitempty"`
	Status    SubjectStatus `json:"status"`
	Calendar  *Calendar     `json:"calendar,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Clone returns a deep copy of the subject.
func (s *Subject) Clone() *Subject {
	if s == nil {
		return nil
	}
	out := *s
	out.Calendar = s.Calendar.Clone()
	return &out
}
