package model

import "time"

// NotificationKind categorizes domain events surfaced to a user.
// The kind determines how the notification's composite identifier is
// encoded and decoded (see the notify package).
type NotificationKind string

const (
	// NotifyEngagementReceived fires when a counterparty engages a subject.
	NotifyEngagementReceived NotificationKind = "engagement_received"

	// NotifyEngagementApproved fires when the owner approves a claim.
	NotifyEngagementApproved NotificationKind = "engagement_approved"

	// NotifyEngagementRejected fires when the owner declines a claim.
	NotifyEngagementRejected NotificationKind = "engagement_rejected"

	// NotifyEngagementCompleted fires when an approved claim is completed.
	NotifyEngagementCompleted NotificationKind = "engagement_completed"

	// NotifySwapClaimed fires when someone claims a slot on a swap post.
	NotifySwapClaimed NotificationKind = "swap_claimed"

	// NotifySubjectReopened fires when an approved claim is reverted and
	// the subject becomes claimable again.
	NotifySubjectReopened NotificationKind = "subject_reopened"

	// NotifyMessageReceived fires for a direct message. Its actor field
	// carries an already-resolved display label, not an identity.
	NotifyMessageReceived NotificationKind = "message_received"
)

// Notification is a domain event rendered to a user.
//
// ID is the opaque composite identifier produced by the notify codec.
// SubjectID and ActorRef are the decoded convenience fields; depending on
// Kind, ActorRef is either an opaque actor identity or a resolved label.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	SubjectID string           `json:"subject_id,omitempty"`
	ActorRef  string           `json:"actor_ref,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Clone returns a copy of the notification.
func (n *Notification) Clone() *Notification {
	if n == nil {
		return nil
	}
	out := *n
	return &out
}
