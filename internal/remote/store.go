package remote

import (
	"context"

	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
)

// Store is the narrow contract against the authoritative booking store.
//
// Mutating calls take a caller-generated idempotency key: resubmitting
// the same key with the same payload returns the original outcome
// without executing again, and the same key with a different payload is
// a validation error.
//
// All errors cross this boundary as coded model errors so callers can
// branch on the code rather than the transport.
type Store interface {
	// GetSubject returns the subject, or a NOT_FOUND error.
	GetSubject(ctx context.Context, id string) (*model.Subject, error)

	// ListSubjects returns every subject, ordered by creation time.
	ListSubjects(ctx context.Context) ([]*model.Subject, error)

	// GetEngagements returns engagements ordered by creation time. A
	// non-empty subjectID restricts the result to that subject.
	GetEngagements(ctx context.Context, subjectID string) ([]*model.Engagement, error)

	// GetNotifications returns a recipient's feed, newest first.
	GetNotifications(ctx context.Context, recipient string) ([]*model.Notification, error)

	// CreateEngagement registers a new pending engagement after policy and
	// conflict arbitration.
	CreateEngagement(ctx context.Context, key string, req engagement.CreateRequest) (*model.Engagement, error)

	// ApproveEngagement approves a pending engagement and assigns its
	// subject. Later approval attempts on siblings fail STALE_STATE.
	ApproveEngagement(ctx context.Context, key, subjectID, engagementID string) error

	// RejectEngagement declines a pending engagement.
	RejectEngagement(ctx context.Context, key, subjectID, engagementID string) error

	// CompleteEngagement records that an approved engagement occurred.
	CompleteEngagement(ctx context.Context, key, subjectID, engagementID string) error

	// RevertEngagement records that an approved engagement did not occur
	// and reopens the subject.
	RevertEngagement(ctx context.Context, key, subjectID, engagementID string) error

	// MarkNotificationRead flips one notification's read flag.
	MarkNotificationRead(ctx context.Context, key, recipient, notificationID string) error

	// ClearNotification removes one notification from the feed.
	ClearNotification(ctx context.Context, key, recipient, notificationID string) error
}
