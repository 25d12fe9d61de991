package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskmate/taskmate/internal/conflict"
	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
)

// actionViews is the static table of which views each action touches.
// It drives both the pre-mutation snapshot and the post-commit
// invalidation, so the two can never disagree.
var actionViews = map[string][]store.View{
	"create_engagement":   {store.ViewEngagements, store.ViewSubjects},
	"approve_engagement":  {store.ViewEngagements, store.ViewSubjects},
	"reject_engagement":   {store.ViewEngagements, store.ViewSubjects},
	"complete_engagement": {store.ViewEngagements, store.ViewSubjects},
	"revert_engagement":   {store.ViewEngagements, store.ViewSubjects},
	"mark_read":           {store.ViewNotifications},
	"clear_notification":  {store.ViewNotifications},
}

// Coordinator applies user actions optimistically against the local
// cache and reconciles them with the authoritative store.
type Coordinator struct {
	local  *store.Store
	remote remote.Store
	user   string

	clock    func() time.Time
	newKey   func() string
	detector *conflict.Detector
	sched    *Scheduler
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(clock func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clock }
}

// WithKeyGenerator overrides idempotency key generation.
func WithKeyGenerator(newKey func() string) CoordinatorOption {
	return func(c *Coordinator) { c.newKey = newKey }
}

// NewCoordinator creates a coordinator acting as the given user against
// the authoritative store, caching into local.
func NewCoordinator(local *store.Store, rs remote.Store, user string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		local:    local,
		remote:   rs,
		user:     user,
		clock:    time.Now,
		newKey:   uuid.NewString,
		detector: conflict.NewDetector(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetScheduler wires the refresh scheduler that receives post-commit
// refresh requests. Optional; without one, invalidation still bumps
// generations and the next manual Refresh reconciles.
func (c *Coordinator) SetScheduler(s *Scheduler) { c.sched = s }

// action is one optimistic mutation. optimistic edits the local cache;
// submit commits against the authoritative store under the given key.
type action struct {
	name       string
	optimistic func(ctx context.Context) error
	submit     func(ctx context.Context, key string) error
}

// do runs the snapshot, optimistic-apply, submit, invalidate-or-restore
// cycle for one action.
func (c *Coordinator) do(ctx context.Context, act action) error {
	views, ok := actionViews[act.name]
	if !ok {
		return fmt.Errorf("unknown action %q", act.name)
	}

	snap, err := c.local.Snapshot(ctx, views...)
	if err != nil {
		return fmt.Errorf("snapshot before %s: %w", act.name, err)
	}

	if err := act.optimistic(ctx); err != nil {
		// The optimistic step may have partially applied before failing.
		if restoreErr := c.local.Restore(ctx, snap); restoreErr != nil {
			slog.Error("rollback failed", "action", act.name, "error", restoreErr)
		}
		return err
	}

	key := c.newKey()
	if err := act.submit(ctx, key); err != nil {
		slog.Debug("submission rejected, rolling back",
			"action", act.name, "code", model.CodeOf(err))
		if restoreErr := c.local.Restore(ctx, snap); restoreErr != nil {
			slog.Error("rollback failed", "action", act.name, "error", restoreErr)
		}
		return err
	}

	for _, view := range views {
		if _, err := c.local.BumpGeneration(ctx, view); err != nil {
			return fmt.Errorf("invalidate %s after %s: %w", view, act.name, err)
		}
	}
	if c.sched != nil {
		c.sched.Kick(views...)
	}
	return nil
}

// CreateEngagement engages a subject. The request runs the full policy
// and conflict pre-check against the cached views first, so most
// rejections never reach the network; a remote rejection after a passed
// pre-check means the cache was behind and the slot must be re-selected.
// The local cache gains a provisional pending engagement immediately;
// the scheduled refresh replaces it with the authoritative row.
func (c *Coordinator) CreateEngagement(ctx context.Context, subjectID string, slot *model.SlotRef, note string) error {
	req := engagement.CreateRequest{
		SubjectID: subjectID,
		Actor:     c.user,
		Slot:      slot,
		Note:      note,
	}
	return c.do(ctx, action{
		name: "create_engagement",
		optimistic: func(ctx context.Context) error {
			subj, err := c.local.GetSubject(ctx, subjectID)
			if err != nil {
				return err
			}
			cached, err := c.local.ListEngagements(ctx, subjectID)
			if err != nil {
				return err
			}
			committed := make([]model.Engagement, len(cached))
			for i, eng := range cached {
				committed[i] = *eng
			}
			provisional, err := engagement.Create(provisionalIDs{c.newKey}, c.detector, subj, req, committed, c.clock())
			if err != nil {
				return err
			}
			if err := c.local.UpsertEngagement(ctx, provisional); err != nil {
				return err
			}
			if subj.Status == model.SubjectOpen {
				subj.Status = model.SubjectPendingDecision
				return c.local.UpsertSubject(ctx, subj)
			}
			return nil
		},
		submit: func(ctx context.Context, key string) error {
			_, err := c.remote.CreateEngagement(ctx, key, req)
			return err
		},
	})
}

// provisionalIDs marks locally-invented engagement ids so they are
// recognizable in logs until the refresh swaps in the authoritative id.
type provisionalIDs struct {
	newKey func() string
}

func (g provisionalIDs) NewID() string { return "provisional-" + g.newKey() }

// ApproveEngagement approves a pending engagement on a subject the user
// owns.
func (c *Coordinator) ApproveEngagement(ctx context.Context, subjectID, engagementID string) error {
	return c.transition(ctx, "approve_engagement", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			return engagement.Approve(subj, eng)
		},
		c.remote.ApproveEngagement)
}

// RejectEngagement declines a pending engagement.
func (c *Coordinator) RejectEngagement(ctx context.Context, subjectID, engagementID string) error {
	return c.transition(ctx, "reject_engagement", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			return engagement.Reject(subj, eng)
		},
		c.remote.RejectEngagement)
}

// CompleteEngagement records that an approved engagement occurred.
func (c *Coordinator) CompleteEngagement(ctx context.Context, subjectID, engagementID string) error {
	return c.transition(ctx, "complete_engagement", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			return engagement.Complete(subj, eng, engagement.PolicyFor(subj.Kind), c.clock())
		},
		c.remote.CompleteEngagement)
}

// RevertEngagement records that an approved engagement fell through and
// reopens the subject.
func (c *Coordinator) RevertEngagement(ctx context.Context, subjectID, engagementID string) error {
	return c.transition(ctx, "revert_engagement", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			return engagement.Revert(subj, eng)
		},
		c.remote.RevertEngagement)
}

// transition runs one engagement state transition optimistically against
// the cached rows, then submits it. The same state machine runs on both
// sides; a locally-detectable stale precondition fails before any
// network traffic.
func (c *Coordinator) transition(
	ctx context.Context,
	name, subjectID, engagementID string,
	apply func(*model.Subject, *model.Engagement) error,
	submit func(ctx context.Context, key, subjectID, engagementID string) error,
) error {
	return c.do(ctx, action{
		name: name,
		optimistic: func(ctx context.Context) error {
			subj, err := c.local.GetSubject(ctx, subjectID)
			if err != nil {
				return err
			}
			eng, err := c.local.GetEngagement(ctx, engagementID)
			if err != nil {
				return err
			}
			if err := apply(subj, eng); err != nil {
				return err
			}
			if err := c.local.UpsertEngagement(ctx, eng); err != nil {
				return err
			}
			return c.local.UpsertSubject(ctx, subj)
		},
		submit: func(ctx context.Context, key string) error {
			return submit(ctx, key, subjectID, engagementID)
		},
	})
}

// MarkNotificationRead flips a notification's read flag. Only that row
// is touched locally and remotely.
func (c *Coordinator) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, action{
		name: "mark_read",
		optimistic: func(ctx context.Context) error {
			return c.local.MarkNotificationRead(ctx, notificationID)
		},
		submit: func(ctx context.Context, key string) error {
			return c.remote.MarkNotificationRead(ctx, key, c.user, notificationID)
		},
	})
}

// ClearNotification removes a notification from the feed. A rejected
// clear restores the feed exactly as it was.
func (c *Coordinator) ClearNotification(ctx context.Context, notificationID string) error {
	return c.do(ctx, action{
		name: "clear_notification",
		optimistic: func(ctx context.Context) error {
			return c.local.DeleteNotification(ctx, notificationID)
		},
		submit: func(ctx context.Context, key string) error {
			return c.remote.ClearNotification(ctx, key, c.user, notificationID)
		},
	})
}

// Refresh fetches one view from the authoritative store and replaces the
// cached rows, unless the view moved on while the fetch was in flight.
func (c *Coordinator) Refresh(ctx context.Context, view store.View) error {
	issued, err := c.local.Generation(ctx, view)
	if err != nil {
		return err
	}

	var apply func(context.Context) error
	switch view {
	case store.ViewSubjects:
		subjects, err := c.remote.ListSubjects(ctx)
		if err != nil {
			return err
		}
		apply = func(ctx context.Context) error { return c.local.ReplaceSubjects(ctx, subjects) }
	case store.ViewEngagements:
		engagements, err := c.remote.GetEngagements(ctx, "")
		if err != nil {
			return err
		}
		apply = func(ctx context.Context) error { return c.local.ReplaceEngagements(ctx, engagements) }
	case store.ViewNotifications:
		notifications, err := c.remote.GetNotifications(ctx, c.user)
		if err != nil {
			return err
		}
		apply = func(ctx context.Context) error { return c.local.ReplaceNotifications(ctx, notifications) }
	default:
		return fmt.Errorf("unknown view %q", view)
	}

	current, err := c.local.Generation(ctx, view)
	if err != nil {
		return err
	}
	if current != issued {
		// The view changed under the in-flight fetch; the response is
		// stale and the next poll carries the newer state.
		slog.Debug("stale refresh discarded",
			"view", view, "issued", issued, "current", current)
		return nil
	}
	return apply(ctx)
}
