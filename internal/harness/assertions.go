package harness

import (
	"context"

	"github.com/taskmate/taskmate/internal/model"
)

// evaluateAssertions checks the scenario's final-state expectations
// against the authoritative store and records any mismatches.
func (h *Harness) evaluateAssertions(ctx context.Context, a Assertions, result *Result) {
	for _, want := range a.Subjects {
		subj, err := h.mem.GetSubject(ctx, want.ID)
		if err != nil {
			result.AddError("assert subject %s: %v", want.ID, err)
			continue
		}
		if string(subj.Status) != want.Status {
			result.AddError("assert subject %s: status %s, want %s", want.ID, subj.Status, want.Status)
		}
	}

	for _, want := range a.Engagements {
		eng, found := h.findEngagement(ctx, want.ID)
		if !found {
			result.AddError("assert engagement %s: not found", want.ID)
			continue
		}
		if string(eng.Status) != want.Status {
			result.AddError("assert engagement %s: status %s, want %s", want.ID, eng.Status, want.Status)
		}
	}

	for _, want := range a.Notifications {
		if !h.findNotification(ctx, want) {
			result.AddError("assert notification: no %s in %s's feed matching %+v",
				want.Kind, want.Recipient, want)
		}
	}
}

func (h *Harness) findEngagement(ctx context.Context, id string) (*model.Engagement, bool) {
	engagements, err := h.mem.GetEngagements(ctx, "")
	if err != nil {
		return nil, false
	}
	for _, eng := range engagements {
		if eng.ID == id {
			return eng, true
		}
	}
	return nil, false
}

// findNotification reports whether the recipient's feed holds a
// notification matching every specified field.
func (h *Harness) findNotification(ctx context.Context, want NotificationExpect) bool {
	feed, err := h.mem.GetNotifications(ctx, want.Recipient)
	if err != nil {
		return false
	}
	for _, n := range feed {
		if string(n.Kind) != want.Kind {
			continue
		}
		if want.SubjectID != "" && n.SubjectID != want.SubjectID {
			continue
		}
		if want.ActorRef != "" && n.ActorRef != want.ActorRef {
			continue
		}
		if n.IsRead != want.IsRead {
			continue
		}
		return true
	}
	return false
}
