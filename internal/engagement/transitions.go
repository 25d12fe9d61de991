package engagement

import (
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// Approve moves a pending engagement to approved and assigns the subject.
//
// Preconditions: the engagement belongs to the subject, is pending, and
// the subject has not already been assigned or closed. Sibling pending
// engagements are left untouched; a later attempt to approve one of them
// fails here because the subject is no longer open.
//
// On failure nothing is mutated.
func Approve(s *model.Subject, e *model.Engagement) error {
	if err := belongs(s, e); err != nil {
		return err
	}
	if e.Status != model.EngagementPending {
		return model.NewStaleStateError(s.ID, e.ID, "cannot approve engagement in status %s", e.Status)
	}
	if s.Status != model.SubjectOpen && s.Status != model.SubjectPendingDecision {
		return model.NewStaleStateError(s.ID, e.ID, "subject is %s, no longer accepting approval", s.Status)
	}
	e.Status = model.EngagementApproved
	s.Status = model.SubjectAssigned
	return nil
}

// Reject moves a pending engagement to rejected. The subject status is
// unchanged. On failure nothing is mutated.
func Reject(s *model.Subject, e *model.Engagement) error {
	if err := belongs(s, e); err != nil {
		return err
	}
	if e.Status != model.EngagementPending {
		return model.NewStaleStateError(s.ID, e.ID, "cannot reject engagement in status %s", e.Status)
	}
	e.Status = model.EngagementRejected
	return nil
}

// Complete moves an approved engagement to completed and stamps
// CompletedAt. Under a policy with CompleteCloses the subject is closed;
// otherwise it stays assigned. The external side effect (certificate or
// payment release) is the caller's responsibility, via CompletionHook.
//
// On failure nothing is mutated.
func Complete(s *model.Subject, e *model.Engagement, policy Policy, now time.Time) error {
	if err := belongs(s, e); err != nil {
		return err
	}
	if e.Status != model.EngagementApproved {
		return model.NewStaleStateError(s.ID, e.ID, "cannot complete engagement in status %s", e.Status)
	}
	e.Status = model.EngagementCompleted
	at := now
	e.CompletedAt = &at
	if policy.CompleteCloses {
		s.Status = model.SubjectClosed
	}
	return nil
}

// Revert records that an approved engagement did not occur: the
// engagement is cancelled and the subject reopens so it becomes
// claimable again. On failure nothing is mutated.
func Revert(s *model.Subject, e *model.Engagement) error {
	if err := belongs(s, e); err != nil {
		return err
	}
	if e.Status != model.EngagementApproved {
		return model.NewStaleStateError(s.ID, e.ID, "cannot revert engagement in status %s", e.Status)
	}
	e.Status = model.EngagementCancelled
	s.Status = model.SubjectOpen
	return nil
}

func belongs(s *model.Subject, e *model.Engagement) error {
	if e.SubjectID != s.ID {
		return model.NewValidationError("engagement %s belongs to subject %s, not %s", e.ID, e.SubjectID, s.ID)
	}
	return nil
}
