package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmate/taskmate/internal/conflict"
	"github.com/taskmate/taskmate/internal/model"
)

// IDGenerator produces unique engagement identifiers.
// Implemented by UUIDv7Generator (production) and testutil.FixedIDGenerator.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-ordered UUIDs. UUIDv7 keeps identifiers
// roughly sortable by creation time, which makes audit listings readable
// without an extra sort column.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 string, falling back to UUIDv4 if the system
// clock source fails.
func (UUIDv7Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CompletionHook receives the external side effect of a completed
// engagement (certificate issuance, payment release). The engine only
// delegates; it never owns the effect.
type CompletionHook interface {
	EngagementCompleted(ctx context.Context, subject model.Subject, eng model.Engagement) error
}

// NopCompletionHook ignores completions. Used where no collaborator is
// wired, and in tests that don't care about the side effect.
type NopCompletionHook struct{}

// EngagementCompleted implements CompletionHook.
func (NopCompletionHook) EngagementCompleted(context.Context, model.Subject, model.Engagement) error {
	return nil
}

// CreateRequest carries the inputs for a new engagement.
type CreateRequest struct {
	SubjectID string
	Actor     string
	Slot      *model.SlotRef
	Note      string
}

// Create validates a new engagement against the subject's policy and, when
// the subject carries a calendar and the request names a slot, against the
// conflict detector. On success it returns the pending engagement; on
// failure it returns a ValidationError or ConflictError and creates
// nothing.
//
// committed must hold the currently known engagements on the subject so
// the detector can exclude already-claimed pairs.
func Create(
	idgen IDGenerator,
	detector *conflict.Detector,
	subject *model.Subject,
	req CreateRequest,
	committed []model.Engagement,
	now time.Time,
) (*model.Engagement, error) {
	if req.Actor == "" {
		return nil, model.NewValidationError("engagement actor is required")
	}
	if req.SubjectID != subject.ID {
		return nil, model.NewValidationError("request targets subject %s, got %s", req.SubjectID, subject.ID)
	}

	policy := PolicyFor(subject.Kind)
	if !policy.AllowsCreate(subject.Status) {
		return nil, model.NewConflictError(subject.ID, "subject is %s and accepts no new engagements", subject.Status)
	}

	if subject.Calendar != nil && req.Slot != nil {
		res := detector.ValidateSlot(subject.ID, *req.Slot, subject.Calendar, committed, now)
		if !res.Valid {
			return nil, res.Err
		}
	}

	eng := &model.Engagement{
		ID:        idgen.NewID(),
		SubjectID: subject.ID,
		Actor:     req.Actor,
		Status:    model.EngagementPending,
		Note:      req.Note,
		CreatedAt: now,
	}
	if req.Slot != nil {
		slot := *req.Slot
		eng.Slot = &slot
	}
	return eng, nil
}
