package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/taskmate/taskmate/internal/canon"
	"github.com/taskmate/taskmate/internal/conflict"
	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/notify"
)

// Memory is the in-memory authoritative store. It arbitrates races with
// a single mutex: whichever request commits first wins, and the loser's
// transition fails its precondition with STALE_STATE.
//
// Successful mutations are recorded against their idempotency key with a
// canonical fingerprint of the payload. Replaying the same key and
// payload returns the recorded outcome; the same key with a different
// payload is rejected.
type Memory struct {
	mu            sync.Mutex
	subjects      map[string]*model.Subject
	engagements   map[string]*model.Engagement
	notifications map[string]*model.Notification
	replays       map[string]replayEntry

	idgen    engagement.IDGenerator
	detector *conflict.Detector
	hook     engagement.CompletionHook
	now      func() time.Time
}

type replayEntry struct {
	fingerprint  string
	engagementID string
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithIDGenerator overrides engagement id generation.
func WithIDGenerator(idgen engagement.IDGenerator) MemoryOption {
	return func(m *Memory) { m.idgen = idgen }
}

// WithCompletionHook wires the collaborator that receives completion
// side effects.
func WithCompletionHook(hook engagement.CompletionHook) MemoryOption {
	return func(m *Memory) { m.hook = hook }
}

// NewMemory creates an empty authoritative store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		subjects:      make(map[string]*model.Subject),
		engagements:   make(map[string]*model.Engagement),
		notifications: make(map[string]*model.Notification),
		replays:       make(map[string]replayEntry),
		idgen:         engagement.UUIDv7Generator{},
		detector:      conflict.NewDetector(),
		hook:          engagement.NopCompletionHook{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddSubject seeds a subject. Existing state under the same id is
// replaced; used for setup, not part of the Store contract.
func (m *Memory) AddSubject(subj *model.Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[subj.ID] = subj.Clone()
}

// GetSubject implements Store.
func (m *Memory) GetSubject(_ context.Context, id string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subj, ok := m.subjects[id]
	if !ok {
		return nil, model.NewNotFoundError("subject %s not found", id)
	}
	return subj.Clone(), nil
}

// ListSubjects implements Store.
func (m *Memory) ListSubjects(_ context.Context) ([]*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Subject, 0, len(m.subjects))
	for _, subj := range m.subjects {
		out = append(out, subj.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetEngagements implements Store.
func (m *Memory) GetEngagements(_ context.Context, subjectID string) ([]*model.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Engagement
	for _, eng := range m.engagements {
		if subjectID != "" && eng.SubjectID != subjectID {
			continue
		}
		out = append(out, eng.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetNotifications implements Store.
func (m *Memory) GetNotifications(_ context.Context, recipient string) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Notification
	for _, n := range m.notifications {
		if n.Recipient != recipient {
			continue
		}
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateEngagement implements Store.
func (m *Memory) CreateEngagement(_ context.Context, key string, req engagement.CreateRequest) (*model.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := map[string]any{
		"op":         "create_engagement",
		"subject_id": req.SubjectID,
		"actor":      req.Actor,
		"note":       req.Note,
	}
	if req.Slot != nil {
		payload["slot"] = req.Slot.String()
	}
	entry, replayed, err := m.checkReplay(key, payload)
	if err != nil {
		return nil, err
	}
	if replayed {
		return m.engagements[entry.engagementID].Clone(), nil
	}

	subj, ok := m.subjects[req.SubjectID]
	if !ok {
		return nil, model.NewNotFoundError("subject %s not found", req.SubjectID)
	}

	committed := m.committedOn(req.SubjectID)
	eng, err := engagement.Create(m.idgen, m.detector, subj, req, committed, m.now())
	if err != nil {
		return nil, err
	}

	m.engagements[eng.ID] = eng
	if subj.Status == model.SubjectOpen {
		subj.Status = model.SubjectPendingDecision
	}
	m.notifyLocked(createKind(subj.Kind), subj, eng)
	m.replays[key] = replayEntry{fingerprint: entry.fingerprint, engagementID: eng.ID}

	slog.Debug("engagement created",
		"subject", subj.ID, "engagement", eng.ID, "actor", eng.Actor)
	return eng.Clone(), nil
}

// ApproveEngagement implements Store.
func (m *Memory) ApproveEngagement(_ context.Context, key, subjectID, engagementID string) error {
	return m.transition(key, "approve", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			if err := engagement.Approve(subj, eng); err != nil {
				return err
			}
			m.notifyLocked(model.NotifyEngagementApproved, subj, eng)
			return nil
		})
}

// RejectEngagement implements Store.
func (m *Memory) RejectEngagement(_ context.Context, key, subjectID, engagementID string) error {
	return m.transition(key, "reject", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			if err := engagement.Reject(subj, eng); err != nil {
				return err
			}
			m.notifyLocked(model.NotifyEngagementRejected, subj, eng)
			return nil
		})
}

// CompleteEngagement implements Store.
func (m *Memory) CompleteEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	return m.transition(key, "complete", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			policy := engagement.PolicyFor(subj.Kind)
			if err := engagement.Complete(subj, eng, policy, m.now()); err != nil {
				return err
			}
			if err := m.hook.EngagementCompleted(ctx, *subj.Clone(), *eng.Clone()); err != nil {
				slog.Warn("completion hook failed",
					"subject", subj.ID, "engagement", eng.ID, "error", err)
			}
			m.notifyLocked(model.NotifyEngagementCompleted, subj, eng)
			return nil
		})
}

// RevertEngagement implements Store.
func (m *Memory) RevertEngagement(_ context.Context, key, subjectID, engagementID string) error {
	return m.transition(key, "revert", subjectID, engagementID,
		func(subj *model.Subject, eng *model.Engagement) error {
			if err := engagement.Revert(subj, eng); err != nil {
				return err
			}
			n := notify.New(notify.Context{
				Kind:      model.NotifySubjectReopened,
				SubjectID: subj.ID,
			}, eng.Actor, m.now())
			m.notifications[notificationKey(n.Recipient, n.ID)] = &n
			return nil
		})
}

// MarkNotificationRead implements Store.
func (m *Memory) MarkNotificationRead(_ context.Context, key, recipient, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := map[string]any{
		"op":        "mark_read",
		"recipient": recipient,
		"id":        notificationID,
	}
	entry, replayed, err := m.checkReplay(key, payload)
	if err != nil {
		return err
	}
	if replayed {
		return nil
	}

	n, ok := m.notifications[notificationKey(recipient, notificationID)]
	if !ok {
		return model.NewNotFoundError("notification %s not found", notificationID)
	}
	n.IsRead = true
	m.replays[key] = entry
	return nil
}

// ClearNotification implements Store.
func (m *Memory) ClearNotification(_ context.Context, key, recipient, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := map[string]any{
		"op":        "clear",
		"recipient": recipient,
		"id":        notificationID,
	}
	entry, replayed, err := m.checkReplay(key, payload)
	if err != nil {
		return err
	}
	if replayed {
		return nil
	}

	mapKey := notificationKey(recipient, notificationID)
	if _, ok := m.notifications[mapKey]; !ok {
		return model.NewNotFoundError("notification %s not found", notificationID)
	}
	delete(m.notifications, mapKey)
	m.replays[key] = entry
	return nil
}

// transition runs one engagement state transition under the store lock
// with idempotency-key replay.
func (m *Memory) transition(key, op, subjectID, engagementID string, fn func(*model.Subject, *model.Engagement) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload := map[string]any{
		"op":         op,
		"subject_id": subjectID,
		"id":         engagementID,
	}
	entry, replayed, err := m.checkReplay(key, payload)
	if err != nil {
		return err
	}
	if replayed {
		return nil
	}

	subj, ok := m.subjects[subjectID]
	if !ok {
		return model.NewNotFoundError("subject %s not found", subjectID)
	}
	eng, ok := m.engagements[engagementID]
	if !ok {
		return model.NewNotFoundError("engagement %s not found", engagementID)
	}

	if err := fn(subj, eng); err != nil {
		return err
	}
	m.replays[key] = entry

	slog.Debug("engagement transition",
		"op", op, "subject", subjectID, "engagement", engagementID)
	return nil
}

// committedOn returns the stored engagements for a subject, by value, for
// the conflict detector.
func (m *Memory) committedOn(subjectID string) []model.Engagement {
	var out []model.Engagement
	for _, eng := range m.engagements {
		if eng.SubjectID == subjectID {
			out = append(out, *eng.Clone())
		}
	}
	return out
}

// notifyLocked appends a notification about an engagement to the feed of
// whichever party did not act. Caller holds the lock.
func (m *Memory) notifyLocked(kind model.NotificationKind, subj *model.Subject, eng *model.Engagement) {
	recipient := subj.Owner
	actor := eng.Actor
	if kind != createKind(subj.Kind) {
		// Owner decisions flow back to the engaging party.
		recipient = eng.Actor
		actor = subj.Owner
	}
	n := notify.New(notify.Context{
		Kind:      kind,
		SubjectID: subj.ID,
		ActorRef:  actor,
	}, recipient, m.now())
	m.notifications[notificationKey(n.Recipient, n.ID)] = &n
}

// createKind picks the feed kind announcing a new engagement.
func createKind(kind model.SubjectKind) model.NotificationKind {
	if kind == model.KindSwap {
		return model.NotifySwapClaimed
	}
	return model.NotifyEngagementReceived
}

func notificationKey(recipient, id string) string {
	return recipient + "\x00" + id
}

// checkReplay looks up an idempotency key. A hit with a matching payload
// fingerprint reports replayed=true; a hit with a different payload is a
// validation error. Keys are only recorded for committed mutations, so a
// failed attempt may be retried under the same key.
func (m *Memory) checkReplay(key string, payload map[string]any) (replayEntry, bool, error) {
	if key == "" {
		return replayEntry{}, false, model.NewValidationError("idempotency key is required")
	}
	fp, err := canon.Fingerprint(payload)
	if err != nil {
		return replayEntry{}, false, fmt.Errorf("fingerprint payload: %w", err)
	}
	entry, ok := m.replays[key]
	if !ok {
		return replayEntry{fingerprint: fp}, false, nil
	}
	if entry.fingerprint != fp {
		return replayEntry{}, false, model.NewValidationError("idempotency key %s reused with a different payload", key)
	}
	return entry, true, nil
}
