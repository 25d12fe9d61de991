package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
	"github.com/taskmate/taskmate/internal/testutil"
)

var testStart = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestMemory(t *testing.T) *remote.Memory {
	t.Helper()
	clock := testutil.NewDeterministicClock(testStart)
	return remote.NewMemory(
		remote.WithClock(clock.Now),
		remote.WithIDGenerator(testutil.NewFixedIDGenerator("eng")),
	)
}

func newCoordinator(t *testing.T, rs remote.Store, user string) (*Coordinator, *store.Store) {
	t.Helper()
	local := newTestStore(t)
	clock := testutil.NewDeterministicClock(testStart)
	keys := testutil.NewFixedIDGenerator("key")
	c := NewCoordinator(local, rs, user,
		WithClock(clock.Now),
		WithKeyGenerator(keys.NewID),
	)
	return c, local
}

func openSubject(id string, kind model.SubjectKind) *model.Subject {
	return &model.Subject{
		ID:        id,
		Kind:      kind,
		Owner:     "owner-1",
		Title:     "posted work",
		Status:    model.SubjectOpen,
		CreatedAt: testStart,
	}
}

func TestCreateEngagementOptimisticThenReconciled(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	c, local := newCoordinator(t, mem, "actor-a")
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, store.ViewSubjects))
	require.NoError(t, c.CreateEngagement(ctx, "task-1", nil, "I can help"))

	// Optimistic state is visible immediately.
	cached, err := local.ListEngagements(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, model.EngagementPending, cached[0].Status)
	subj, err := local.GetSubject(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectPendingDecision, subj.Status)

	// The scheduled refresh replaces the provisional row with the
	// authoritative one.
	require.NoError(t, c.Refresh(ctx, store.ViewEngagements))
	cached, err = local.ListEngagements(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "eng-1", cached[0].ID)
	assert.Equal(t, "actor-a", cached[0].Actor)
}

func TestClearNotificationRollbackLaw(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	_, err := mem.CreateEngagement(context.Background(), "seed-1", engagement.CreateRequest{
		SubjectID: "task-1", Actor: "actor-a",
	})
	require.NoError(t, err)

	c, local := newCoordinator(t, mem, "owner-1")
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx, store.ViewNotifications))

	before, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)
	id := before[0].ID

	// Someone else clears it first; our clear loses at the remote.
	require.NoError(t, mem.ClearNotification(ctx, "other-1", "owner-1", id))

	err = c.ClearNotification(ctx, id)
	require.True(t, model.IsNotFound(err), "want NOT_FOUND, got %v", err)

	// The rolled-back feed is exactly the pre-action state, not a merge.
	after, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestClearNotificationSuccessRemoves(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	_, err := mem.CreateEngagement(context.Background(), "seed-1", engagement.CreateRequest{
		SubjectID: "task-1", Actor: "actor-a",
	})
	require.NoError(t, err)

	c, local := newCoordinator(t, mem, "owner-1")
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx, store.ViewNotifications))

	feed, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)

	require.NoError(t, c.ClearNotification(ctx, feed[0].ID))

	feed, err = local.ListNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, feed)

	remoteFeed, err := mem.GetNotifications(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, remoteFeed)
}

func TestMarkReadTouchesOnlyTargetRow(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	mem.AddSubject(openSubject("task-2", model.KindTask))
	ctx := context.Background()
	for _, subj := range []string{"task-1", "task-2"} {
		_, err := mem.CreateEngagement(ctx, "seed-"+subj, engagement.CreateRequest{
			SubjectID: subj, Actor: "actor-a",
		})
		require.NoError(t, err)
	}

	c, local := newCoordinator(t, mem, "owner-1")
	require.NoError(t, c.Refresh(ctx, store.ViewNotifications))

	feed, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	require.NoError(t, c.MarkNotificationRead(ctx, feed[0].ID))

	after, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	for _, n := range after {
		if n.ID == feed[0].ID {
			assert.True(t, n.IsRead)
		} else {
			assert.False(t, n.IsRead, "sibling rows stay untouched")
		}
	}
}

// countingStore counts mutating calls that reach the authoritative store.
type countingStore struct {
	remote.Store
	submits int
}

func (s *countingStore) ApproveEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	s.submits++
	return s.Store.ApproveEngagement(ctx, key, subjectID, engagementID)
}

func TestStaleLocalPreconditionSkipsNetwork(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("swap-1", model.KindSwap))
	ctx := context.Background()
	eng, err := mem.CreateEngagement(ctx, "seed-1", engagement.CreateRequest{
		SubjectID: "swap-1", Actor: "actor-a",
	})
	require.NoError(t, err)
	require.NoError(t, mem.ApproveEngagement(ctx, "seed-2", "swap-1", eng.ID))

	counting := &countingStore{Store: mem}
	c, _ := newCoordinator(t, counting, "owner-1")
	require.NoError(t, c.Refresh(ctx, store.ViewSubjects))
	require.NoError(t, c.Refresh(ctx, store.ViewEngagements))

	// Approving an already-approved engagement fails locally.
	err = c.ApproveEngagement(ctx, "swap-1", eng.ID)
	assert.True(t, model.IsStaleState(err), "want STALE_STATE, got %v", err)
	assert.Zero(t, counting.submits, "stale precondition must not reach the remote")
}

func TestTransitionRollbackOnRemoteRejection(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("swap-1", model.KindSwap))
	ctx := context.Background()
	eng, err := mem.CreateEngagement(ctx, "seed-1", engagement.CreateRequest{
		SubjectID: "swap-1", Actor: "actor-a",
	})
	require.NoError(t, err)

	c, local := newCoordinator(t, mem, "owner-1")
	require.NoError(t, c.Refresh(ctx, store.ViewSubjects))
	require.NoError(t, c.Refresh(ctx, store.ViewEngagements))

	// Another client wins the race at the remote after our views loaded.
	require.NoError(t, mem.ApproveEngagement(ctx, "other-1", "swap-1", eng.ID))
	require.NoError(t, mem.CompleteEngagement(ctx, "other-2", "swap-1", eng.ID))

	// Our approve passes the local pre-check but loses at the arbiter.
	err = c.ApproveEngagement(ctx, "swap-1", eng.ID)
	require.True(t, model.IsStaleState(err), "want STALE_STATE, got %v", err)

	// The cache shows the pre-action state again, not approved.
	got, err := local.GetEngagement(ctx, eng.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EngagementPending, got.Status)
	subj, err := local.GetSubject(ctx, "swap-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectPendingDecision, subj.Status)
}

// hookedStore runs a callback after a notifications fetch returns,
// simulating work that commits while the response is in flight.
type hookedStore struct {
	remote.Store
	afterFetch func()
}

func (s *hookedStore) GetNotifications(ctx context.Context, recipient string) ([]*model.Notification, error) {
	out, err := s.Store.GetNotifications(ctx, recipient)
	if s.afterFetch != nil {
		s.afterFetch()
	}
	return out, err
}

func TestStaleRefreshResponseDiscarded(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	ctx := context.Background()
	_, err := mem.CreateEngagement(ctx, "seed-1", engagement.CreateRequest{
		SubjectID: "task-1", Actor: "actor-a",
	})
	require.NoError(t, err)

	hooked := &hookedStore{Store: mem}
	c, local := newCoordinator(t, hooked, "owner-1")
	require.NoError(t, c.Refresh(ctx, store.ViewNotifications))

	feed, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	id := feed[0].ID

	// While the next refresh response is in flight, a local action
	// commits and bumps the view's generation.
	hooked.afterFetch = func() {
		hooked.afterFetch = nil
		require.NoError(t, c.MarkNotificationRead(ctx, id))
	}

	require.NoError(t, c.Refresh(ctx, store.ViewNotifications))

	// The in-flight response predates the mark-read and must not win.
	after, err := local.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.True(t, after[0].IsRead, "stale refresh must not clobber the newer write")
}

func TestRefreshAppliesWhenGenerationUnchanged(t *testing.T) {
	mem := newTestMemory(t)
	mem.AddSubject(openSubject("task-1", model.KindTask))
	c, local := newCoordinator(t, mem, "owner-1")
	ctx := context.Background()

	require.NoError(t, c.Refresh(ctx, store.ViewSubjects))
	subjects, err := local.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "task-1", subjects[0].ID)
}
