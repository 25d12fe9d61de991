package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate/taskmate/internal/model"
)

func TestSnapshotRestoreExact(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSubject(ctx, testSubject("subj-1")))
	require.NoError(t, s.UpsertEngagement(ctx, testEngagement("eng-1", "subj-1")))
	require.NoError(t, s.UpsertNotification(ctx, testNotification("n-1")))

	wantSubjects, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	wantEngagements, err := s.ListEngagements(ctx, "")
	require.NoError(t, err)
	wantNotifications, err := s.ListNotifications(ctx)
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	// Mutate everything: add, change, delete.
	require.NoError(t, s.UpsertSubject(ctx, testSubject("subj-2")))
	eng := testEngagement("eng-1", "subj-1")
	eng.Status = model.EngagementApproved
	require.NoError(t, s.UpsertEngagement(ctx, eng))
	require.NoError(t, s.DeleteNotification(ctx, "n-1"))
	require.NoError(t, s.UpsertNotification(ctx, testNotification("n-2")))

	require.NoError(t, s.Restore(ctx, snap))

	gotSubjects, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	gotEngagements, err := s.ListEngagements(ctx, "")
	require.NoError(t, err)
	gotNotifications, err := s.ListNotifications(ctx)
	require.NoError(t, err)

	assert.Equal(t, wantSubjects, gotSubjects)
	assert.Equal(t, wantEngagements, gotEngagements)
	assert.Equal(t, wantNotifications, gotNotifications)
}

func TestSnapshotScopedToViews(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSubject(ctx, testSubject("subj-1")))
	require.NoError(t, s.UpsertNotification(ctx, testNotification("n-1")))

	snap, err := s.Snapshot(ctx, ViewNotifications)
	require.NoError(t, err)

	// Mutations outside the snapshot's views must survive a restore.
	subj := testSubject("subj-1")
	subj.Status = model.SubjectClosed
	require.NoError(t, s.UpsertSubject(ctx, subj))
	require.NoError(t, s.MarkNotificationRead(ctx, "n-1"))

	require.NoError(t, s.Restore(ctx, snap))

	got, err := s.GetSubject(ctx, "subj-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubjectClosed, got.Status, "uncaptured views keep their mutations")

	all, err := s.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsRead, "captured view rolled back")
}

func TestSnapshotEmptyTables(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, s.UpsertSubject(ctx, testSubject("subj-1")))
	require.NoError(t, s.Restore(ctx, snap))

	all, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "restore of an empty capture clears the view")
}

func TestSnapshotUnknownView(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Snapshot(context.Background(), View("bogus"))
	assert.Error(t, err)
}
