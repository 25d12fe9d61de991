package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate/taskmate/internal/model"
)

var testNow = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func openSubject(kind model.SubjectKind) *model.Subject {
	return &model.Subject{
		ID:        "subj-1",
		Kind:      kind,
		Owner:     "owner-1",
		Status:    model.SubjectOpen,
		CreatedAt: testNow,
	}
}

func pendingEngagement(id string) *model.Engagement {
	return &model.Engagement{
		ID:        id,
		SubjectID: "subj-1",
		Actor:     "actor-" + id,
		Status:    model.EngagementPending,
		CreatedAt: testNow,
	}
}

func TestApproveAssignsSubject(t *testing.T) {
	s := openSubject(model.KindTask)
	e := pendingEngagement("e1")

	require.NoError(t, Approve(s, e))
	assert.Equal(t, model.EngagementApproved, e.Status)
	assert.Equal(t, model.SubjectAssigned, s.Status)
}

func TestApproveSiblingFailsStaleAndMutatesNothing(t *testing.T) {
	s := openSubject(model.KindTask)
	e1 := pendingEngagement("e1")
	e2 := pendingEngagement("e2")

	require.NoError(t, Approve(s, e1))

	err := Approve(s, e2)
	require.Error(t, err)
	assert.True(t, model.IsStaleState(err))
	assert.Equal(t, model.EngagementPending, e2.Status, "loser engagement unchanged")
	assert.Equal(t, model.EngagementApproved, e1.Status, "winner unchanged")
	assert.Equal(t, model.SubjectAssigned, s.Status, "subject unchanged")
}

func TestApproveRequiresPending(t *testing.T) {
	for _, status := range []model.EngagementStatus{
		model.EngagementApproved,
		model.EngagementRejected,
		model.EngagementCompleted,
		model.EngagementCancelled,
	} {
		s := openSubject(model.KindTask)
		e := pendingEngagement("e1")
		e.Status = status

		err := Approve(s, e)
		require.Error(t, err, "status %s", status)
		assert.True(t, model.IsStaleState(err))
		assert.Equal(t, model.SubjectOpen, s.Status)
	}
}

func TestRejectLeavesSubjectUntouched(t *testing.T) {
	s := openSubject(model.KindSwap)
	e := pendingEngagement("e1")

	require.NoError(t, Reject(s, e))
	assert.Equal(t, model.EngagementRejected, e.Status)
	assert.Equal(t, model.SubjectOpen, s.Status)
}

func TestCompleteStampsTimeAndClosesCalendarBoundSubject(t *testing.T) {
	s := openSubject(model.KindSwap)
	e := pendingEngagement("e1")
	require.NoError(t, Approve(s, e))

	require.NoError(t, Complete(s, e, PolicyFor(model.KindSwap), testNow))
	assert.Equal(t, model.EngagementCompleted, e.Status)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, testNow, *e.CompletedAt)
	assert.Equal(t, model.SubjectClosed, s.Status)
}

func TestCompleteTaskStaysAssigned(t *testing.T) {
	s := openSubject(model.KindTask)
	e := pendingEngagement("e1")
	require.NoError(t, Approve(s, e))

	require.NoError(t, Complete(s, e, PolicyFor(model.KindTask), testNow))
	assert.Equal(t, model.SubjectAssigned, s.Status)
}

func TestCompleteRequiresApproved(t *testing.T) {
	s := openSubject(model.KindSwap)
	e := pendingEngagement("e1")

	err := Complete(s, e, PolicyFor(model.KindSwap), testNow)
	require.Error(t, err)
	assert.True(t, model.IsStaleState(err))
	assert.Nil(t, e.CompletedAt)
	assert.Equal(t, model.SubjectOpen, s.Status)
}

func TestRevertReopensSubject(t *testing.T) {
	s := openSubject(model.KindSwap)
	e := pendingEngagement("e1")
	require.NoError(t, Approve(s, e))

	require.NoError(t, Revert(s, e))
	assert.Equal(t, model.EngagementCancelled, e.Status)
	assert.Equal(t, model.SubjectOpen, s.Status, "subject claimable again")
}

func TestRevertRequiresApproved(t *testing.T) {
	s := openSubject(model.KindSwap)
	e := pendingEngagement("e1")
	e.Status = model.EngagementCompleted

	err := Revert(s, e)
	require.Error(t, err)
	assert.True(t, model.IsStaleState(err))
	assert.Equal(t, model.EngagementCompleted, e.Status)
}

func TestTransitionRejectsForeignEngagement(t *testing.T) {
	s := openSubject(model.KindTask)
	e := pendingEngagement("e1")
	e.SubjectID = "subj-other"

	for name, fn := range map[string]func() error{
		"approve":  func() error { return Approve(s, e) },
		"reject":   func() error { return Reject(s, e) },
		"complete": func() error { return Complete(s, e, PolicyFor(s.Kind), testNow) },
		"revert":   func() error { return Revert(s, e) },
	} {
		err := fn()
		require.Error(t, err, name)
		assert.True(t, model.IsValidation(err), name)
	}
}
