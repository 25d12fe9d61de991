package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate/taskmate/internal/model"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testCalendar(t *testing.T, days []string, slots []string) *model.Calendar {
	t.Helper()
	c := &model.Calendar{}
	for _, d := range days {
		parsed, err := model.ParseDay(d)
		require.NoError(t, err)
		c.AddDate(parsed)
	}
	for _, s := range slots {
		parsed, err := model.ParseSlot(s)
		require.NoError(t, err)
		require.NoError(t, c.AddSlot(parsed))
	}
	return c
}

func ref(t *testing.T, d, s string) model.SlotRef {
	t.Helper()
	parsedDay, err := model.ParseDay(d)
	require.NoError(t, err)
	parsedSlot, err := model.ParseSlot(s)
	require.NoError(t, err)
	return model.SlotRef{Day: parsedDay, Slot: parsedSlot}
}

func approved(subjectID string, slot model.SlotRef) model.Engagement {
	return model.Engagement{
		ID:        "eng-" + slot.String(),
		SubjectID: subjectID,
		Actor:     "actor-1",
		Status:    model.EngagementApproved,
		Slot:      &slot,
	}
}

func TestValidateSlotFreePair(t *testing.T) {
	cal := testCalendar(t, []string{"2026-09-01"}, []string{"09:00-10:00", "14:00-15:00"})
	d := NewDetector()

	res := d.ValidateSlot("subj-1", ref(t, "2026-09-01", "09:00-10:00"), cal, nil, testNow)
	assert.True(t, res.Valid)
	assert.NoError(t, res.Err)
}

func TestValidateSlotClaimedPairProposesAlternatives(t *testing.T) {
	cal := testCalendar(t, []string{"2026-09-01"}, []string{"09:00-10:00", "14:00-15:00"})
	requested := ref(t, "2026-09-01", "09:00-10:00")
	committed := []model.Engagement{approved("subj-1", requested)}

	res := NewDetector().ValidateSlot("subj-1", requested, cal, committed, testNow)
	require.False(t, res.Valid)
	assert.True(t, model.IsConflict(res.Err))
	require.NotNil(t, res.Alternatives)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "2026-09-01 14:00-15:00", res.Alternatives[0].String())
}

func TestValidateSlotNothingElseAvailable(t *testing.T) {
	cal := testCalendar(t, []string{"2026-09-01"}, []string{"09:00-10:00"})
	requested := ref(t, "2026-09-01", "09:00-10:00")
	committed := []model.Engagement{approved("subj-1", requested)}

	res := NewDetector().ValidateSlot("subj-1", requested, cal, committed, testNow)
	require.False(t, res.Valid)
	require.NotNil(t, res.Alternatives, "empty and absent alternatives render differently")
	assert.Empty(t, res.Alternatives)
}

func TestValidateSlotIgnoresOtherSubjectsAndNonApproved(t *testing.T) {
	cal := testCalendar(t, []string{"2026-09-01"}, []string{"09:00-10:00"})
	requested := ref(t, "2026-09-01", "09:00-10:00")

	otherSubject := approved("subj-2", requested)
	pending := approved("subj-1", requested)
	pending.Status = model.EngagementPending
	cancelled := approved("subj-1", requested)
	cancelled.Status = model.EngagementCancelled

	res := NewDetector().ValidateSlot("subj-1", requested, cal,
		[]model.Engagement{otherSubject, pending, cancelled}, testNow)
	assert.True(t, res.Valid)
}

func TestValidateSlotAlternativesBounded(t *testing.T) {
	cal := testCalendar(t,
		[]string{"2026-09-01", "2026-09-02", "2026-09-03"},
		[]string{"09:00-10:00", "10:00-11:00", "11:00-12:00"})
	requested := ref(t, "2026-09-01", "09:00-10:00")
	committed := []model.Engagement{approved("subj-1", requested)}

	res := NewDetector(WithMaxAlternatives(2)).ValidateSlot("subj-1", requested, cal, committed, testNow)
	require.False(t, res.Valid)
	assert.Len(t, res.Alternatives, 2)
}

func TestValidateSlotElapsedPairInvalid(t *testing.T) {
	cal := testCalendar(t, []string{"2026-09-01"}, []string{"09:00-10:00", "14:00-15:00"})

	// Noon on the day itself: the requested morning slot already elapsed,
	// so it is absent from the candidate set.
	noon := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	res := NewDetector().ValidateSlot("subj-1", ref(t, "2026-09-01", "09:00-10:00"), cal, nil, noon)
	require.False(t, res.Valid)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "2026-09-01 14:00-15:00", res.Alternatives[0].String())
}

func TestValidateSlotNoCalendar(t *testing.T) {
	res := NewDetector().ValidateSlot("subj-1", ref(t, "2026-09-01", "09:00-10:00"), nil, nil, testNow)
	require.False(t, res.Valid)
	assert.True(t, model.IsValidation(res.Err))
	assert.Nil(t, res.Alternatives)
}
