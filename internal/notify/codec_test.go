package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmate/taskmate/internal/model"
)

// allKindContexts covers every supported kind with its populated fields.
func allKindContexts() []Context {
	return []Context{
		{Kind: model.NotifyEngagementReceived, SubjectID: "subj-42", ActorRef: "actor-alice"},
		{Kind: model.NotifyEngagementApproved, SubjectID: "subj-42", ActorRef: "actor-bob"},
		{Kind: model.NotifyEngagementRejected, SubjectID: "subj-9", ActorRef: "actor-bob"},
		{Kind: model.NotifyEngagementCompleted, SubjectID: "subj-9", ActorRef: "actor-carol"},
		{Kind: model.NotifySwapClaimed, SubjectID: "swap-7", ActorRef: "actor-dave"},
		{Kind: model.NotifySubjectReopened, SubjectID: "swap-7"},
		{Kind: model.NotifyMessageReceived, ActionLabel: "Dana M."},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, ctx := range allKindContexts() {
		t.Run(string(ctx.Kind), func(t *testing.T) {
			decoded := Decode(Encode(ctx), ctx.Kind)
			assert.Equal(t, ctx, decoded)
		})
	}
}

func TestRoundTripSurvivesSeparatorCharacters(t *testing.T) {
	// Fields containing the join character or spaces must not corrupt
	// neighbouring fields.
	ctx := Context{
		Kind:      model.NotifySwapClaimed,
		SubjectID: "swap|tricky",
		ActorRef:  "actor with spaces",
	}
	decoded := Decode(Encode(ctx), ctx.Kind)
	assert.Equal(t, ctx, decoded)
}

func TestDecodeNeverFailsOnGarbage(t *testing.T) {
	inputs := []string{
		"",
		"v1:",
		"v1:|||",
		"v1:%zz|%zz", // invalid escapes
		"completely opaque garbage",
		"v1:only-one-field", // truncated for two-field kinds
		"_swap_",
	}
	kinds := []model.NotificationKind{
		model.NotifyEngagementReceived,
		model.NotifySwapClaimed,
		model.NotifyMessageReceived,
		model.NotificationKind("unknown_kind"),
	}
	for _, id := range inputs {
		for _, kind := range kinds {
			ctx := Decode(id, kind)
			assert.Equal(t, kind, ctx.Kind, "id=%q kind=%q", id, kind)
		}
	}
}

func TestDecodeTruncatedIDPartialResult(t *testing.T) {
	ctx := Decode("v1:subj-42", model.NotifyEngagementReceived)
	assert.Equal(t, "subj-42", ctx.SubjectID)
	assert.Empty(t, ctx.ActorRef, "missing segment stays empty")
}

func TestDecodeLegacySwapMarker(t *testing.T) {
	ctx := Decode("swap-7_swap_actor-dave", model.NotifySwapClaimed)
	assert.Equal(t, "swap-7", ctx.SubjectID)
	assert.Equal(t, "actor-dave", ctx.ActorRef)

	// Without the marker the whole id is the subject.
	ctx = Decode("swap-7", model.NotifySwapClaimed)
	assert.Equal(t, "swap-7", ctx.SubjectID)
	assert.Empty(t, ctx.ActorRef)
}

func TestDecodeLegacyFixedLengthIdentityPrefix(t *testing.T) {
	actor := "aaaaabbbbbcccccdddddeeeeefg" // 27 chars
	require.Len(t, actor, legacyIdentityLen)

	ctx := Decode(actor+"subj-42", model.NotifyEngagementReceived)
	assert.Equal(t, actor, ctx.ActorRef)
	assert.Equal(t, "subj-42", ctx.SubjectID)

	// Too short to carry a subject: actor only.
	ctx = Decode("short", model.NotifyEngagementApproved)
	assert.Equal(t, "short", ctx.ActorRef)
	assert.Empty(t, ctx.SubjectID)
}

func TestDecodeLegacyMessageLabel(t *testing.T) {
	ctx := Decode("Dana M.", model.NotifyMessageReceived)
	assert.Equal(t, "Dana M.", ctx.ActionLabel)
	assert.Empty(t, ctx.ActorRef)
}

func TestNewNotificationRecord(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	ctx := Context{Kind: model.NotifySwapClaimed, SubjectID: "swap-7", ActorRef: "actor-dave"}

	n := New(ctx, "owner-1", now)
	assert.Equal(t, Encode(ctx), n.ID)
	assert.Equal(t, model.NotifySwapClaimed, n.Kind)
	assert.Equal(t, "owner-1", n.Recipient)
	assert.Equal(t, "swap-7", n.SubjectID)
	assert.Equal(t, "actor-dave", n.ActorRef)
	assert.False(t, n.IsRead)
	assert.Equal(t, now, n.CreatedAt)

	// Label-bearing kinds mirror the label into the record's actor field.
	label := New(Context{Kind: model.NotifyMessageReceived, ActionLabel: "Dana M."}, "owner-1", now)
	assert.Equal(t, "Dana M.", label.ActorRef)
}
