// Package notify implements the notification event codec.
//
// The remote feed represents a notification's context as one opaque
// identifier string whose meaning depends on the notification kind:
// sometimes an actor identity to resolve against a profile, sometimes an
// already-resolved display label, sometimes several pieces of context
// packed together with literal markers. This package formalizes that as
// a single versioned, per-kind coding table with exactly one matched
// Encode/Decode pair, so no call site ever hand-rolls splitting logic.
//
// Decode never fails. Malformed or legacy-format identifiers degrade to
// a partial Context with the unrecoverable fields left empty; rendering
// a notification must never be blocked by a bad identifier.
package notify

import (
	"net/url"
	"strings"
	"time"

	"github.com/taskmate/taskmate/internal/model"
)

// versionPrefix marks identifiers produced by the current codec.
// Identifiers without it are decoded through the legacy per-kind rules.
const versionPrefix = "v1:"

// fieldSep joins escaped fields in a v1 identifier.
const fieldSep = "|"

// legacyIdentityLen is the fixed length of an actor identity segment in
// legacy identifiers that prefix the subject with the actor.
const legacyIdentityLen = 27

// legacySwapMarker is the literal separator legacy swap-claim ids used
// between subject and actor reference.
const legacySwapMarker = "_swap_"

// Context is the decoded contextual metadata of a notification
// identifier. Which fields are populated depends on Kind:
//
//   - SubjectID: the subject the event concerns, when the kind has one.
//   - ActorRef: an opaque actor identity, to be resolved against a
//     profile by the presentation layer.
//   - ActionLabel: an already-resolved human-readable label. Kinds carry
//     either ActorRef or ActionLabel, never both.
type Context struct {
	Kind        model.NotificationKind
	SubjectID   string
	ActorRef    string
	ActionLabel string
}

// fieldKind names one slot of an encoded identifier.
type fieldKind int

const (
	fieldSubject fieldKind = iota
	fieldActor
	fieldLabel
)

// layout describes the ordered fields a kind encodes.
type layout struct {
	fields []fieldKind
}

// layouts is the per-kind coding table. Every supported kind appears
// here; Encode and Decode both dispatch through it so the two directions
// cannot drift apart.
var layouts = map[model.NotificationKind]layout{
	model.NotifyEngagementReceived:  {fields: []fieldKind{fieldSubject, fieldActor}},
	model.NotifyEngagementApproved:  {fields: []fieldKind{fieldSubject, fieldActor}},
	model.NotifyEngagementRejected:  {fields: []fieldKind{fieldSubject, fieldActor}},
	model.NotifyEngagementCompleted: {fields: []fieldKind{fieldSubject, fieldActor}},
	model.NotifySwapClaimed:         {fields: []fieldKind{fieldSubject, fieldActor}},
	model.NotifySubjectReopened:     {fields: []fieldKind{fieldSubject}},
	model.NotifyMessageReceived:     {fields: []fieldKind{fieldLabel}},
}

// Encode produces the composite identifier for a notification context.
// It is the single writer-side counterpart of Decode: every new
// identifier in the system comes through here.
//
// Unknown kinds encode their subject id alone, which Decode degrades
// gracefully on.
func Encode(ctx Context) string {
	lay, ok := layouts[ctx.Kind]
	if !ok {
		lay = layout{fields: []fieldKind{fieldSubject}}
	}
	parts := make([]string, len(lay.fields))
	for i, f := range lay.fields {
		parts[i] = url.QueryEscape(ctx.value(f))
	}
	return versionPrefix + strings.Join(parts, fieldSep)
}

// Decode recovers the context packed into an identifier for a kind.
//
// Versioned identifiers are split per the coding table. Un-prefixed
// identifiers go through the legacy rules that mirror the historical
// ad hoc formats. Decode never returns an error: anything unparseable
// yields a Context with only the recoverable fields set.
func Decode(id string, kind model.NotificationKind) Context {
	ctx := Context{Kind: kind}
	if raw, ok := strings.CutPrefix(id, versionPrefix); ok {
		decodeV1(&ctx, raw)
		return ctx
	}
	decodeLegacy(&ctx, id)
	return ctx
}

func decodeV1(ctx *Context, raw string) {
	lay, ok := layouts[ctx.Kind]
	if !ok {
		lay = layout{fields: []fieldKind{fieldSubject}}
	}
	parts := strings.Split(raw, fieldSep)
	for i, f := range lay.fields {
		if i >= len(parts) {
			// Truncated identifier: remaining fields stay empty.
			return
		}
		val, err := url.QueryUnescape(parts[i])
		if err != nil {
			// Keep the raw segment rather than dropping it entirely.
			val = parts[i]
		}
		ctx.setValue(f, val)
	}
}

// decodeLegacy applies the historical per-kind splitting rules.
func decodeLegacy(ctx *Context, id string) {
	if id == "" {
		return
	}
	switch ctx.Kind {
	case model.NotifySwapClaimed:
		// "<subject>_swap_<actor>": fixed literal marker between the two.
		subject, actor, found := strings.Cut(id, legacySwapMarker)
		if found {
			ctx.SubjectID = subject
			ctx.ActorRef = actor
		} else {
			ctx.SubjectID = id
		}
	case model.NotifyEngagementReceived,
		model.NotifyEngagementApproved,
		model.NotifyEngagementRejected,
		model.NotifyEngagementCompleted:
		// "<actor><subject>" with a fixed-length identity prefix.
		if len(id) > legacyIdentityLen {
			ctx.ActorRef = id[:legacyIdentityLen]
			ctx.SubjectID = id[legacyIdentityLen:]
		} else {
			// Too short to carry both; treat the whole id as the actor.
			ctx.ActorRef = id
		}
	case model.NotifyMessageReceived:
		// The id is the resolved display label itself.
		ctx.ActionLabel = id
	default:
		ctx.SubjectID = id
	}
}

func (c *Context) value(f fieldKind) string {
	switch f {
	case fieldActor:
		return c.ActorRef
	case fieldLabel:
		return c.ActionLabel
	default:
		return c.SubjectID
	}
}

func (c *Context) setValue(f fieldKind, v string) {
	switch f {
	case fieldActor:
		c.ActorRef = v
	case fieldLabel:
		c.ActionLabel = v
	default:
		c.SubjectID = v
	}
}

// New builds a notification record for a recipient from a context,
// encoding the composite identifier and mirroring the decoded
// convenience fields onto the record.
func New(ctx Context, recipient string, now time.Time) model.Notification {
	return model.Notification{
		ID:        Encode(ctx),
		Kind:      ctx.Kind,
		Recipient: recipient,
		SubjectID: ctx.SubjectID,
		ActorRef:  actorOrLabel(ctx),
		IsRead:    false,
		CreatedAt: now,
	}
}

// actorOrLabel picks the populated actor-ish field for the record's
// ActorRef column; per-kind semantics stay explicit in Context.
func actorOrLabel(ctx Context) string {
	if ctx.ActorRef != "" {
		return ctx.ActorRef
	}
	return ctx.ActionLabel
}
