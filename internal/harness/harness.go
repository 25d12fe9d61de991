package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
	enginesync "github.com/taskmate/taskmate/internal/sync"
	"github.com/taskmate/taskmate/internal/testutil"
)

// scenarioEpoch is the fixed wall-clock start of every run. Scenario
// calendars use dates after this instant so enumeration never filters
// them out.
var scenarioEpoch = time.Date(2026, time.August, 1, 9, 0, 0, 0, time.UTC)

// TraceEvent records one executed flow step and its outcome.
type TraceEvent struct {
	Seq          int
	Op           string
	Actor        string
	Subject      string
	Engagement   string
	Notification string
	Outcome      string
}

// Result holds the trace and any expectation failures of a run.
type Result struct {
	Trace  []TraceEvent
	Errors []string
}

// Passed reports whether every step and assertion held.
func (r *Result) Passed() bool { return len(r.Errors) == 0 }

// AddError records one expectation failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// actorStack is one user's coordinator and private cache.
type actorStack struct {
	coord *enginesync.Coordinator
	local *store.Store
}

// Harness executes scenarios against a fresh stack per run.
type Harness struct {
	clock  *testutil.DeterministicClock
	mem    *remote.Memory
	actors map[string]*actorStack
	keys   *testutil.FixedIDGenerator
}

// Run executes a scenario and returns its result.
//
// Each run gets a fresh in-memory authoritative store, a frozen clock,
// and sequential id generators, so two runs of the same scenario
// produce identical traces. Execution errors (as opposed to expectation
// failures) abort the run.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock(scenarioEpoch)
	h := &Harness{
		clock: clock,
		mem: remote.NewMemory(
			remote.WithClock(clock.Now),
			remote.WithIDGenerator(testutil.NewFixedIDGenerator("eng")),
		),
		actors: make(map[string]*actorStack),
		keys:   testutil.NewFixedIDGenerator("key"),
	}
	defer h.closeActors()

	if err := h.seed(scenario.Subjects); err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := &Result{}
	for i, step := range scenario.Flow {
		h.clock.Advance(time.Second)
		event, err := h.executeStep(ctx, i+1, step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		result.Trace = append(result.Trace, event)
		if event.Outcome != step.Expect {
			result.AddError("flow[%d] %s: outcome %s, want %s", i, step.Op, event.Outcome, step.Expect)
		}
	}

	h.evaluateAssertions(ctx, scenario.Assert, result)
	return result, nil
}

// seed loads the scenario's subjects into the authoritative store.
func (h *Harness) seed(seeds []SubjectSeed) error {
	for _, seed := range seeds {
		subj, err := SubjectFromSeed(seed, h.clock.Now())
		if err != nil {
			return err
		}
		h.mem.AddSubject(subj)
	}
	return nil
}

// SubjectFromSeed builds an open subject from a seed definition.
func SubjectFromSeed(seed SubjectSeed, now time.Time) (*model.Subject, error) {
	subj := &model.Subject{
		ID:        seed.ID,
		Kind:      model.SubjectKind(seed.Kind),
		Owner:     seed.Owner,
		Title:     seed.Title,
		Status:    model.SubjectOpen,
		CreatedAt: now,
	}
	if len(seed.Dates) == 0 && len(seed.Slots) == 0 {
		return subj, nil
	}
	cal := &model.Calendar{}
	for _, raw := range seed.Dates {
		day, err := model.ParseDay(raw)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", seed.ID, err)
		}
		cal.AddDate(day)
	}
	for _, raw := range seed.Slots {
		slot, err := model.ParseSlot(raw)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", seed.ID, err)
		}
		if err := cal.AddSlot(slot); err != nil {
			return nil, fmt.Errorf("subject %s: %w", seed.ID, err)
		}
	}
	subj.Calendar = cal
	return subj, nil
}

// stackFor returns the actor's coordinator, creating the stack on first
// use.
func (h *Harness) stackFor(actor string) (*actorStack, error) {
	if stack, ok := h.actors[actor]; ok {
		return stack, nil
	}
	local, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open cache for %s: %w", actor, err)
	}
	stack := &actorStack{
		local: local,
		coord: enginesync.NewCoordinator(local, h.mem, actor,
			enginesync.WithClock(h.clock.Now),
			enginesync.WithKeyGenerator(h.keys.NewID),
		),
	}
	h.actors[actor] = stack
	return stack, nil
}

func (h *Harness) closeActors() {
	for _, stack := range h.actors {
		stack.local.Close()
	}
}

// executeStep refreshes the actor's views and performs one action.
func (h *Harness) executeStep(ctx context.Context, seq int, step FlowStep) (TraceEvent, error) {
	stack, err := h.stackFor(step.Actor)
	if err != nil {
		return TraceEvent{}, err
	}
	for _, view := range store.AllViews {
		if err := stack.coord.Refresh(ctx, view); err != nil {
			return TraceEvent{}, fmt.Errorf("refresh %s: %w", view, err)
		}
	}

	var opErr error
	switch step.Op {
	case "create":
		var ref *model.SlotRef
		if step.Slot != "" {
			parsed, err := parseSlotRef(step.Slot)
			if err != nil {
				return TraceEvent{}, err
			}
			ref = &parsed
		}
		opErr = stack.coord.CreateEngagement(ctx, step.Subject, ref, step.Note)
	case "approve":
		opErr = stack.coord.ApproveEngagement(ctx, step.Subject, step.Engagement)
	case "reject":
		opErr = stack.coord.RejectEngagement(ctx, step.Subject, step.Engagement)
	case "complete":
		opErr = stack.coord.CompleteEngagement(ctx, step.Subject, step.Engagement)
	case "revert":
		opErr = stack.coord.RevertEngagement(ctx, step.Subject, step.Engagement)
	case "mark_read":
		opErr = stack.coord.MarkNotificationRead(ctx, step.Notification)
	case "clear":
		opErr = stack.coord.ClearNotification(ctx, step.Notification)
	default:
		return TraceEvent{}, fmt.Errorf("unknown op %q", step.Op)
	}

	return TraceEvent{
		Seq:          seq,
		Op:           step.Op,
		Actor:        step.Actor,
		Subject:      step.Subject,
		Engagement:   step.Engagement,
		Notification: step.Notification,
		Outcome:      outcomeOf(opErr),
	}, nil
}

// outcomeOf maps an action error onto the scenario outcome vocabulary.
func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if code := model.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// parseSlotRef parses "2006-01-02 15:04-15:04".
func parseSlotRef(raw string) (model.SlotRef, error) {
	dayPart, slotPart, found := strings.Cut(raw, " ")
	if !found {
		return model.SlotRef{}, fmt.Errorf("invalid slot ref %q, want \"DATE HH:MM-HH:MM\"", raw)
	}
	day, err := model.ParseDay(dayPart)
	if err != nil {
		return model.SlotRef{}, err
	}
	slot, err := model.ParseSlot(slotPart)
	if err != nil {
		return model.SlotRef{}, err
	}
	return model.SlotRef{Day: day, Slot: slot}, nil
}
