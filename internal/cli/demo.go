package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/remote"
	"github.com/taskmate/taskmate/internal/store"
	enginesync "github.com/taskmate/taskmate/internal/sync"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	URL     string
	Subject string
	Owner   string
	Actor   string
	Cache   string
}

// demoStep is one executed action in the demo flow.
type demoStep struct {
	Step    string `json:"step"`
	Actor   string `json:"actor"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted engagement flow",
		Long: `Run a scripted engagement flow and print each step's outcome.

Without --url the flow runs against an embedded in-memory store seeded
with one swap subject. With --url it runs against a remote store, which
must already hold the subject (see 'taskmate serve --seed').

The flow: the actor claims a slot, the owner approves and completes the
engagement, then a second claim attempt shows the closed-subject
rejection.

Examples:
  taskmate demo
  taskmate demo --url http://localhost:8080 --subject demo-swap`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "remote store URL (empty runs an embedded store)")
	cmd.Flags().StringVar(&opts.Subject, "subject", "demo-swap", "subject id the flow acts on")
	cmd.Flags().StringVar(&opts.Owner, "owner", "demo-owner", "subject owner identity")
	cmd.Flags().StringVar(&opts.Actor, "actor", "demo-actor", "engaging actor identity")
	cmd.Flags().StringVar(&opts.Cache, "cache", ":memory:", "path to the actor's local cache database")

	return cmd
}

func runDemo(opts *DemoOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	var rs remote.Store
	if opts.URL != "" {
		rs = remote.NewClient(opts.URL)
	} else {
		mem := remote.NewMemory()
		subj := &model.Subject{
			ID:        opts.Subject,
			Kind:      model.KindSwap,
			Owner:     opts.Owner,
			Title:     "Demo shift swap",
			Status:    model.SubjectOpen,
			Calendar:  demoCalendar(time.Now()),
			CreatedAt: time.Now().UTC(),
		}
		mem.AddSubject(subj)
		rs = mem
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	steps, err := runDemoFlow(ctx, rs, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "demo flow failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"subject": opts.Subject, "steps": steps})
	}
	for i, step := range steps {
		line := fmt.Sprintf("%d. [%s] %s: %s", i+1, step.Actor, step.Step, step.Outcome)
		if step.Detail != "" {
			line += " (" + step.Detail + ")"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// runDemoFlow executes the scripted flow and returns the step outcomes.
// Only setup failures are returned as errors; rejected actions are part
// of the trace.
func runDemoFlow(ctx context.Context, rs remote.Store, opts *DemoOptions) ([]demoStep, error) {
	actorCoord, actorClose, err := demoCoordinator(rs, opts.Actor, opts.Cache)
	if err != nil {
		return nil, err
	}
	defer actorClose()
	ownerCoord, ownerClose, err := demoCoordinator(rs, opts.Owner, ":memory:")
	if err != nil {
		return nil, err
	}
	defer ownerClose()

	refresh := func(c *enginesync.Coordinator) error {
		for _, view := range store.AllViews {
			if err := c.Refresh(ctx, view); err != nil {
				return err
			}
		}
		return nil
	}

	subj, err := rs.GetSubject(ctx, opts.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", opts.Subject, err)
	}
	var slot *model.SlotRef
	if subj.Calendar != nil {
		for ref := range subj.Calendar.Enumerate(time.Now()) {
			slot = &ref
			break
		}
	}

	var steps []demoStep
	record := func(step, actor string, detail string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = err.Error()
			if code := model.CodeOf(err); code != "" {
				outcome = string(code)
			}
		}
		steps = append(steps, demoStep{Step: step, Actor: actor, Outcome: outcome, Detail: detail})
	}

	if err := refresh(actorCoord); err != nil {
		return nil, err
	}
	detail := ""
	if slot != nil {
		detail = slot.String()
	}
	record("create engagement", opts.Actor, detail, actorCoord.CreateEngagement(ctx, opts.Subject, slot, "demo claim"))

	engagementID, err := pendingEngagement(ctx, rs, opts.Subject)
	if err != nil {
		return nil, err
	}

	if err := refresh(ownerCoord); err != nil {
		return nil, err
	}
	record("approve engagement", opts.Owner, engagementID, ownerCoord.ApproveEngagement(ctx, opts.Subject, engagementID))

	if err := refresh(ownerCoord); err != nil {
		return nil, err
	}
	record("complete engagement", opts.Owner, engagementID, ownerCoord.CompleteEngagement(ctx, opts.Subject, engagementID))

	// A swap closes on completion, so a second claim is rejected.
	if err := refresh(actorCoord); err != nil {
		return nil, err
	}
	record("create on closed subject", opts.Actor, "", actorCoord.CreateEngagement(ctx, opts.Subject, slot, "too late"))

	feed, err := rs.GetNotifications(ctx, opts.Actor)
	if err != nil {
		return nil, err
	}
	record("read feed", opts.Actor, fmt.Sprintf("%d notifications", len(feed)), nil)

	return steps, nil
}

// demoCoordinator builds a coordinator over its own local cache.
func demoCoordinator(rs remote.Store, user, path string) (*enginesync.Coordinator, func(), error) {
	local, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache for %s: %w", user, err)
	}
	return enginesync.NewCoordinator(local, rs, user), func() { local.Close() }, nil
}

// pendingEngagement returns the id of the subject's pending engagement.
func pendingEngagement(ctx context.Context, rs remote.Store, subjectID string) (string, error) {
	engs, err := rs.GetEngagements(ctx, subjectID)
	if err != nil {
		return "", err
	}
	for _, eng := range engs {
		if eng.Status == model.EngagementPending {
			return eng.ID, nil
		}
	}
	return "", fmt.Errorf("no pending engagement on %s", subjectID)
}

// demoCalendar builds a one-day calendar starting the day after now.
func demoCalendar(now time.Time) *model.Calendar {
	return &model.Calendar{
		Dates: []model.Day{model.DayOf(now.AddDate(0, 0, 1))},
		Slots: []model.Slot{
			{Start: 9 * 60, End: 10 * 60},
			{Start: 10 * 60, End: 11 * 60},
		},
	}
}
