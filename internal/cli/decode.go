package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmate/taskmate/internal/model"
	"github.com/taskmate/taskmate/internal/notify"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Kind string
}

// knownKinds lists the notification kinds the codec supports.
var knownKinds = []model.NotificationKind{
	model.NotifyEngagementReceived,
	model.NotifyEngagementApproved,
	model.NotifyEngagementRejected,
	model.NotifyEngagementCompleted,
	model.NotifySwapClaimed,
	model.NotifySubjectReopened,
	model.NotifyMessageReceived,
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <notification-id>",
		Short: "Decode a notification identifier",
		Long: `Decode a notification identifier for a given kind.

The identifier's field layout depends on the kind, so --kind selects
the coding rules. Legacy identifiers without the version prefix are
decoded through the per-kind compatibility rules; unrecoverable fields
come back empty rather than failing.

Examples:
  taskmate decode "v1:task-1|actor-a" --kind engagement_received
  taskmate decode "abc123xyz..." --kind swap_claimed`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "notification kind (required)")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runDecode(opts *DecodeOptions, id string, cmd *cobra.Command) error {
	kind := model.NotificationKind(opts.Kind)
	if !isKnownKind(kind) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown kind %q: must be one of %s", opts.Kind, kindNames()))
	}

	ctx := notify.Decode(id, kind)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		data := map[string]any{"kind": string(ctx.Kind)}
		if ctx.SubjectID != "" {
			data["subject"] = ctx.SubjectID
		}
		if ctx.ActorRef != "" {
			data["actor_ref"] = ctx.ActorRef
		}
		if ctx.ActionLabel != "" {
			data["action_label"] = ctx.ActionLabel
		}
		return formatter.Success(data)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Kind:         %s\n", ctx.Kind)
	fmt.Fprintf(w, "Subject:      %s\n", valueOrDash(ctx.SubjectID))
	fmt.Fprintf(w, "Actor ref:    %s\n", valueOrDash(ctx.ActorRef))
	fmt.Fprintf(w, "Action label: %s\n", valueOrDash(ctx.ActionLabel))
	return nil
}

func isKnownKind(kind model.NotificationKind) bool {
	for _, k := range knownKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func kindNames() string {
	names := make([]string, len(knownKinds))
	for i, k := range knownKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
