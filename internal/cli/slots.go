package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskmate/taskmate/internal/model"
)

// SlotsOptions holds flags for the slots command.
type SlotsOptions struct {
	*RootOptions
	At string
}

// calendarFile is the YAML shape of a calendar definition.
type calendarFile struct {
	Dates []string `yaml:"dates"`
	Slots []string `yaml:"slots"`
}

// NewSlotsCommand creates the slots command.
func NewSlotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SlotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "slots <calendar-file>",
		Short: "Enumerate bookable slots from a calendar file",
		Long: `Enumerate the free (date, slot) pairs of a calendar YAML file.

The file lists candidate dates and daily time slots; every combination
with a start in the future is bookable. Output order is deterministic:
by date, then by slot start.

Calendar file format:
  dates: ["2026-09-05", "2026-09-06"]
  slots: ["09:00-10:00", "10:00-11:00"]

Examples:
  taskmate slots ./calendar.yaml
  taskmate slots ./calendar.yaml --at 2026-09-01T00:00:00Z`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlots(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "reference instant as RFC 3339 (default now)")

	return cmd
}

func runSlots(opts *SlotsOptions, path string, cmd *cobra.Command) error {
	now := time.Now()
	if opts.At != "" {
		parsed, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at instant", err)
		}
		now = parsed
	}

	cal, err := loadCalendar(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load calendar", err)
	}

	var refs []model.SlotRef
	for ref := range cal.Enumerate(now) {
		refs = append(refs, ref)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		pairs := make([]map[string]string, len(refs))
		for i, ref := range refs {
			pairs[i] = map[string]string{
				"day":  ref.Day.String(),
				"slot": ref.Slot.String(),
			}
		}
		return formatter.Success(map[string]any{"count": len(refs), "slots": pairs})
	}

	w := cmd.OutOrStdout()
	if len(refs) == 0 {
		fmt.Fprintln(w, "No bookable slots.")
		return nil
	}
	for _, ref := range refs {
		fmt.Fprintln(w, ref.String())
	}
	fmt.Fprintf(w, "%d bookable slot(s)\n", len(refs))
	return nil
}

// loadCalendar reads a calendar YAML file into a Calendar.
func loadCalendar(path string) (*model.Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file calendarFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cal := &model.Calendar{}
	for _, raw := range file.Dates {
		day, err := model.ParseDay(raw)
		if err != nil {
			return nil, err
		}
		cal.AddDate(day)
	}
	for _, raw := range file.Slots {
		slot, err := model.ParseSlot(raw)
		if err != nil {
			return nil, err
		}
		if err := cal.AddSlot(slot); err != nil {
			return nil, err
		}
	}
	return cal, nil
}
