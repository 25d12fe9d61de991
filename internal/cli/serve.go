package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskmate/taskmate/internal/harness"
	"github.com/taskmate/taskmate/internal/remote"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
	Seed string
}

// seedFile is the YAML shape of a --seed file: the subjects section of a
// scenario, without the flow.
type seedFile struct {
	Subjects []harness.SubjectSeed `yaml:"subjects"`
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference remote store",
		Long: `Run the in-memory reference remote store over HTTP.

The server exposes the subjects, engagements, and notifications feeds
plus the engagement transition endpoints, with first-commit-wins
arbitration and idempotency-key replay.

Example:
  taskmate serve --addr :8080
  taskmate serve --addr :8080 --seed ./subjects.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file of subjects to seed the store with")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	mem := remote.NewMemory()
	if opts.Seed != "" {
		n, err := seedStore(mem, opts.Seed)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to seed store", err)
		}
		slog.Info("store seeded", "file", opts.Seed, "subjects", n)
	}

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: remote.NewServer(mem),
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	}()

	slog.Info("server starting", "addr", opts.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "Remote store listening on %s. Press Ctrl-C to stop.\n", opts.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// seedStore loads subjects from a YAML file into the store. Returns the
// number of subjects added.
func seedStore(mem *remote.Memory, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var seeds seedFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&seeds); err != nil {
		return 0, fmt.Errorf("failed to parse seed file: %w", err)
	}
	now := time.Now().UTC()
	for _, seed := range seeds.Subjects {
		if seed.ID == "" || seed.Kind == "" || seed.Owner == "" {
			return 0, fmt.Errorf("subject %q: id, kind, and owner are required", seed.ID)
		}
		subj, err := harness.SubjectFromSeed(seed, now)
		if err != nil {
			return 0, err
		}
		mem.AddSubject(subj)
	}
	return len(seeds.Subjects), nil
}

// configureLogging sets the default slog handler based on the verbose
// flag.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
