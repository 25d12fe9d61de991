package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/taskmate/taskmate/internal/canon"
)

// toCanonicalMap converts a trace to plain maps for canonical JSON
// serialization. Empty fields are omitted so the golden stays readable.
func toCanonicalMap(name string, trace []TraceEvent) map[string]any {
	events := make([]any, len(trace))
	for i, event := range trace {
		m := map[string]any{
			"seq":     event.Seq,
			"op":      event.Op,
			"actor":   event.Actor,
			"outcome": event.Outcome,
		}
		if event.Subject != "" {
			m["subject"] = event.Subject
		}
		if event.Engagement != "" {
			m["engagement"] = event.Engagement
		}
		if event.Notification != "" {
			m["notification"] = event.Notification
		}
		events[i] = m
	}
	return map[string]any{
		"scenario_name": name,
		"trace":         events,
	}
}

// RunWithGolden executes a scenario, fails the test on any expectation
// mismatch, and compares the canonical trace against the golden file in
// testdata/golden/{scenario.Name}.golden.
//
// Regenerate goldens with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s failed to run: %v", scenario.Name, err)
	}
	for _, msg := range result.Errors {
		t.Errorf("scenario %s: %s", scenario.Name, msg)
	}

	traceJSON, err := canon.Marshal(toCanonicalMap(scenario.Name, result.Trace))
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
}
