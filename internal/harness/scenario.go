package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one lifecycle conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Subjects seeds the authoritative store before the flow runs.
	Subjects []SubjectSeed `yaml:"subjects"`

	// Flow is the ordered list of user actions to perform.
	Flow []FlowStep `yaml:"flow"`

	// Assert validates the final state after the flow completes.
	Assert Assertions `yaml:"assert"`
}

// SubjectSeed describes an initial subject.
type SubjectSeed struct {
	ID    string `yaml:"id"`
	Kind  string `yaml:"kind"`
	Owner string `yaml:"owner"`
	Title string `yaml:"title,omitempty"`

	// Dates and Slots populate an availability calendar. Both empty
	// means the subject has no calendar.
	Dates []string `yaml:"dates,omitempty"`
	Slots []string `yaml:"slots,omitempty"`
}

// FlowStep is one user action.
type FlowStep struct {
	// Op is the action: create, approve, reject, complete, revert,
	// mark_read, or clear.
	Op string `yaml:"op"`

	// Actor is the user performing the action. Each actor gets its own
	// coordinator and local cache.
	Actor string `yaml:"actor"`

	// Subject names the target subject (engagement ops).
	Subject string `yaml:"subject,omitempty"`

	// Engagement names the target engagement (approve, reject,
	// complete, revert). Deterministic ids: eng-1, eng-2, in creation
	// order.
	Engagement string `yaml:"engagement,omitempty"`

	// Slot optionally selects a (day, slot) pair for create, as
	// "2006-01-02 15:04-15:04".
	Slot string `yaml:"slot,omitempty"`

	// Note is the optional engagement note for create.
	Note string `yaml:"note,omitempty"`

	// Notification names the target notification id (mark_read, clear).
	Notification string `yaml:"notification,omitempty"`

	// Expect is the expected outcome: ok, validation, conflict,
	// stale_state, not_found, or network.
	Expect string `yaml:"expect"`
}

// Assertions validates final state. All sections are subset matches:
// only the listed records are checked, by id.
type Assertions struct {
	Subjects      []SubjectExpect      `yaml:"subjects,omitempty"`
	Engagements   []EngagementExpect   `yaml:"engagements,omitempty"`
	Notifications []NotificationExpect `yaml:"notifications,omitempty"`
}

// SubjectExpect asserts one subject's final status.
type SubjectExpect struct {
	ID     string `yaml:"id"`
	Status string `yaml:"status"`
}

// EngagementExpect asserts one engagement's final status.
type EngagementExpect struct {
	ID     string `yaml:"id"`
	Status string `yaml:"status"`
}

// NotificationExpect asserts one notification exists in a recipient's
// feed.
type NotificationExpect struct {
	Recipient string `yaml:"recipient"`
	Kind      string `yaml:"kind"`
	SubjectID string `yaml:"subject,omitempty"`
	ActorRef  string `yaml:"actor_ref,omitempty"`
	IsRead    bool   `yaml:"is_read,omitempty"`
}

// Known step ops and outcomes.
var (
	knownOps = map[string]bool{
		"create": true, "approve": true, "reject": true,
		"complete": true, "revert": true,
		"mark_read": true, "clear": true,
	}
	knownOutcomes = map[string]bool{
		"ok": true, "validation": true, "conflict": true,
		"stale_state": true, "not_found": true, "network": true,
	}
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo in a scenario fails loudly instead of silently
// relaxing the test.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Subjects) == 0 {
		return fmt.Errorf("subjects list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, seed := range s.Subjects {
		if seed.ID == "" {
			return fmt.Errorf("subjects[%d]: id is required", i)
		}
		if seed.Kind == "" {
			return fmt.Errorf("subjects[%d]: kind is required", i)
		}
		if seed.Owner == "" {
			return fmt.Errorf("subjects[%d]: owner is required", i)
		}
	}

	for i, step := range s.Flow {
		if !knownOps[step.Op] {
			return fmt.Errorf("flow[%d]: unknown op %q", i, step.Op)
		}
		if step.Actor == "" {
			return fmt.Errorf("flow[%d]: actor is required", i)
		}
		if step.Expect == "" {
			return fmt.Errorf("flow[%d]: expect is required", i)
		}
		if !knownOutcomes[step.Expect] {
			return fmt.Errorf("flow[%d]: unknown outcome %q", i, step.Expect)
		}
		switch step.Op {
		case "create":
			if step.Subject == "" {
				return fmt.Errorf("flow[%d]: subject is required for create", i)
			}
		case "approve", "reject", "complete", "revert":
			if step.Subject == "" || step.Engagement == "" {
				return fmt.Errorf("flow[%d]: subject and engagement are required for %s", i, step.Op)
			}
		case "mark_read", "clear":
			if step.Notification == "" {
				return fmt.Errorf("flow[%d]: notification is required for %s", i, step.Op)
			}
		}
	}
	return nil
}
