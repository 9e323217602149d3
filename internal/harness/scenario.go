package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joaolima7/geosegbar/internal/model"
)

// Scenario defines an end-to-end reading scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ConfigFiles lists CUE instrument configuration files.
	// LoadScenario resolves them relative to the scenario file.
	ConfigFiles []string `yaml:"config_files,omitempty"`

	// Config is inline CUE instrument configuration.
	Config string `yaml:"config,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operation. Exactly one action field must be set.
type Step struct {
	Submit     *SubmitStep  `yaml:"submit,omitempty"`
	Configure  string       `yaml:"configure,omitempty"`
	Reprocess  *ReadingStep `yaml:"reprocess,omitempty"`
	Invalidate *ReadingStep `yaml:"invalidate,omitempty"`
	Restore    *ReadingStep `yaml:"restore,omitempty"`
	Comment    *ReadingStep `yaml:"comment,omitempty"`

	// Expect validates the step outcome. If nil, any outcome is accepted.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Action names the operation of the step.
func (s Step) Action() string {
	switch {
	case s.Submit != nil:
		return "submit"
	case s.Configure != "":
		return "configure"
	case s.Reprocess != nil:
		return "reprocess"
	case s.Invalidate != nil:
		return "invalidate"
	case s.Restore != nil:
		return "restore"
	case s.Comment != nil:
		return "comment"
	default:
		return ""
	}
}

func (s Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Submit != nil, s.Configure != "", s.Reprocess != nil,
		s.Invalidate != nil, s.Restore != nil, s.Comment != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// SubmitStep is a measurement submission.
type SubmitStep struct {
	Instrument int64              `yaml:"instrument"`
	At         string             `yaml:"at"` // RFC 3339
	Inputs     map[string]float64 `yaml:"inputs"`
	Author     *int64             `yaml:"author,omitempty"`
	Comment    string             `yaml:"comment,omitempty"`
}

// Submission converts the step into an engine submission. Inputs are
// ordered by acronym.
func (s *SubmitStep) Submission() (model.Submission, error) {
	at, err := time.Parse(time.RFC3339Nano, s.At)
	if err != nil {
		return model.Submission{}, fmt.Errorf("at: %w", err)
	}
	sub := model.Submission{
		InstrumentID: s.Instrument,
		MeasuredAt:   at,
		AuthorID:     s.Author,
		Comment:      s.Comment,
	}
	for _, acronym := range sortedKeys(s.Inputs) {
		sub.Inputs = append(sub.Inputs, model.ReadingInputValue{Acronym: acronym, Value: s.Inputs[acronym]})
	}
	return sub, nil
}

// ReadingStep targets a stored reading.
type ReadingStep struct {
	Reading string `yaml:"reading"`
	Actor   *int64 `yaml:"actor,omitempty"`
	Reason  string `yaml:"reason,omitempty"`
	Text    string `yaml:"text,omitempty"` // comment steps only
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is one of persisted, partial, rejected, applied, error.
	Outcome string `yaml:"outcome"`

	// Code is the expected rejection code (rejected outcomes only).
	Code string `yaml:"code,omitempty"`

	// Outputs are expected output values keyed by output acronym.
	// Subset match: outputs not listed are not checked.
	Outputs map[string]ExpectedOutput `yaml:"outputs,omitempty"`
}

// ExpectedOutput is the expected state of one output.
type ExpectedOutput struct {
	Value  *float64 `yaml:"value,omitempty"`
	Status string   `yaml:"status,omitempty"`
	Error  string   `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final store state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "outcome_count": steps with Outcome occur exactly Count times
	// - "reading_count": Instrument has Count stored readings
	// - "history_count": a history query returns Count points
	// - "audit_count": Reading has Count audit rows
	Type string `yaml:"type"`

	Outcome         string   `yaml:"outcome,omitempty"`
	Instrument      int64    `yaml:"instrument,omitempty"`
	Outputs         []int64  `yaml:"outputs,omitempty"`
	Statuses        []string `yaml:"statuses,omitempty"`
	IncludeInactive bool     `yaml:"include_inactive,omitempty"`
	Reading         string   `yaml:"reading,omitempty"`
	Count           int      `yaml:"count"`
}

// Assertion type constants.
const (
	AssertOutcomeCount = "outcome_count"
	AssertReadingCount = "reading_count"
	AssertHistoryCount = "history_count"
	AssertAuditCount   = "audit_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Config file paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.ConfigFiles {
		if !filepath.IsAbs(p) {
			scenario.ConfigFiles[i] = filepath.Join(base, p)
		}
	}
	for _, p := range scenario.ConfigFiles {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: config file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
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
	if len(s.ConfigFiles) == 0 && s.Config == "" {
		return fmt.Errorf("config or config_files is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if n := step.actionCount(); n != 1 {
		return fmt.Errorf("exactly one action is required, got %d", n)
	}
	switch {
	case step.Submit != nil:
		if step.Submit.Instrument <= 0 {
			return fmt.Errorf("submit: instrument is required")
		}
		if step.Submit.At == "" {
			return fmt.Errorf("submit: at is required")
		}
	case step.Reprocess != nil:
		if step.Reprocess.Reading == "" {
			return fmt.Errorf("reprocess: reading is required")
		}
	case step.Invalidate != nil:
		if step.Invalidate.Reading == "" {
			return fmt.Errorf("invalidate: reading is required")
		}
	case step.Restore != nil:
		if step.Restore.Reading == "" {
			return fmt.Errorf("restore: reading is required")
		}
	case step.Comment != nil:
		if step.Comment.Reading == "" {
			return fmt.Errorf("comment: reading is required")
		}
	}

	if step.Expect == nil {
		return nil
	}
	switch step.Expect.Outcome {
	case OutcomePersisted, OutcomePartial, OutcomeRejected, OutcomeApplied, OutcomeError:
	default:
		return fmt.Errorf("expect: unknown outcome %q", step.Expect.Outcome)
	}
	if step.Expect.Code != "" && step.Expect.Outcome != OutcomeRejected {
		return fmt.Errorf("expect: code is only valid for rejected outcomes")
	}
	for acronym, out := range step.Expect.Outputs {
		if out.Status != "" {
			if _, err := model.ParseLimitStatus(out.Status); err != nil {
				return fmt.Errorf("expect.outputs.%s: %w", acronym, err)
			}
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(a Assertion) error {
	if a.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	switch a.Type {
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("outcome is required for outcome_count")
		}
	case AssertReadingCount, AssertHistoryCount:
		if a.Instrument <= 0 {
			return fmt.Errorf("instrument is required for %s", a.Type)
		}
		for _, s := range a.Statuses {
			if _, err := model.ParseLimitStatus(s); err != nil {
				return err
			}
		}
	case AssertAuditCount:
		if a.Reading == "" {
			return fmt.Errorf("reading is required for audit_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
