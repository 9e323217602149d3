package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/joaolima7/geosegbar/internal/model"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Empty optional fields are omitted.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":    event.Step,
			"action":  event.Action,
			"outcome": event.Outcome,
		}
		if event.Reading != "" {
			eventMap["reading"] = event.Reading
		}
		if event.Code != "" {
			eventMap["code"] = event.Code
		}
		if len(event.Outputs) > 0 {
			outputs := make([]any, len(event.Outputs))
			for j, out := range event.Outputs {
				outMap := map[string]any{
					"output_id": out.OutputID,
					"acronym":   out.Acronym,
				}
				if out.Value != nil {
					outMap["value"] = *out.Value
				}
				if out.Status != "" {
					outMap["status"] = out.Status
				}
				if out.Error != "" {
					outMap["error"] = out.Error
				}
				outputs[j] = outMap
			}
			eventMap["outputs"] = outputs
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// Snapshot serializes the trace of a result as canonical JSON.
// Rejection messages are left out; the code identifies the rejection.
func Snapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace}
	return model.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
