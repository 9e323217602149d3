package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gaugeConfig = `
instrument: RG01: {
	id: 5
	input: H: {id: 50}
	output: LEVEL: {
		id:        51
		equation:  "H * 10"
		precision: 1
		deterministic: {id: 52, attention: 20, alert: 10, direction: "DESCENDING"}
	}
}
`

func gaugeScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:        "gauge",
		Description: "reservoir gauge",
		Config:      gaugeConfig,
		Steps:       steps,
	}
}

func submitH(at string, h float64) *SubmitStep {
	return &SubmitStep{Instrument: 5, At: at, Inputs: map[string]float64{"H": h}}
}

func TestRun_DescendingLimit(t *testing.T) {
	scenario := gaugeScenario(
		Step{Submit: submitH("2024-05-01T00:00:00Z", 3), Expect: &ExpectClause{
			Outcome: OutcomePersisted,
			Outputs: map[string]ExpectedOutput{"LEVEL": {Value: ptr(30.0), Status: "NORMAL"}},
		}},
		Step{Submit: submitH("2024-05-02T00:00:00Z", 1.5), Expect: &ExpectClause{
			Outcome: OutcomePersisted,
			Outputs: map[string]ExpectedOutput{"LEVEL": {Value: ptr(15.0), Status: "ATTENTION"}},
		}},
		Step{Submit: submitH("2024-05-03T00:00:00Z", 0.5), Expect: &ExpectClause{
			Outcome: OutcomePersisted,
			Outputs: map[string]ExpectedOutput{"LEVEL": {Value: ptr(5.0), Status: "ALERTA"}},
		}},
	)
	scenario.Assertions = []Assertion{
		{Type: AssertReadingCount, Instrument: 5, Count: 3},
		{Type: AssertHistoryCount, Instrument: 5, Statuses: []string{"ATTENTION", "ALERT"}, Count: 2},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "reading-0003", result.Trace[2].Reading)
}

func TestRun_ExpectationMismatchFailsResult(t *testing.T) {
	scenario := gaugeScenario(
		Step{Submit: submitH("2024-05-01T00:00:00Z", 3), Expect: &ExpectClause{
			Outcome: OutcomePersisted,
			Outputs: map[string]ExpectedOutput{
				"LEVEL":   {Value: ptr(31.0), Status: "ALERT"},
				"MISSING": {},
			},
		}},
		Step{Submit: &SubmitStep{Instrument: 5, At: "2024-05-01T00:00:00Z"}, Expect: &ExpectClause{
			Outcome: OutcomePersisted,
		}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"step 1 (submit): output LEVEL: expected value 31, got 30",
		"step 1 (submit): output LEVEL: expected status ALERT, got \"NORMAL\"",
		"step 1 (submit): output MISSING: not computed",
		"step 2 (submit): expected outcome persisted, got rejected: MISSING_INPUT: required inputs not submitted [H] (instrument=5)",
	}, result.Errors)
}

func TestRun_AssertionFailure(t *testing.T) {
	scenario := gaugeScenario(
		Step{Submit: submitH("2024-05-01T00:00:00Z", 3)},
	)
	scenario.Assertions = []Assertion{
		{Type: AssertOutcomeCount, Outcome: OutcomeRejected, Count: 1},
		{Type: AssertAuditCount, Reading: "reading-0001", Count: 0},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 0: Assertion failed: outcome_count")
	assert.Contains(t, result.Errors[0], "Expected: 1 steps with outcome rejected")
	assert.Contains(t, result.Errors[0], "[1] submit reading-0001 persisted")
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad",
		Description: "bad",
		Config: `
instrument: X: {
	id: 1
	input: A: {id: 1}
	output: B: {id: 2, equation: "A + Q", precision: 1}
}
`,
		Steps: []Step{{Configure: "x"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "E203")
}

func TestRun_ConfigureRejectsInvalidConfig(t *testing.T) {
	scenario := gaugeScenario(
		Step{Configure: `instrument: RG01: {id: 5, output: LEVEL: {id: 51, equation: "H * 10", precision: 1}}`,
			Expect: &ExpectClause{Outcome: OutcomeError}},
		Step{Submit: submitH("2024-05-01T00:00:00Z", 1), Expect: &ExpectClause{Outcome: OutcomePersisted}},
	)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[0].Message, "E203")
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertReadingCount,
		Expected: "2 readings of instrument 1",
		Actual:   "1 readings",
	}
	assert.Equal(t, "Assertion failed: reading_count\n  Expected: 2 readings of instrument 1\n  Actual: 1 readings\n", err.Error())
}

func ptr(v float64) *float64 { return &v }
