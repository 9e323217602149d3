package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/joaolima7/geosegbar/internal/history"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Step, event.Action, event.Reading, event.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs all assertions and returns the failure messages.
func EvaluateAssertions(ctx context.Context, st *store.Store, result *Result, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, a)
		case AssertReadingCount:
			err = assertReadingCount(ctx, st, a)
		case AssertHistoryCount:
			err = assertHistoryCount(ctx, st, a)
		case AssertAuditCount:
			err = assertAuditCount(ctx, st, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return msgs
}

// assertOutcomeCount checks how many steps ended with the given outcome.
func assertOutcomeCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Outcome == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d steps with outcome %s", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d steps", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertReadingCount(ctx context.Context, st *store.Store, a Assertion) error {
	readings, err := st.ReadingsForInstrument(ctx, a.Instrument, a.IncludeInactive)
	if err != nil {
		return err
	}
	if len(readings) != a.Count {
		return &AssertionError{
			Type:     AssertReadingCount,
			Expected: fmt.Sprintf("%d readings of instrument %d", a.Count, a.Instrument),
			Actual:   fmt.Sprintf("%d readings", len(readings)),
		}
	}
	return nil
}

func assertHistoryCount(ctx context.Context, st *store.Store, a Assertion) error {
	q := history.Query{
		InstrumentID:    a.Instrument,
		OutputIDs:       a.Outputs,
		IncludeInactive: a.IncludeInactive,
	}
	for _, s := range a.Statuses {
		status, err := model.ParseLimitStatus(s)
		if err != nil {
			return err
		}
		q.Statuses = append(q.Statuses, status)
	}

	points, err := st.ReadOutputSeries(ctx, q)
	if err != nil {
		return err
	}
	if len(points) != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d history points of instrument %d (outputs %v, statuses %v)", a.Count, a.Instrument, a.Outputs, a.Statuses),
			Actual:   fmt.Sprintf("%d points", len(points)),
		}
	}
	return nil
}

func assertAuditCount(ctx context.Context, st *store.Store, a Assertion) error {
	entries, err := st.ReadAudit(ctx, a.Reading)
	if err != nil {
		return err
	}
	if len(entries) != a.Count {
		return &AssertionError{
			Type:     AssertAuditCount,
			Expected: fmt.Sprintf("%d audit rows for reading %s", a.Count, a.Reading),
			Actual:   fmt.Sprintf("%d rows", len(entries)),
		}
	}
	return nil
}
