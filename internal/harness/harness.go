package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/joaolima7/geosegbar/internal/compiler"
	"github.com/joaolima7/geosegbar/internal/engine"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/store"
	"github.com/joaolima7/geosegbar/internal/testutil"
)

// Epoch is the first creation timestamp of every scenario run. The clock
// advances one second per call.
var Epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// An error is returned only when the scenario cannot run at all (invalid
// configuration, store failure); failed expectations are reported in the
// result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	clock := testutil.NewDeterministicClock(Epoch, time.Second)
	st, err := store.Open(":memory:", store.WithNow(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenario runs
	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithLogger(logger),
			engine.WithClock(clock),
			engine.WithIDGenerator(testutil.NewSequenceGenerator("reading")),
		),
		logger: logger,
	}

	insts, err := loadConfig(scenario)
	if err != nil {
		return nil, err
	}
	if err := h.saveInstruments(ctx, insts); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.executeStep(ctx, i+1, step)
		result.Trace = append(result.Trace, event)
		for _, msg := range checkExpect(event, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", event.Step, event.Action, msg))
		}
	}

	for _, msg := range EvaluateAssertions(ctx, st, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// loadConfig compiles and validates the scenario's instruments.
func loadConfig(scenario *Scenario) ([]*model.Instrument, error) {
	var insts []*model.Instrument
	for _, path := range scenario.ConfigFiles {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		compiled, err := compileConfig(path, string(src))
		if err != nil {
			return nil, err
		}
		insts = append(insts, compiled...)
	}
	if scenario.Config != "" {
		compiled, err := compileConfig("config", scenario.Config)
		if err != nil {
			return nil, err
		}
		insts = append(insts, compiled...)
	}
	if errs := compiler.ValidateInstruments(insts); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", validationErrors(errs))
	}
	return insts, nil
}

func compileConfig(filename, src string) ([]*model.Instrument, error) {
	insts, errs := compiler.CompileSource(filename, src)
	if len(errs) > 0 {
		return nil, fmt.Errorf("compile %s: %w", filename, errors.Join(errs...))
	}
	return insts, nil
}

func validationErrors(errs []compiler.ValidationError) error {
	joined := make([]error, len(errs))
	for i, e := range errs {
		joined[i] = e
	}
	return errors.Join(joined...)
}

func (h *Harness) saveInstruments(ctx context.Context, insts []*model.Instrument) error {
	for _, inst := range insts {
		if err := h.store.SaveInstrument(ctx, inst); err != nil {
			return fmt.Errorf("save instrument %s: %w", inst.Name, err)
		}
	}
	return nil
}

// executeStep runs one step and records its outcome.
func (h *Harness) executeStep(ctx context.Context, n int, step Step) TraceEvent {
	event := TraceEvent{Step: n, Action: step.Action()}

	var err error
	switch {
	case step.Submit != nil:
		var sub model.Submission
		if sub, err = step.Submit.Submission(); err == nil {
			var r *model.Reading
			if r, err = h.engine.Submit(ctx, sub); err == nil {
				recordReading(&event, r)
			}
		}
	case step.Configure != "":
		var insts []*model.Instrument
		if insts, err = compileConfig("configure", step.Configure); err == nil {
			if errs := compiler.ValidateInstruments(insts); len(errs) > 0 {
				err = validationErrors(errs)
			} else {
				err = h.saveInstruments(ctx, insts)
			}
		}
	case step.Reprocess != nil:
		event.Reading = step.Reprocess.Reading
		var r *model.Reading
		if r, err = h.engine.Reprocess(ctx, step.Reprocess.Reading, step.Reprocess.Actor, step.Reprocess.Reason); err == nil {
			recordReading(&event, r)
		}
	case step.Invalidate != nil:
		event.Reading = step.Invalidate.Reading
		err = h.store.SetReadingActive(ctx, step.Invalidate.Reading, false, step.Invalidate.Actor, step.Invalidate.Reason)
	case step.Restore != nil:
		event.Reading = step.Restore.Reading
		err = h.store.SetReadingActive(ctx, step.Restore.Reading, true, step.Restore.Actor, step.Restore.Reason)
	case step.Comment != nil:
		event.Reading = step.Comment.Reading
		err = h.store.UpdateReadingComment(ctx, step.Comment.Reading, step.Comment.Text, step.Comment.Actor)
	}

	switch {
	case engine.IsRejection(err):
		event.Outcome = OutcomeRejected
		event.Code = string(engine.Code(err))
		event.Message = err.Error()
	case err != nil:
		event.Outcome = OutcomeError
		event.Message = err.Error()
	case event.Outcome == "":
		event.Outcome = OutcomeApplied
	}

	h.logger.Info("step completed",
		"step", n,
		"action", event.Action,
		"reading", event.Reading,
		"outcome", event.Outcome,
	)
	return event
}

func recordReading(event *TraceEvent, r *model.Reading) {
	event.Reading = r.ID
	event.Outcome = OutcomePersisted
	if r.HasFailures() {
		event.Outcome = OutcomePartial
	}
	for _, out := range r.Outputs {
		event.Outputs = append(event.Outputs, TraceOutput{
			OutputID: out.OutputID,
			Acronym:  out.Acronym,
			Value:    out.Value,
			Status:   string(out.Status),
			Error:    string(out.ErrorKind),
		})
	}
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(event TraceEvent, expect *ExpectClause) []string {
	if expect == nil {
		return nil
	}
	var msgs []string
	if event.Outcome != expect.Outcome {
		msg := fmt.Sprintf("expected outcome %s, got %s", expect.Outcome, event.Outcome)
		if event.Message != "" {
			msg += ": " + event.Message
		}
		msgs = append(msgs, msg)
	}
	if expect.Code != "" && event.Code != expect.Code {
		msgs = append(msgs, fmt.Sprintf("expected code %s, got %q", expect.Code, event.Code))
	}

	for _, acronym := range sortedKeys(expect.Outputs) {
		want := expect.Outputs[acronym]
		got, ok := findOutput(event.Outputs, acronym)
		if !ok {
			msgs = append(msgs, fmt.Sprintf("output %s: not computed", acronym))
			continue
		}
		if want.Value != nil && (got.Value == nil || *got.Value != *want.Value) {
			msgs = append(msgs, fmt.Sprintf("output %s: expected value %v, got %s", acronym, *want.Value, formatValue(got.Value)))
		}
		if want.Status != "" {
			status, _ := model.ParseLimitStatus(want.Status)
			if got.Status != string(status) {
				msgs = append(msgs, fmt.Sprintf("output %s: expected status %s, got %q", acronym, status, got.Status))
			}
		}
		if want.Error != "" && got.Error != want.Error {
			msgs = append(msgs, fmt.Sprintf("output %s: expected error %s, got %q", acronym, want.Error, got.Error))
		}
	}
	return msgs
}

func findOutput(outputs []TraceOutput, acronym string) (TraceOutput, bool) {
	acronym = model.NormalizeAcronym(acronym)
	for _, out := range outputs {
		if model.NormalizeAcronym(out.Acronym) == acronym {
			return out, true
		}
	}
	return TraceOutput{}, false
}

func formatValue(v *float64) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%v", *v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
