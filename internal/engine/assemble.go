package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/joaolima7/geosegbar/internal/calc"
	"github.com/joaolima7/geosegbar/internal/limit"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/resolve"
)

// Assemble runs validation, resolution, computation and classification of
// sub against inst and returns the reading that Submit would persist.
// It does not touch the store.
func (e *Engine) Assemble(inst *model.Instrument, sub model.Submission) (*model.Reading, error) {
	return e.assemble(inst, sub, e.ids.Generate(), e.clock.Now())
}

func (e *Engine) assemble(inst *model.Instrument, sub model.Submission, id string, createdAt time.Time) (*model.Reading, error) {
	if err := validateSubmission(inst, sub); err != nil {
		return nil, err
	}

	reqs := e.calc.Requirements(inst)
	if missing := missingInputs(inst, sub.Inputs, reqs); len(missing) > 0 {
		return nil, reject(ErrCodeMissingInput, inst.ID, missing, "required inputs not submitted")
	}

	bindings, err := resolve.Bindings(inst, sub.Inputs, reqs)
	if err != nil {
		var acronyms []string
		var re *resolve.ResolveError
		if errors.As(err, &re) {
			acronyms = sortedUnique(append(append(acronyms, re.Missing...), re.Ambiguous...))
		}
		return nil, &RejectionError{
			Code:         ErrCodeUnresolvedSymbol,
			Message:      "equations reference symbols that cannot be bound",
			InstrumentID: inst.ID,
			Acronyms:     acronyms,
			Err:          err,
		}
	}

	configHash, err := model.ConfigHash(inst)
	if err != nil {
		return nil, fmt.Errorf("hash instrument %d: %w", inst.ID, err)
	}

	r := &model.Reading{
		ID:            id,
		InstrumentID:  inst.ID,
		MeasuredAt:    sub.MeasuredAt.UTC(),
		AuthorID:      sub.AuthorID,
		Comment:       sub.Comment,
		Active:        true,
		Inputs:        normalizedInputs(sub.Inputs),
		ConfigHash:    configHash,
		EngineVersion: model.EngineVersion,
		CreatedAt:     createdAt.UTC(),
	}

	for _, res := range e.calc.ComputeOutputs(inst, bindings) {
		r.Outputs = append(r.Outputs, e.outputValue(inst, res))
	}
	return r, nil
}

// outputValue classifies one computed output, or turns its failure into a
// marker.
func (e *Engine) outputValue(inst *model.Instrument, res calc.OutputResult) model.OutputValue {
	out := model.OutputValue{
		OutputID: res.Output.ID,
		Acronym:  res.Output.Acronym,
	}
	if res.Failed() {
		out.ErrorKind = calc.ErrorKind(res.Err)
		out.ErrorMessage = res.Err.Error()
		e.logger.Warn("output not computed",
			"instrument", inst.ID,
			"output", res.Output.ID,
			"kind", out.ErrorKind,
			"error", res.Err,
		)
		return out
	}

	out.Value = model.Float(res.Value)
	out.Raw = model.Float(res.Raw)

	status, err := limit.Classify(inst.NoLimit, res.Output, res.Raw)
	if err != nil {
		out.ErrorKind = model.ErrorKindLimitConfig
		out.ErrorMessage = err.Error()
		e.logger.Warn("output not classified",
			"instrument", inst.ID,
			"output", res.Output.ID,
			"error", err,
		)
		return out
	}
	out.Status = status
	e.logger.Debug("output computed",
		"instrument", inst.ID,
		"output", res.Output.ID,
		"value", res.Value,
		"status", status,
	)
	return out
}

// validateSubmission checks the submission against the instrument before
// any equation is touched.
func validateSubmission(inst *model.Instrument, sub model.Submission) error {
	if !inst.Active {
		return reject(ErrCodeInstrumentInactive, inst.ID, nil, "instrument %q is inactive", inst.Name)
	}
	if sub.MeasuredAt.IsZero() {
		return reject(ErrCodeInvalidValue, inst.ID, nil, "measurement time is required")
	}

	seen := make(map[string]bool, len(sub.Inputs))
	var unknown, duplicate, invalid []string
	for _, v := range sub.Inputs {
		acronym := model.NormalizeAcronym(v.Acronym)
		if _, ok := inst.Input(acronym); !ok {
			unknown = append(unknown, acronym)
			continue
		}
		if seen[acronym] {
			duplicate = append(duplicate, acronym)
			continue
		}
		seen[acronym] = true
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			invalid = append(invalid, acronym)
		}
	}

	switch {
	case len(unknown) > 0:
		return reject(ErrCodeUnknownInput, inst.ID, sortedUnique(unknown), "acronyms are not inputs of instrument %q", inst.Name)
	case len(duplicate) > 0:
		return reject(ErrCodeDuplicateInput, inst.ID, sortedUnique(duplicate), "inputs submitted more than once")
	case len(invalid) > 0:
		return reject(ErrCodeInvalidValue, inst.ID, sortedUnique(invalid), "input values must be finite")
	}
	return nil
}

// missingInputs returns the inputs referenced by active outputs that were
// not submitted, sorted.
func missingInputs(inst *model.Instrument, values []model.ReadingInputValue, reqs []resolve.Requirement) []string {
	submitted := make(map[string]bool, len(values))
	for _, v := range values {
		submitted[model.NormalizeAcronym(v.Acronym)] = true
	}
	var missing []string
	for _, acronym := range resolve.RequiredInputs(inst, reqs) {
		if !submitted[acronym] {
			missing = append(missing, acronym)
		}
	}
	return missing
}

// normalizedInputs returns a copy of values with NFC acronyms, ordered by
// acronym as the store returns them.
func normalizedInputs(values []model.ReadingInputValue) []model.ReadingInputValue {
	out := make([]model.ReadingInputValue, len(values))
	for i, v := range values {
		out[i] = model.ReadingInputValue{Acronym: model.NormalizeAcronym(v.Acronym), Value: v.Value}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Acronym < out[j].Acronym })
	return out
}

func sortedUnique(s []string) []string {
	slices.Sort(s)
	return slices.Compact(s)
}
