package calc

import (
	"errors"

	"github.com/joaolima7/geosegbar/internal/expr"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/resolve"
)

// OutputResult is the computation outcome for one output.
// Exactly one of (Value, Raw) or Err is meaningful.
type OutputResult struct {
	Output model.Output
	Value  float64 // rounded to Output.Precision
	Raw    float64 // full precision
	Err    error
}

// Failed reports whether the output could not be computed.
func (r OutputResult) Failed() bool {
	return r.Err != nil
}

// Calculator evaluates the active outputs of an instrument.
type Calculator struct {
	cache *EquationCache
}

// NewCalculator creates a calculator backed by cache.
// A nil cache gets a private one.
func NewCalculator(cache *EquationCache) *Calculator {
	if cache == nil {
		cache = NewEquationCache(nil)
	}
	return &Calculator{cache: cache}
}

// Cache returns the equation cache used by the calculator.
func (c *Calculator) Cache() *EquationCache {
	return c.cache
}

// Requirements lists the symbols referenced by each active output, in
// declaration order. Outputs whose equation does not parse are skipped; their
// parse error is reported by ComputeOutputs.
func (c *Calculator) Requirements(inst *model.Instrument) []resolve.Requirement {
	var reqs []resolve.Requirement
	for _, out := range inst.ActiveOutputs() {
		compiled, err := c.cache.Get(out.ID, out.Equation)
		if err != nil {
			continue
		}
		reqs = append(reqs, resolve.Requirement{OutputID: out.ID, Symbols: compiled.Variables()})
	}
	return reqs
}

// ComputeOutputs evaluates every active output of inst, in declaration
// order, against bindings.
func (c *Calculator) ComputeOutputs(inst *model.Instrument, bindings map[string]float64) []OutputResult {
	active := inst.ActiveOutputs()
	results := make([]OutputResult, 0, len(active))
	for _, out := range active {
		results = append(results, c.compute(out, bindings))
	}
	return results
}

func (c *Calculator) compute(out model.Output, bindings map[string]float64) OutputResult {
	compiled, err := c.cache.Get(out.ID, out.Equation)
	if err != nil {
		return OutputResult{Output: out, Err: err}
	}
	raw, err := compiled.Eval(bindings)
	if err != nil {
		return OutputResult{Output: out, Err: err}
	}
	return OutputResult{Output: out, Value: Round(raw, out.Precision), Raw: raw}
}

// ErrorKind maps a computation error to the failure marker stored on a
// reading. It returns "" for nil.
func ErrorKind(err error) model.ErrorKind {
	if err == nil {
		return ""
	}
	var pe *expr.ParseError
	if errors.As(err, &pe) {
		return model.ErrorKindParse
	}
	switch expr.EvalKind(err) {
	case expr.KindUnboundVariable:
		return model.ErrorKindUnboundVariable
	case expr.KindDivisionByZero:
		return model.ErrorKindDivisionByZero
	case expr.KindOverflow:
		return model.ErrorKindOverflow
	default:
		return model.ErrorKindDomain
	}
}
