package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/resolve"
)

func instrument() *model.Instrument {
	return &model.Instrument{
		ID:        1,
		Active:    true,
		Inputs:    []model.Input{{ID: 1, Acronym: "x"}, {ID: 2, Acronym: "y"}},
		Constants: []model.Constant{{ID: 3, Acronym: "K", Value: 10}},
		Outputs: []model.Output{
			{ID: 10, Acronym: "SUM", Equation: "x + y", Precision: 2, Active: true},
			{ID: 11, Acronym: "INV", Equation: "1 / x", Precision: 3, Active: true},
			{ID: 12, Acronym: "BAD", Equation: "x +", Precision: 0, Active: true},
			{ID: 13, Acronym: "OFF", Equation: "x * 1000", Precision: 0, Active: false},
			{ID: 14, Acronym: "SCALED", Equation: "K * x / 3", Precision: 1, Active: true},
		},
	}
}

func TestRequirementsSkipInactiveAndUnparseable(t *testing.T) {
	c := NewCalculator(nil)

	reqs := c.Requirements(instrument())
	assert.Equal(t, []resolve.Requirement{
		{OutputID: 10, Symbols: []string{"x", "y"}},
		{OutputID: 11, Symbols: []string{"x"}},
		{OutputID: 14, Symbols: []string{"K", "x"}},
	}, reqs)
}

func TestComputeOutputsPartialFailure(t *testing.T) {
	c := NewCalculator(nil)
	inst := instrument()

	results := c.ComputeOutputs(inst, map[string]float64{"x": 0, "y": 3.14159, "K": 10})
	require.Len(t, results, 4)

	assert.Equal(t, int64(10), results[0].Output.ID)
	assert.False(t, results[0].Failed())
	assert.Equal(t, 3.14, results[0].Value)
	assert.Equal(t, 3.14159, results[0].Raw)

	assert.Equal(t, model.ErrorKindDivisionByZero, ErrorKind(results[1].Err))
	assert.Equal(t, model.ErrorKindParse, ErrorKind(results[2].Err))

	assert.False(t, results[3].Failed())
	assert.Equal(t, 0.0, results[3].Value)
}

func TestComputeOutputsKeepsRawValue(t *testing.T) {
	c := NewCalculator(nil)
	results := c.ComputeOutputs(instrument(), map[string]float64{"x": 1, "y": 2, "K": 10})

	scaled := results[3]
	require.NoError(t, scaled.Err)
	assert.Equal(t, 3.3, scaled.Value)
	assert.InDelta(t, 10.0/3, scaled.Raw, 1e-15)
	assert.Equal(t, Round(scaled.Raw, 1), scaled.Value)
}

func TestComputeOutputsUnboundVariable(t *testing.T) {
	c := NewCalculator(nil)
	results := c.ComputeOutputs(instrument(), map[string]float64{"x": 1})

	assert.Equal(t, model.ErrorKindUnboundVariable, ErrorKind(results[0].Err))
	assert.Equal(t, model.ErrorKind(""), ErrorKind(results[1].Err))
	assert.Equal(t, model.ErrorKindUnboundVariable, ErrorKind(results[3].Err))
}

func TestCalculatorSharesCache(t *testing.T) {
	cache := NewEquationCache(nil)
	c := NewCalculator(cache)
	c.ComputeOutputs(instrument(), map[string]float64{"x": 1, "y": 1, "K": 1})

	assert.Same(t, cache, c.Cache())
	assert.Equal(t, 3, cache.Len())
}
