package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/model"
)

func instrument() *model.Instrument {
	return &model.Instrument{
		ID: 1,
		Inputs: []model.Input{
			{ID: 1, Acronym: "X"},
			{ID: 2, Acronym: "X1"},
			{ID: 3, Acronym: "y"},
		},
		Constants: []model.Constant{
			{ID: 10, Acronym: "π", Value: 3.14159},
			{ID: 11, Acronym: "K", Value: 2},
		},
	}
}

func TestBindingsMergesConstantsAndInputs(t *testing.T) {
	values := []model.ReadingInputValue{{Acronym: "X", Value: 1.5}, {Acronym: "X1", Value: 7}}
	reqs := []Requirement{{OutputID: 100, Symbols: []string{"X", "X1", "π", "K"}}}

	b, err := Bindings(instrument(), values, reqs)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"X": 1.5, "X1": 7, "π": 3.14159, "K": 2}, b)
}

func TestBindingsCollectsEveryMissingSymbol(t *testing.T) {
	values := []model.ReadingInputValue{{Acronym: "X", Value: 2}}
	reqs := []Requirement{
		{OutputID: 100, Symbols: []string{"X", "y"}},
		{OutputID: 101, Symbols: []string{"X1", "y", "Z"}},
		{OutputID: 102, Symbols: []string{"X", "K"}},
	}

	_, err := Bindings(instrument(), values, reqs)
	require.Error(t, err)

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"X1", "Z", "y"}, re.Missing)
	assert.Empty(t, re.Ambiguous)
	assert.Equal(t, []int64{100, 101}, re.Outputs)
	assert.Contains(t, err.Error(), "missing X1, Z, y")
}

func TestBindingsIsCaseSensitive(t *testing.T) {
	values := []model.ReadingInputValue{{Acronym: "x", Value: 1}}
	reqs := []Requirement{{OutputID: 1, Symbols: []string{"X"}}}

	_, err := Bindings(instrument(), values, reqs)
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"X"}, re.Missing)
}

func TestBindingsNormalizesAcronyms(t *testing.T) {
	inst := instrument()
	inst.Inputs = append(inst.Inputs, model.Input{ID: 4, Acronym: "e\u0301"})
	values := []model.ReadingInputValue{{Acronym: "\u00e9", Value: 3}}
	reqs := []Requirement{{OutputID: 1, Symbols: []string{"e\u0301"}}}

	b, err := Bindings(inst, values, reqs)
	require.NoError(t, err)
	assert.Equal(t, 3.0, b["\u00e9"])
}

func TestBindingsReportsAmbiguousSymbols(t *testing.T) {
	inst := instrument()
	inst.Inputs = append(inst.Inputs, model.Input{ID: 5, Acronym: "K"})
	values := []model.ReadingInputValue{{Acronym: "K", Value: 9}}
	reqs := []Requirement{{OutputID: 7, Symbols: []string{"K"}}}

	_, err := Bindings(inst, values, reqs)
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, []string{"K"}, re.Ambiguous)
	assert.Equal(t, []int64{7}, re.Outputs)
}

func TestBindingsIgnoresUndeclaredInputs(t *testing.T) {
	values := []model.ReadingInputValue{{Acronym: "X", Value: 1}, {Acronym: "W", Value: 5}}
	reqs := []Requirement{{OutputID: 1, Symbols: []string{"X"}}}

	b, err := Bindings(instrument(), values, reqs)
	require.NoError(t, err)
	assert.NotContains(t, b, "W")
}

func TestRequiredInputs(t *testing.T) {
	reqs := []Requirement{
		{OutputID: 1, Symbols: []string{"y", "π"}},
		{OutputID: 2, Symbols: []string{"X", "y", "Unknown"}},
	}
	assert.Equal(t, []string{"X", "y"}, RequiredInputs(instrument(), reqs))
	assert.Nil(t, RequiredInputs(instrument(), nil))
}
