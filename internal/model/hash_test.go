package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInstrument() *Instrument {
	return &Instrument{
		ID:     1,
		Name:   "PZ-01",
		Active: true,
		Inputs: []Input{{ID: 10, Acronym: "L", Name: "Leitura", Unit: "m"}},
		Constants: []Constant{
			{ID: 20, Acronym: "CB", Name: "Cota da boca", Unit: "m", Value: 512.4},
		},
		Outputs: []Output{{
			ID: 30, Acronym: "COTA", Name: "Cota piezometrica", Unit: "m",
			Equation: "CB - L", Precision: 2, Active: true,
			Deterministic: &DeterministicLimit{ID: 40, Attention: Float(505), Alert: Float(508)},
			Statistical: &StatisticalLimit{
				ID:        50,
				Attention: &Band{Lower: Float(500), Upper: Float(506)},
			},
		}},
	}
}

func TestConfigHashDeterministic(t *testing.T) {
	a := MustConfigHash(sampleInstrument())
	b := MustConfigHash(sampleInstrument())

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestConfigHashChangesWithConfiguration(t *testing.T) {
	base := MustConfigHash(sampleInstrument())

	mutations := map[string]func(*Instrument){
		"equation":  func(i *Instrument) { i.Outputs[0].Equation = "CB - L + 0" },
		"precision": func(i *Instrument) { i.Outputs[0].Precision = 3 },
		"constant":  func(i *Instrument) { i.Constants[0].Value = 512.5 },
		"threshold": func(i *Instrument) { i.Outputs[0].Deterministic.Emergency = Float(510) },
		"direction": func(i *Instrument) { i.Outputs[0].Deterministic.Direction = DirectionAscending },
		"band":      func(i *Instrument) { i.Outputs[0].Statistical.Alert = &Band{Upper: Float(507)} },
		"no limit":  func(i *Instrument) { i.NoLimit = true },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			inst := sampleInstrument()
			mutate(inst)
			h, err := ConfigHash(inst)
			require.NoError(t, err)
			assert.NotEqual(t, base, h)
		})
	}
}

func TestConfigHashRejectsNonFiniteConstant(t *testing.T) {
	inst := sampleInstrument()
	inst.Constants[0].Value = posInf()

	_, err := ConfigHash(inst)
	assert.Error(t, err)
}

func TestEquationFingerprintNormalizes(t *testing.T) {
	assert.Equal(t, EquationFingerprint("2*\u00e9"), EquationFingerprint("2*e\u0301"))
	assert.NotEqual(t, EquationFingerprint("x+1"), EquationFingerprint("x+2"))
}
