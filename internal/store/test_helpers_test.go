package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joaolima7/geosegbar/internal/model"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithNow(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testInstrument() *model.Instrument {
	return &model.Instrument{
		ID:        1,
		Name:      "PZ-01",
		Active:    true,
		Inputs:    []model.Input{{ID: 10, Acronym: "L", Name: "Leitura", Unit: "m"}},
		Constants: []model.Constant{{ID: 20, Acronym: "CB", Name: "Cota da boca", Value: 512.4}},
		Outputs: []model.Output{{
			ID: 30, Acronym: "COTA", Name: "Cota", Equation: "CB - L", Precision: 2, Active: true,
			Deterministic: &model.DeterministicLimit{ID: 40, Attention: model.Float(505), Alert: model.Float(508)},
		}},
	}
}

// saveTestInstrument stores testInstrument and fails the test on error.
func saveTestInstrument(t *testing.T, s *Store) *model.Instrument {
	t.Helper()
	inst := testInstrument()
	if err := s.SaveInstrument(context.Background(), inst); err != nil {
		t.Fatalf("SaveInstrument() failed: %v", err)
	}
	return inst
}

// createTestReading builds a reading of instrument 1 with one input and one
// computed output.
func createTestReading(id string, measuredAt time.Time, level float64, status model.LimitStatus) *model.Reading {
	value := 512.4 - level
	return &model.Reading{
		ID:           id,
		InstrumentID: 1,
		MeasuredAt:   measuredAt,
		Active:       true,
		Inputs:       []model.ReadingInputValue{{Acronym: "L", Value: level}},
		Outputs: []model.OutputValue{{
			OutputID: 30, Acronym: "COTA",
			Value: model.Float(value), Raw: model.Float(value), Status: status,
		}},
		ConfigHash:    "hash-1",
		EngineVersion: model.EngineVersion,
		CreatedAt:     testNow,
	}
}
