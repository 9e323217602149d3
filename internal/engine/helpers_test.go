package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/metrics"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/store"
	"github.com/joaolima7/geosegbar/internal/testutil"
)

var (
	testCreated  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	testMeasured = time.Date(2024, 4, 30, 8, 30, 0, 0, time.UTC)
)

type testEnv struct {
	store    *store.Store
	engine   *Engine
	registry *prometheus.Registry
}

// newTestEnv creates a store holding piezometer(), and an engine with
// deterministic ids and timestamps.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithNow(func() time.Time { return testCreated }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	registry := prometheus.NewRegistry()
	m, err := metrics.NewEngineMetrics(registry)
	require.NoError(t, err)

	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
		WithClock(testutil.NewDeterministicClock(testCreated, 0)),
		WithIDGenerator(testutil.NewSequenceGenerator("r")),
	}
	env := &testEnv{
		store:    s,
		engine:   New(s, append(base, opts...)...),
		registry: registry,
	}
	env.save(t, piezometer())
	return env
}

func (env *testEnv) save(t *testing.T, inst *model.Instrument) {
	t.Helper()
	require.NoError(t, env.store.SaveInstrument(context.Background(), inst))
}

// piezometer has two referenced inputs (L, D), one optional input (T), and
// an inactive output whose equation does not parse.
func piezometer() *model.Instrument {
	return &model.Instrument{
		ID:     1,
		Name:   "PZ-01",
		Active: true,
		Inputs: []model.Input{
			{ID: 10, Acronym: "L", Name: "Leitura", Unit: "m"},
			{ID: 11, Acronym: "D", Name: "Divisor"},
			{ID: 12, Acronym: "T", Name: "Temperatura", Unit: "C"},
		},
		Constants: []model.Constant{{ID: 20, Acronym: "CB", Name: "Cota da boca", Value: 512.4}},
		Outputs: []model.Output{
			{
				ID: 30, Acronym: "COTA", Name: "Cota piezometrica", Equation: "CB - L", Precision: 2, Active: true,
				Deterministic: &model.DeterministicLimit{
					ID: 40, Attention: model.Float(508), Alert: model.Float(510), Emergency: model.Float(511),
				},
			},
			{ID: 31, Acronym: "RATIO", Name: "Razao", Equation: "L / D", Precision: 3, Active: true},
			{ID: 32, Acronym: "OLD", Name: "Desativada", Equation: "L +", Precision: 1, Active: false},
		},
	}
}

func submission(values ...model.ReadingInputValue) model.Submission {
	return model.Submission{InstrumentID: 1, MeasuredAt: testMeasured, Inputs: values}
}

func in(acronym string, value float64) model.ReadingInputValue {
	return model.ReadingInputValue{Acronym: acronym, Value: value}
}

// counter returns the value of a counter series, or 0 if it was never
// incremented.
func (env *testEnv) counter(t *testing.T, name, label string) float64 {
	t.Helper()
	families, err := env.registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func (env *testEnv) readings(t *testing.T, instrumentID int64) []*model.Reading {
	t.Helper()
	rs, err := env.store.ReadingsForInstrument(context.Background(), instrumentID, true)
	require.NoError(t, err)
	return rs
}
