package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joaolima7/geosegbar/internal/calc"
	"github.com/joaolima7/geosegbar/internal/metrics"
	"github.com/joaolima7/geosegbar/internal/model"
	"github.com/joaolima7/geosegbar/internal/store"
)

// Engine validates, computes, classifies and persists readings.
//
// Thread-safety model:
//   - Submit(), Assemble(), Reprocess(): safe from any goroutine
//   - the equation cache is the only state shared between calls
type Engine struct {
	store   *store.Store
	calc    *calc.Calculator
	ids     IDGenerator
	clock   Clock
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
}

// Option allows configuration of engine collaborators.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records submissions and equation cache lookups on m.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock sets the clock used for creation timestamps.
// Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the reading id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithCalculator shares a calculator, and with it an equation cache,
// between engines.
func WithCalculator(c *calc.Calculator) Option {
	return func(e *Engine) {
		e.calc = c
	}
}

// New creates an Engine persisting to s.
//
// Unless WithCalculator is given, the engine gets its own equation cache,
// reporting lookups to the metrics set by WithMetrics.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.calc == nil {
		var observer calc.CacheObserver
		if e.metrics != nil {
			observer = e.metrics
		}
		e.calc = calc.NewCalculator(calc.NewEquationCache(observer))
	}
	return e
}

// Calculator returns the calculator, so callers can invalidate cached
// equations after an edit.
func (e *Engine) Calculator() *calc.Calculator {
	return e.calc
}

// Submit processes one measurement submission to completion.
//
// It returns the persisted reading, possibly carrying per-output failure
// markers, or a *RejectionError when the submission was refused. Any other
// error is a persistence failure; in every failure case nothing is written.
func (e *Engine) Submit(ctx context.Context, sub model.Submission) (*model.Reading, error) {
	start := time.Now()
	logger := e.logger.With("instrument", sub.InstrumentID)

	inst, err := e.loadInstrument(ctx, sub.InstrumentID)
	if err != nil {
		e.finish(logger, start, nil, err)
		return nil, err
	}

	r, err := e.Assemble(inst, sub)
	if err != nil {
		e.finish(logger, start, nil, err)
		return nil, err
	}

	if err := e.store.WriteReading(ctx, r); err != nil {
		err = fmt.Errorf("persist reading %s: %w", r.ID, err)
		e.finish(logger, start, r, err)
		return nil, err
	}

	e.finish(logger, start, r, nil)
	return r, nil
}

// finish logs the outcome of a submission and records its metrics.
func (e *Engine) finish(logger *slog.Logger, start time.Time, r *model.Reading, err error) {
	elapsed := time.Since(start)
	switch {
	case IsRejection(err):
		logger.Info("submission rejected", "code", Code(err), "error", err)
		e.metrics.RecordSubmission(metrics.OutcomeRejected, elapsed)
	case err != nil:
		logger.Error("submission failed", "error", err)
		e.metrics.RecordSubmission(metrics.OutcomeError, elapsed)
	default:
		outcome := metrics.OutcomePersisted
		if r.HasFailures() {
			outcome = metrics.OutcomePartial
		}
		e.recordOutputs(r)
		logger.Info("reading persisted",
			"reading", r.ID,
			"measured_at", model.FormatTimestamp(r.MeasuredAt),
			"outputs", len(r.Outputs),
			"outcome", outcome,
		)
		e.metrics.RecordSubmission(outcome, elapsed)
	}
}

func (e *Engine) recordOutputs(r *model.Reading) {
	for _, out := range r.Outputs {
		if out.ErrorKind != "" {
			e.metrics.RecordOutputFailure(string(out.ErrorKind))
		}
		if out.Status != "" {
			e.metrics.RecordOutputStatus(string(out.Status))
		}
	}
}

func (e *Engine) loadInstrument(ctx context.Context, id int64) (*model.Instrument, error) {
	inst, err := e.store.LoadInstrument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, reject(ErrCodeInstrumentNotFound, id, nil, "instrument does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("load instrument %d: %w", id, err)
	}
	return inst, nil
}

// Reprocess recomputes a stored reading against the current configuration
// of its instrument, using the reading's stored raw inputs.
//
// The outputs are replaced atomically and the previous outputs are kept in
// the audit log. A reading whose inputs no longer satisfy the configuration
// is left untouched and a *RejectionError is returned.
func (e *Engine) Reprocess(ctx context.Context, readingID string, actorID *int64, reason string) (*model.Reading, error) {
	logger := e.logger.With("reading", readingID)

	stored, err := e.store.ReadReading(ctx, readingID)
	if err != nil {
		return nil, fmt.Errorf("reprocess: %w", err)
	}
	logger = logger.With("instrument", stored.InstrumentID)

	inst, err := e.loadInstrument(ctx, stored.InstrumentID)
	if err != nil {
		e.metrics.RecordReprocess(metrics.OutcomeRejected)
		return nil, err
	}

	sub := model.Submission{
		InstrumentID: stored.InstrumentID,
		MeasuredAt:   stored.MeasuredAt,
		Inputs:       stored.Inputs,
		AuthorID:     stored.AuthorID,
		Comment:      stored.Comment,
	}
	r, err := e.assemble(inst, sub, stored.ID, stored.CreatedAt)
	if err != nil {
		logger.Info("reprocess rejected", "code", Code(err), "error", err)
		e.metrics.RecordReprocess(metrics.OutcomeRejected)
		return nil, err
	}
	r.Active = stored.Active

	if err := e.store.ReplaceOutputs(ctx, r, actorID, reason); err != nil {
		logger.Error("reprocess failed", "error", err)
		e.metrics.RecordReprocess(metrics.OutcomeError)
		return nil, fmt.Errorf("reprocess reading %s: %w", readingID, err)
	}

	logger.Info("reading reprocessed",
		"previous_config", stored.ConfigHash,
		"config", r.ConfigHash,
	)
	e.metrics.RecordReprocess(metrics.OutcomePersisted)
	return r, nil
}
