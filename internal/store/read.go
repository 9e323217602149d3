package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joaolima7/geosegbar/internal/history"
	"github.com/joaolima7/geosegbar/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const readingColumns = `id, instrument_id, measured_at, author_id, comment, active, config_hash, engine_version, created_at`

// ReadReading returns a reading with its input and output values.
// Returns an error wrapping ErrNotFound if no such reading exists.
func (s *Store) ReadReading(ctx context.Context, id string) (*model.Reading, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+readingColumns+` FROM readings WHERE id = ?`, id)
	r, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("read reading %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read reading %s: %w", id, err)
	}
	if err := s.loadValues(ctx, r); err != nil {
		return nil, fmt.Errorf("read reading %s: %w", id, err)
	}
	return r, nil
}

// ReadingsForInstrument returns the readings of an instrument ordered by
// measured_at ASC, id ASC. Inactive readings are included only on request.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadingsForInstrument(ctx context.Context, instrumentID int64, includeInactive bool) ([]*model.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE instrument_id = ?`
	if !includeInactive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY measured_at ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	readings := []*model.Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate readings: %w", err)
	}
	rows.Close()

	// Values are loaded after the cursor is closed; the pool has one
	// connection.
	for _, r := range readings {
		if err := s.loadValues(ctx, r); err != nil {
			return nil, fmt.Errorf("read reading %s: %w", r.ID, err)
		}
	}
	return readings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(row scanner) (*model.Reading, error) {
	var (
		r          model.Reading
		measuredAt string
		createdAt  string
		authorID   sql.NullInt64
	)
	if err := row.Scan(
		&r.ID, &r.InstrumentID, &measuredAt, &authorID, &r.Comment,
		&r.Active, &r.ConfigHash, &r.EngineVersion, &createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if r.MeasuredAt, err = model.ParseTimestamp(measuredAt); err != nil {
		return nil, fmt.Errorf("parse measured_at: %w", err)
	}
	if r.CreatedAt, err = model.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.AuthorID = intPtr(authorID)
	return &r, nil
}

func (s *Store) loadValues(ctx context.Context, r *model.Reading) error {
	inputs, err := readInputs(ctx, s.db, r.ID)
	if err != nil {
		return err
	}
	outputs, err := readOutputs(ctx, s.db, r.ID)
	if err != nil {
		return err
	}
	r.Inputs = inputs
	r.Outputs = outputs
	return nil
}

func readInputs(ctx context.Context, q querier, readingID string) ([]model.ReadingInputValue, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT acronym, value FROM reading_input_values
		WHERE reading_id = ?
		ORDER BY acronym COLLATE BINARY ASC
	`, readingID)
	if err != nil {
		return nil, fmt.Errorf("query inputs: %w", err)
	}
	defer rows.Close()

	inputs := []model.ReadingInputValue{}
	for rows.Next() {
		var in model.ReadingInputValue
		if err := rows.Scan(&in.Acronym, &in.Value); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		inputs = append(inputs, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inputs: %w", err)
	}
	return inputs, nil
}

func readOutputs(ctx context.Context, q querier, readingID string) ([]model.OutputValue, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT output_id, acronym, value, raw_value, status, error_kind, error_message
		FROM reading_output_values
		WHERE reading_id = ?
		ORDER BY output_id ASC
	`, readingID)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	outputs := []model.OutputValue{}
	for rows.Next() {
		var (
			out                      model.OutputValue
			value, raw               sql.NullFloat64
			status, kind, errMessage sql.NullString
		)
		if err := rows.Scan(&out.OutputID, &out.Acronym, &value, &raw, &status, &kind, &errMessage); err != nil {
			return nil, fmt.Errorf("scan output: %w", err)
		}
		out.Value = floatPtr(value)
		out.Raw = floatPtr(raw)
		out.Status = model.LimitStatus(status.String)
		out.ErrorKind = model.ErrorKind(kind.String)
		out.ErrorMessage = errMessage.String
		outputs = append(outputs, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outputs: %w", err)
	}
	return outputs, nil
}

// AuditEntry is one row of a reading's audit log.
type AuditEntry struct {
	ID         int64
	ReadingID  string
	Action     AuditAction
	ActorID    *int64
	Reason     string
	Previous   string // JSON of the replaced state
	RecordedAt time.Time
}

// ReadAudit returns the audit log of a reading in the order it was written.
func (s *Store) ReadAudit(ctx context.Context, readingID string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reading_id, action, actor_id, reason, previous, recorded_at
		FROM reading_audit
		WHERE reading_id = ?
		ORDER BY id ASC
	`, readingID)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var (
			e          AuditEntry
			action     string
			actorID    sql.NullInt64
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.ReadingID, &action, &actorID, &e.Reason, &e.Previous, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Action = AuditAction(action)
		e.ActorID = intPtr(actorID)
		if e.RecordedAt, err = model.ParseTimestamp(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return entries, nil
}

// ReadOutputSeries runs a history query.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadOutputSeries(ctx context.Context, q history.Query) ([]model.SeriesPoint, error) {
	query, params, err := history.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	points := []model.SeriesPoint{}
	for rows.Next() {
		var (
			p            model.SeriesPoint
			measuredAt   string
			value, raw   sql.NullFloat64
			status, kind sql.NullString
		)
		if err := rows.Scan(&p.ReadingID, &measuredAt, &p.OutputID, &value, &raw, &status, &kind, &p.Active); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		if p.MeasuredAt, err = model.ParseTimestamp(measuredAt); err != nil {
			return nil, fmt.Errorf("parse measured_at: %w", err)
		}
		p.Value = floatPtr(value)
		p.Raw = floatPtr(raw)
		p.Status = model.LimitStatus(status.String)
		p.ErrorKind = model.ErrorKind(kind.String)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return points, nil
}

// OutputSamples returns the full-precision values of one output over active
// readings whose computation succeeded, in measurement order. These are the
// samples statistical limits are derived from.
func (s *Store) OutputSamples(ctx context.Context, instrumentID, outputID int64, from, to time.Time) ([]float64, error) {
	points, err := s.ReadOutputSeries(ctx, history.Query{
		InstrumentID: instrumentID,
		OutputIDs:    []int64{outputID},
		From:         from,
		To:           to,
		OnlyComputed: true,
	})
	if err != nil {
		return nil, fmt.Errorf("output samples: %w", err)
	}

	samples := make([]float64, 0, len(points))
	for _, p := range points {
		if p.Raw != nil {
			samples = append(samples, *p.Raw)
		}
	}
	return samples, nil
}
