package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaolima7/geosegbar/internal/model"
)

// AuditAction names a change recorded in reading_audit.
type AuditAction string

const (
	AuditInvalidate AuditAction = "INVALIDATE"
	AuditRestore    AuditAction = "RESTORE"
	AuditComment    AuditAction = "COMMENT"
	AuditReprocess  AuditAction = "REPROCESS"
)

// WriteReading inserts a reading with all of its input and output values in
// a single transaction. Nothing is written if any insert fails.
func (s *Store) WriteReading(ctx context.Context, r *model.Reading) error {
	return s.withTx(ctx, fmt.Sprintf("write reading %s", r.ID), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO readings
			(id, instrument_id, measured_at, author_id, comment, active, config_hash, engine_version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID,
			r.InstrumentID,
			model.FormatTimestamp(r.MeasuredAt),
			nullInt(r.AuthorID),
			r.Comment,
			boolToInt(r.Active),
			r.ConfigHash,
			r.EngineVersion,
			model.FormatTimestamp(r.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert reading: %w", err)
		}

		for _, in := range r.Inputs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO reading_input_values (reading_id, acronym, value)
				VALUES (?, ?, ?)
			`, r.ID, in.Acronym, in.Value)
			if err != nil {
				return fmt.Errorf("insert input %s: %w", in.Acronym, err)
			}
		}

		return insertOutputs(ctx, tx, r.ID, r.Outputs)
	})
}

func insertOutputs(ctx context.Context, tx *sql.Tx, readingID string, outputs []model.OutputValue) error {
	for _, out := range outputs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reading_output_values
			(reading_id, output_id, acronym, value, raw_value, status, error_kind, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			readingID,
			out.OutputID,
			out.Acronym,
			nullFloat(out.Value),
			nullFloat(out.Raw),
			nullString(string(out.Status)),
			nullString(string(out.ErrorKind)),
			nullString(out.ErrorMessage),
		)
		if err != nil {
			return fmt.Errorf("insert output %d: %w", out.OutputID, err)
		}
	}
	return nil
}

// SetReadingActive invalidates (active=false) or restores (active=true) a
// reading. Inactive readings are kept for audit but excluded from history
// and statistics by default. Setting the current state again is a no-op
// and writes no audit row.
func (s *Store) SetReadingActive(ctx context.Context, id string, active bool, actorID *int64, reason string) error {
	action := AuditInvalidate
	if active {
		action = AuditRestore
	}
	return s.withTx(ctx, fmt.Sprintf("set reading %s active=%t", id, active), func(tx *sql.Tx) error {
		var current bool
		if err := scanOne(tx.QueryRowContext(ctx, `SELECT active FROM readings WHERE id = ?`, id), &current); err != nil {
			return err
		}
		if current == active {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `UPDATE readings SET active = ? WHERE id = ?`, boolToInt(active), id); err != nil {
			return fmt.Errorf("update active: %w", err)
		}
		return s.insertAudit(ctx, tx, id, action, actorID, reason, map[string]any{"active": current})
	})
}

// UpdateReadingComment replaces the free-text comment of a reading.
func (s *Store) UpdateReadingComment(ctx context.Context, id, comment string, actorID *int64) error {
	return s.withTx(ctx, fmt.Sprintf("update comment of reading %s", id), func(tx *sql.Tx) error {
		var previous string
		if err := scanOne(tx.QueryRowContext(ctx, `SELECT comment FROM readings WHERE id = ?`, id), &previous); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE readings SET comment = ? WHERE id = ?`, comment, id); err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		return s.insertAudit(ctx, tx, id, AuditComment, actorID, "", map[string]any{"comment": previous})
	})
}

// ReprocessSnapshot is the state a reprocess replaced, stored in the audit
// row.
type ReprocessSnapshot struct {
	ConfigHash    string              `json:"config_hash"`
	EngineVersion string              `json:"engine_version"`
	Outputs       []model.OutputValue `json:"outputs"`
}

// ReplaceOutputs swaps the computed outputs of a stored reading for the
// outputs of r, updates its config hash and engine version, and records the
// previous state in the audit log. All of it happens in one transaction.
func (s *Store) ReplaceOutputs(ctx context.Context, r *model.Reading, actorID *int64, reason string) error {
	return s.withTx(ctx, fmt.Sprintf("replace outputs of reading %s", r.ID), func(tx *sql.Tx) error {
		var prev ReprocessSnapshot
		row := tx.QueryRowContext(ctx, `SELECT config_hash, engine_version FROM readings WHERE id = ?`, r.ID)
		if err := scanOne(row, &prev.ConfigHash, &prev.EngineVersion); err != nil {
			return err
		}
		outputs, err := readOutputs(ctx, tx, r.ID)
		if err != nil {
			return err
		}
		prev.Outputs = outputs

		if _, err := tx.ExecContext(ctx, `DELETE FROM reading_output_values WHERE reading_id = ?`, r.ID); err != nil {
			return fmt.Errorf("delete outputs: %w", err)
		}
		if err := insertOutputs(ctx, tx, r.ID, r.Outputs); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE readings SET config_hash = ?, engine_version = ? WHERE id = ?
		`, r.ConfigHash, r.EngineVersion, r.ID); err != nil {
			return fmt.Errorf("update reading: %w", err)
		}
		return s.insertAudit(ctx, tx, r.ID, AuditReprocess, actorID, reason, prev)
	})
}

func (s *Store) insertAudit(ctx context.Context, tx *sql.Tx, readingID string, action AuditAction, actorID *int64, reason string, previous any) error {
	prevJSON, err := marshalJSON(previous)
	if err != nil {
		return fmt.Errorf("marshal audit: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reading_audit (reading_id, action, actor_id, reason, previous, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, readingID, string(action), nullInt(actorID), reason, prevJSON, s.timestamp())
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// scanOne scans a single-row lookup, mapping no rows to ErrNotFound.
func scanOne(row *sql.Row, dest ...any) error {
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading: %w", ErrNotFound)
	}
	return err
}
