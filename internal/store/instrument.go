package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaolima7/geosegbar/internal/model"
)

// SaveInstrument inserts or replaces the configuration of an instrument.
// The stored config hash is recomputed from the configuration.
func (s *Store) SaveInstrument(ctx context.Context, inst *model.Instrument) error {
	hash, err := model.ConfigHash(inst)
	if err != nil {
		return fmt.Errorf("save instrument %d: %w", inst.ID, err)
	}
	config, err := marshalJSON(inst)
	if err != nil {
		return fmt.Errorf("save instrument %d: %w", inst.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instruments (id, name, active, no_limit, config, config_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			active = excluded.active,
			no_limit = excluded.no_limit,
			config = excluded.config,
			config_hash = excluded.config_hash,
			updated_at = excluded.updated_at
	`,
		inst.ID,
		inst.Name,
		boolToInt(inst.Active),
		boolToInt(inst.NoLimit),
		config,
		hash,
		s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("save instrument %d: %w", inst.ID, err)
	}
	return nil
}

// LoadInstrument returns the stored configuration of an instrument.
// Returns an error wrapping ErrNotFound if no such instrument exists.
func (s *Store) LoadInstrument(ctx context.Context, id int64) (*model.Instrument, error) {
	var config string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM instruments WHERE id = ?`, id).Scan(&config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load instrument %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load instrument %d: %w", id, err)
	}
	return unmarshalInstrument(config)
}

// InstrumentSummary is the listing form of a stored instrument.
type InstrumentSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	NoLimit    bool   `json:"no_limit"`
	ConfigHash string `json:"config_hash"`
	UpdatedAt  string `json:"updated_at"`
}

// ListInstruments returns every stored instrument ordered by id.
func (s *Store) ListInstruments(ctx context.Context) ([]InstrumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active, no_limit, config_hash, updated_at
		FROM instruments
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	list := []InstrumentSummary{}
	for rows.Next() {
		var sum InstrumentSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Active, &sum.NoLimit, &sum.ConfigHash, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list instruments: %w", err)
		}
		list = append(list, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}
	return list, nil
}
