package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/model"
)

const selectPrefix = "SELECT r.id, r.measured_at, o.output_id, o.value, o.raw_value, o.status, o.error_kind, r.active" +
	" FROM reading_output_values o JOIN readings r ON r.id = o.reading_id WHERE "

func TestCompileMinimal(t *testing.T) {
	sql, params, err := Compile(Query{InstrumentID: 7})
	require.NoError(t, err)

	assert.Equal(t, selectPrefix+"r.instrument_id = ? AND r.active = 1"+
		" ORDER BY r.measured_at ASC, r.id COLLATE BINARY ASC, o.output_id ASC", sql)
	assert.Equal(t, []any{int64(7)}, params)
}

func TestCompileAllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	sql, params, err := Compile(Query{
		InstrumentID:    7,
		OutputIDs:       []int64{3, 1},
		From:            from,
		To:              to,
		Statuses:        []model.LimitStatus{model.StatusAlert, model.StatusEmergency},
		IncludeInactive: true,
		OnlyComputed:    true,
		Limit:           50,
	})
	require.NoError(t, err)

	assert.Equal(t, selectPrefix+
		"r.instrument_id = ? AND o.output_id IN (?, ?) AND r.measured_at >= ? AND r.measured_at < ?"+
		" AND o.status IN (?, ?) AND o.error_kind IS NULL"+
		" ORDER BY r.measured_at ASC, r.id COLLATE BINARY ASC, o.output_id ASC LIMIT ?", sql)
	assert.Equal(t, []any{
		int64(7), int64(3), int64(1),
		"2024-01-01T00:00:00.000000000Z", "2024-02-01T00:00:00.000000000Z",
		"ALERT", "EMERGENCY", 50,
	}, params)
}

func TestCompileAlwaysOrders(t *testing.T) {
	for _, q := range []Query{
		{InstrumentID: 1},
		{InstrumentID: 1, Limit: 1},
		{InstrumentID: 1, IncludeInactive: true},
	} {
		sql, _, err := Compile(q)
		require.NoError(t, err)
		assert.Contains(t, sql, " ORDER BY r.measured_at ASC, r.id COLLATE BINARY ASC, o.output_id ASC")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := Query{
		InstrumentID: 0,
		OutputIDs:    []int64{2, 2, -1},
		From:         at,
		To:           at,
		Statuses:     []model.LimitStatus{"ATENCAO"},
		Limit:        -1,
	}.Validate()
	require.Error(t, err)

	for _, want := range []string{
		"instrument id must be positive",
		"output id 2 listed twice",
		"output id must be positive, got -1",
		"is not before to",
		`unknown status "ATENCAO"`,
		"limit must not be negative",
	} {
		assert.Contains(t, err.Error(), want)
	}

	_, _, err = Compile(Query{})
	assert.Error(t, err)
}
