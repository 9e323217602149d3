package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/joaolima7/geosegbar/internal/model"
)

// Query selects historical computed values of an instrument's outputs.
type Query struct {
	InstrumentID int64

	// OutputIDs restricts the series to these outputs. Empty means all.
	OutputIDs []int64

	// From and To bound measured_at. Zero values are unbounded.
	From time.Time
	To   time.Time

	// Statuses restricts the series to values with these statuses. Empty
	// means any status, including failed outputs that have none.
	Statuses []model.LimitStatus

	IncludeInactive bool

	// OnlyComputed drops outputs that carry a failure marker.
	OnlyComputed bool

	// Limit caps the number of points. Zero means no limit.
	Limit int
}

// Validate checks the query for values that cannot match anything or that
// indicate a caller bug. It reports every problem found.
func (q Query) Validate() error {
	var problems []string
	if q.InstrumentID <= 0 {
		problems = append(problems, fmt.Sprintf("instrument id must be positive, got %d", q.InstrumentID))
	}
	seen := make(map[int64]bool, len(q.OutputIDs))
	for _, id := range q.OutputIDs {
		if id <= 0 {
			problems = append(problems, fmt.Sprintf("output id must be positive, got %d", id))
		}
		if seen[id] {
			problems = append(problems, fmt.Sprintf("output id %d listed twice", id))
		}
		seen[id] = true
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		problems = append(problems, fmt.Sprintf("from %s is not before to %s",
			model.FormatTimestamp(q.From), model.FormatTimestamp(q.To)))
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			problems = append(problems, fmt.Sprintf("unknown status %q", st))
		}
	}
	if q.Limit < 0 {
		problems = append(problems, fmt.Sprintf("limit must not be negative, got %d", q.Limit))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid history query: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Columns lists the selected columns in scan order.
var Columns = []string{
	"r.id", "r.measured_at", "o.output_id", "o.value", "o.raw_value", "o.status", "o.error_kind", "r.active",
}

// Compile converts a validated query into SQL and its parameters.
func Compile(q Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	where := []string{"r.instrument_id = ?"}
	params := []any{q.InstrumentID}

	if len(q.OutputIDs) > 0 {
		where = append(where, "o.output_id IN ("+placeholders(len(q.OutputIDs))+")")
		for _, id := range q.OutputIDs {
			params = append(params, id)
		}
	}
	if !q.From.IsZero() {
		where = append(where, "r.measured_at >= ?")
		params = append(params, model.FormatTimestamp(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "r.measured_at < ?")
		params = append(params, model.FormatTimestamp(q.To))
	}
	if len(q.Statuses) > 0 {
		where = append(where, "o.status IN ("+placeholders(len(q.Statuses))+")")
		for _, st := range q.Statuses {
			params = append(params, string(st))
		}
	}
	if !q.IncludeInactive {
		where = append(where, "r.active = 1")
	}
	if q.OnlyComputed {
		where = append(where, "o.error_kind IS NULL")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(Columns, ", "))
	sb.WriteString(" FROM reading_output_values o JOIN readings r ON r.id = o.reading_id WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	sb.WriteString(" ORDER BY " + stableOrderKey)
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return sb.String(), params, nil
}

// stableOrderKey is appended to every compiled query.
const stableOrderKey = "r.measured_at ASC, r.id COLLATE BINARY ASC, o.output_id ASC"

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
