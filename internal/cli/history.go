package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/history"
	"github.com/joaolima7/geosegbar/internal/model"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database        string
	Instrument      int64
	Outputs         []int64
	From            string
	To              string
	Statuses        []string
	IncludeInactive bool
	Limit           int
}

// HistoryPoint is the output form of a series point.
type HistoryPoint struct {
	Reading    string   `json:"reading"`
	MeasuredAt string   `json:"measured_at"`
	OutputID   int64    `json:"output_id"`
	Value      *float64 `json:"value,omitempty"`
	Status     string   `json:"status,omitempty"`
	Error      string   `json:"error,omitempty"`
	Active     bool     `json:"active"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List computed output values of an instrument",
		Long: `List the computed output values of an instrument in measurement order.
Invalidated readings are skipped unless --include-inactive is given.

Examples:
  geoseg history --instrument 1
  geoseg history --instrument 1 --output 30 --status ALERT --status EMERGENCY
  geoseg history --instrument 1 --from 2024-01-01T00:00:00Z --limit 100`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().Int64Var(&opts.Instrument, "instrument", 0, "instrument id (required)")
	_ = cmd.MarkFlagRequired("instrument")
	cmd.Flags().Int64SliceVar(&opts.Outputs, "output", nil, "restrict to these output ids")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest measurement time, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest measurement time, exclusive (RFC 3339)")
	cmd.Flags().StringArrayVar(&opts.Statuses, "status", nil, "restrict to this limit status (repeatable)")
	cmd.Flags().BoolVar(&opts.IncludeInactive, "include-inactive", false, "include invalidated readings")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of points (0 = all)")

	return cmd
}

func (o *HistoryOptions) query() (history.Query, error) {
	q := history.Query{
		InstrumentID:    o.Instrument,
		OutputIDs:       o.Outputs,
		IncludeInactive: o.IncludeInactive,
		Limit:           o.Limit,
	}
	var err error
	if q.From, err = parseTimeFlag("from", o.From); err != nil {
		return q, err
	}
	if q.To, err = parseTimeFlag("to", o.To); err != nil {
		return q, err
	}
	for _, s := range o.Statuses {
		status, err := model.ParseLimitStatus(s)
		if err != nil {
			return q, err
		}
		q.Statuses = append(q.Statuses, status)
	}
	return q, q.Validate()
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	q, err := opts.query()
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid history query", err)
	}

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	series, err := st.ReadOutputSeries(ctx, q)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading history", err)
	}

	points := make([]HistoryPoint, len(series))
	for i, p := range series {
		points[i] = HistoryPoint{
			Reading:    p.ReadingID,
			MeasuredAt: p.MeasuredAt.UTC().Format(time.RFC3339Nano),
			OutputID:   p.OutputID,
			Value:      p.Value,
			Status:     string(p.Status),
			Error:      string(p.ErrorKind),
			Active:     p.Active,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(points)
	}
	if len(points) == 0 {
		fmt.Fprintln(formatter.Writer, "No values found.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MEASURED AT\tREADING\tOUTPUT\tVALUE\tSTATUS")
	for _, p := range points {
		value := "-"
		if p.Value != nil {
			value = strconv.FormatFloat(*p.Value, 'f', -1, 64)
		}
		state := p.Status
		if p.Error != "" {
			state = p.Error
		}
		if !p.Active {
			state += " (invalidated)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.MeasuredAt, p.Reading, p.OutputID, value, state)
	}
	return tw.Flush()
}

// parseTimeFlag parses an optional RFC 3339 flag value.
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
