package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/limit"
	"github.com/joaolima7/geosegbar/internal/model"
)

// DeriveOptions holds flags for the derive-limits command.
type DeriveOptions struct {
	*RootOptions
	Database   string
	Instrument int64
	Output     int64
	From       string
	To         string
	MinSamples int
}

// DeriveResult is the derived statistical limit of one output.
type DeriveResult struct {
	Instrument int64                   `json:"instrument_id"`
	Output     int64                   `json:"output_id"`
	Samples    int                     `json:"samples"`
	Limit      *model.StatisticalLimit `json:"statistical_limit"`
}

// NewDeriveLimitsCommand creates the derive-limits command.
func NewDeriveLimitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive-limits",
		Short: "Derive statistical limit bands from an output's history",
		Long: `Derive mean ± k·σ bands for one output from the values of its active,
successfully computed readings. The band widths come from the [statistics]
section of the config file. The result is printed as a CUE fragment ready
to paste into the output's configuration.

Examples:
  geoseg derive-limits --instrument 1 --output 30
  geoseg derive-limits --instrument 1 --output 30 --from 2023-01-01T00:00:00Z`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeriveLimits(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().Int64Var(&opts.Instrument, "instrument", 0, "instrument id (required)")
	cmd.Flags().Int64Var(&opts.Output, "output", 0, "output id (required)")
	_ = cmd.MarkFlagRequired("instrument")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest measurement time, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest measurement time, exclusive (RFC 3339)")
	cmd.Flags().IntVar(&opts.MinSamples, "min-samples", 0, "minimum history size (default from config)")

	return cmd
}

func runDeriveLimits(ctx context.Context, opts *DeriveOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	from, err := parseTimeFlag("from", opts.From)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid time range", err)
	}
	to, err := parseTimeFlag("to", opts.To)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid time range", err)
	}

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	samples, err := st.OutputSamples(ctx, opts.Instrument, opts.Output, from, to)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading samples", err)
	}

	stats := opts.settings().Statistics
	minSamples := stats.MinSamples
	if opts.MinSamples > 0 {
		minSamples = opts.MinSamples
	}
	derived, err := limit.DeriveStatistical(samples, stats.Sigmas(), minSamples)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "cannot derive limits", err)
	}

	result := DeriveResult{
		Instrument: opts.Instrument,
		Output:     opts.Output,
		Samples:    len(samples),
		Limit:      derived,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "// instrument %d output %d, %d samples\n", result.Instrument, result.Output, result.Samples)
	fmt.Fprintln(w, "statistical: {")
	for _, b := range []struct {
		name string
		band *model.Band
	}{
		{"attention", derived.Attention},
		{"alert", derived.Alert},
		{"emergency", derived.Emergency},
	} {
		fmt.Fprintf(w, "\t%s: {lower: %s, upper: %s}\n", b.name, formatBound(b.band.Lower), formatBound(b.band.Upper))
	}
	fmt.Fprintln(w, "}")
	return nil
}

func formatBound(v *float64) string {
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
