package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/store"
)

// NewInstrumentsCommand creates the instruments command.
func NewInstrumentsCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:           "instruments",
		Short:         "List stored instruments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstruments(cmd.Context(), rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runInstruments(ctx context.Context, opts *RootOptions, database string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(database)
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.ListInstruments(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing instruments", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(formatter.Writer, "No instruments stored.")
		return nil
	}
	return writeInstrumentTable(formatter, list)
}

func writeInstrumentTable(formatter *OutputFormatter, list []store.InstrumentSummary) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tNO LIMIT\tCONFIG")
	for _, inst := range list {
		hash := inst.ConfigHash
		if len(hash) > 12 && !formatter.Verbose {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "%d\t%s\t%t\t%t\t%s\n", inst.ID, inst.Name, inst.Active, inst.NoLimit, hash)
	}
	return tw.Flush()
}
