package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// LifecycleOptions holds flags for the invalidate and comment commands.
type LifecycleOptions struct {
	*RootOptions
	Database string
	Reading  string
	Actor    int64
	Reason   string
	Restore  bool
	Text     string
}

// LifecycleResult reports a reading state change.
type LifecycleResult struct {
	Reading string `json:"reading"`
	Action  string `json:"action"`
}

// NewInvalidateCommand creates the invalidate command.
func NewInvalidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LifecycleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Invalidate or restore a reading",
		Long: `Mark a reading inactive. Inactive readings are kept, but history and
statistical limit derivation skip them. --restore reactivates the reading.
Both changes are recorded in the audit log.

Examples:
  geoseg invalidate --reading 0190a3c1-... --actor 7 --reason "sensor fault"
  geoseg invalidate --reading 0190a3c1-... --restore`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvalidate(cmd.Context(), opts, cmd)
		},
	}

	addLifecycleFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "reason recorded in the audit log")
	cmd.Flags().BoolVar(&opts.Restore, "restore", false, "reactivate the reading instead")

	return cmd
}

// NewCommentCommand creates the comment command.
func NewCommentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LifecycleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "comment",
		Short:         "Replace the comment of a reading",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComment(cmd.Context(), opts, cmd)
		},
	}

	addLifecycleFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Text, "text", "", "new comment")

	return cmd
}

func addLifecycleFlags(cmd *cobra.Command, opts *LifecycleOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Reading, "reading", "", "reading id (required)")
	_ = cmd.MarkFlagRequired("reading")
	cmd.Flags().Int64Var(&opts.Actor, "actor", 0, "user id performing the change")
}

func runInvalidate(ctx context.Context, opts *LifecycleOptions, cmd *cobra.Command) error {
	action := "invalidated"
	if opts.Restore {
		action = "restored"
	}
	return runLifecycle(opts, cmd, action, func(o *LifecycleOptions) error {
		st, err := o.openStore(o.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.SetReadingActive(ctx, o.Reading, o.Restore, actorFlag(cmd, o.Actor), o.Reason)
	})
}

func runComment(ctx context.Context, opts *LifecycleOptions, cmd *cobra.Command) error {
	return runLifecycle(opts, cmd, "commented", func(o *LifecycleOptions) error {
		st, err := o.openStore(o.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.UpdateReadingComment(ctx, o.Reading, o.Text, actorFlag(cmd, o.Actor))
	})
}

func runLifecycle(opts *LifecycleOptions, cmd *cobra.Command, action string, apply func(*LifecycleOptions) error) error {
	formatter := opts.formatter(cmd)

	if err := apply(opts); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, fmt.Sprintf("reading %s not %s", opts.Reading, action), err)
	}

	result := LifecycleResult{Reading: opts.Reading, Action: action}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s %s\n", opts.Reading, action)
	return nil
}
