package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/config"
	"github.com/joaolima7/geosegbar/internal/engine"
	"github.com/joaolima7/geosegbar/internal/metrics"
	"github.com/joaolima7/geosegbar/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Format      string // "json" | "text"
	ConfigPath  string
	MetricsFile string // Prometheus textfile written after submit/reprocess

	// Config and Logger are resolved before a subcommand runs. Tests may set
	// Config directly to skip loading a file.
	Config *config.Config
	Logger *slog.Logger

	registry *prometheus.Registry
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the geoseg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "geoseg",
		Short: "geoseg - dam instrumentation reading engine",
		Long: `Computes dam-safety instrument readings: evaluates output equations over
measured inputs and constants, and classifies each value against
deterministic or statistical limits.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.init(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "path to TOML config file")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write engine metrics in Prometheus text format to this file")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInstrumentsCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewReprocessCommand(opts))
	cmd.AddCommand(NewInvalidateCommand(opts))
	cmd.AddCommand(NewCommentCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewDeriveLimitsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// init loads the configuration file and installs the logger.
func (o *RootOptions) init(cmd *cobra.Command) error {
	if o.Config == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		o.Config = cfg
	}

	logCfg := o.Config.Log
	if o.Verbose {
		logCfg.Level = "debug"
	}
	o.Logger = config.NewLogger(cmd.ErrOrStderr(), logCfg)
	slog.SetDefault(o.Logger)
	return nil
}

func (o *RootOptions) settings() *config.Config {
	if o.Config == nil {
		cfg := config.Default()
		o.Config = &cfg
	}
	return o.Config
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// openStore opens the database named by the --db flag, falling back to the
// configured path.
func (o *RootOptions) openStore(dbFlag string) (*store.Store, error) {
	path := dbFlag
	if path == "" {
		path = o.settings().Database.Path
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newEngine creates an engine on st. With --metrics-file the engine records
// into a fresh registry that writeMetrics later dumps.
func (o *RootOptions) newEngine(st *store.Store) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLogger(o.logger())}
	if o.MetricsFile != "" {
		o.registry = prometheus.NewRegistry()
		m, err := metrics.NewEngineMetrics(o.registry)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
		opts = append(opts, engine.WithMetrics(m))
	}
	return engine.New(st, opts...), nil
}

// writeMetrics writes the engine metrics gathered so far to --metrics-file.
// It is a no-op without the flag.
func (o *RootOptions) writeMetrics() error {
	if o.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(o.MetricsFile, o.registry); err != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", err)
	}
	o.logger().Debug("metrics written", "path", o.MetricsFile)
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
