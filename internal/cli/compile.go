package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/compiler"
	"github.com/joaolima7/geosegbar/internal/model"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Database string // store compiled instruments here when set
}

// CompilationResult holds the compiled instruments.
type CompilationResult struct {
	Instruments []*model.Instrument `json:"instruments"`
	Stored      bool                `json:"stored"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-dir>",
		Short: "Compile CUE instrument configuration",
		Long: `Compile the CUE instrument configuration of a directory.

Every instrument is validated eagerly: equations must parse and reference
only declared inputs and constants, and limits must be consistent. With
--db the compiled instruments replace their stored configuration; nothing
is stored if any instrument is invalid.

Examples:
  geoseg compile ./config
  geoseg compile ./config -o instruments.json
  geoseg compile ./config --db ./geoseg.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write compiled instruments as JSON to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store compiled instruments in this SQLite database")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, configDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadInstruments(configDir)
	if loadResult == nil {
		code, message := errorCode(loadErrors[0])
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configDir)

	errs := loadErrors
	for _, ve := range compiler.ValidateInstruments(loadResult.Instruments) {
		errs = append(errs, ve)
	}
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	result := &CompilationResult{Instruments: loadResult.Instruments}
	for _, inst := range result.Instruments {
		formatter.VerboseLog("Compiled instrument %s (id %d)", inst.Name, inst.ID)
	}

	if opts.Output != "" {
		if err := writeInstrumentsFile(result.Instruments, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if opts.Database != "" {
		st, err := opts.openStore(opts.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		for _, inst := range result.Instruments {
			if err := st.SaveInstrument(ctx, inst); err != nil {
				_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "storing instruments", err)
			}
		}
		result.Stored = true
	}

	return outputCompileSuccess(formatter, result, opts)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, opts *CompileOptions) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d instrument(s)\n\n", len(result.Instruments))
	for _, inst := range result.Instruments {
		state := ""
		if !inst.Active {
			state = ", inactive"
		}
		if inst.NoLimit {
			state += ", no limits"
		}
		fmt.Fprintf(w, "  %s (id %d%s): %d input(s), %d constant(s), %d output(s)\n",
			inst.Name, inst.ID, state, len(inst.Inputs), len(inst.Constants), len(inst.Outputs))
	}
	fmt.Fprintln(w)

	if opts.Output != "" {
		fmt.Fprintf(w, "Wrote instruments to %s\n", opts.Output)
	}
	if result.Stored {
		fmt.Fprintf(w, "Stored instruments in %s\n", opts.Database)
	}
	return nil
}

// outputCompileErrors outputs every compilation and validation error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := errorCode(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeInstrumentsFile writes the instruments as indented JSON.
func writeInstrumentsFile(insts []*model.Instrument, filename string) error {
	data, err := json.MarshalIndent(insts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling instruments: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
