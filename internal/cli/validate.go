package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joaolima7/geosegbar/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                       `json:"valid"`
	Instruments int                        `json:"instruments"`
	Errors      []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate instrument configuration",
		Long: `Validate the CUE instrument configuration of a directory without
storing it. Every problem is reported, not only the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadInstruments(configDir)
	if loadResult == nil {
		code, message := errorCode(loadErrors[0])
		_ = formatter.Error(code, message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configDir)

	validationErrors := ValidateLoaded(loadResult, loadErrors)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(loadResult.Instruments), validationErrors)
	}
	return outputValidateSuccess(formatter, len(loadResult.Instruments))
}

// ValidateLoaded converts compile errors to validation errors and appends
// the eager validation of the compiled instruments.
func ValidateLoaded(result *LoadResult, compileErrs []error) []compiler.ValidationError {
	var all []compiler.ValidationError
	for _, err := range compileErrs {
		code, message := errorCode(err)
		all = append(all, compiler.ValidationError{Field: "compile", Message: message, Code: code})
	}
	return append(all, compiler.ValidateInstruments(result.Instruments)...)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Instruments: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d instrument(s) valid\n", count)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, count int, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:       false,
				Instruments: count,
				Errors:      errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, err := range errs {
			fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
