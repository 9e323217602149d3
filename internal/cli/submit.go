package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/joaolima7/geosegbar/internal/engine"
	"github.com/joaolima7/geosegbar/internal/harness"
	"github.com/joaolima7/geosegbar/internal/model"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Database   string
	Instrument int64
	At         string
	Inputs     []string // ACRONYM=value
	Author     int64
	Comment    string
	File       string
}

// BatchFile is the YAML form of a batch submission.
type BatchFile struct {
	Submissions []harness.SubmitStep `yaml:"submissions"`
}

// BatchItem is the outcome of one batch submission.
type BatchItem struct {
	Index      int    `json:"index"`
	Instrument int64  `json:"instrument_id"`
	Reading    string `json:"reading,omitempty"`
	Outcome    string `json:"outcome"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// BatchResult summarizes a batch submission.
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Persisted int         `json:"persisted"`
	Partial   int         `json:"partial"`
	Rejected  int         `json:"rejected"`
	Errors    int         `json:"errors"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a measurement and compute its outputs",
		Long: `Submit raw input values for an instrument. The reading is computed,
classified against the instrument's limits and stored.

A submission with missing, unknown, duplicated or non-finite inputs is
rejected and nothing is stored. An output whose equation fails is stored
with a failure marker; the other outputs are unaffected.

With --file, every submission of a YAML batch is processed. Instruments
are processed concurrently; submissions of one instrument keep file order.

Exit codes:
  0 - Every submission was stored
  1 - At least one submission was rejected
  2 - Command error (database not found, etc.)

Examples:
  geoseg submit --instrument 1 --at 2024-05-01T08:00:00Z --input L=4.5 --input D=2
  geoseg submit --file readings.yaml --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.File != "" {
				return runSubmitBatch(cmd.Context(), opts, cmd)
			}
			return runSubmit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().Int64Var(&opts.Instrument, "instrument", 0, "instrument id")
	cmd.Flags().StringVar(&opts.At, "at", "", "measurement time, RFC 3339 (default now)")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "input value as ACRONYM=value (repeatable)")
	cmd.Flags().Int64Var(&opts.Author, "author", 0, "author user id")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "free-text comment")
	cmd.Flags().StringVar(&opts.File, "file", "", "YAML batch of submissions")
	cmd.MarkFlagsMutuallyExclusive("file", "instrument")

	return cmd
}

func runSubmit(ctx context.Context, opts *SubmitOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sub, err := opts.submission(cmd)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid submission", err)
	}

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := opts.newEngine(st)
	if err != nil {
		return err
	}
	r, err := eng.Submit(ctx, sub)
	if mErr := opts.writeMetrics(); mErr != nil && err == nil {
		return mErr
	}
	if err != nil {
		return outputEngineError(formatter, err)
	}

	view := newReadingView(r)
	if formatter.Format == "json" {
		return formatter.Success(view)
	}
	writeReadingText(formatter.Writer, view)
	return nil
}

// submission builds the engine submission from flags.
func (o *SubmitOptions) submission(cmd *cobra.Command) (model.Submission, error) {
	if o.Instrument <= 0 {
		return model.Submission{}, fmt.Errorf("--instrument is required")
	}
	at := time.Now().UTC()
	if o.At != "" {
		parsed, err := time.Parse(time.RFC3339Nano, o.At)
		if err != nil {
			return model.Submission{}, fmt.Errorf("--at: %w", err)
		}
		at = parsed
	}

	sub := model.Submission{
		InstrumentID: o.Instrument,
		MeasuredAt:   at,
		Comment:      o.Comment,
	}
	if cmd.Flags().Changed("author") {
		author := o.Author
		sub.AuthorID = &author
	}
	for _, raw := range o.Inputs {
		in, err := parseInput(raw)
		if err != nil {
			return model.Submission{}, err
		}
		sub.Inputs = append(sub.Inputs, in)
	}
	return sub, nil
}

// parseInput parses ACRONYM=value. Duplicates are left for the engine to
// reject.
func parseInput(raw string) (model.ReadingInputValue, error) {
	acronym, value, ok := strings.Cut(raw, "=")
	acronym = strings.TrimSpace(acronym)
	if !ok || acronym == "" {
		return model.ReadingInputValue{}, fmt.Errorf("--input %q: expected ACRONYM=value", raw)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return model.ReadingInputValue{}, fmt.Errorf("--input %q: %w", raw, err)
	}
	return model.ReadingInputValue{Acronym: acronym, Value: v}, nil
}

// LoadBatch reads a YAML batch file with strict field validation.
func LoadBatch(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var batch BatchFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&batch); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(batch.Submissions) == 0 {
		return nil, fmt.Errorf("batch file has no submissions")
	}
	return &batch, nil
}

func runSubmitBatch(ctx context.Context, opts *SubmitOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	batch, err := LoadBatch(opts.File)
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid batch", err)
	}

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := opts.newEngine(st)
	if err != nil {
		return err
	}
	result := SubmitBatch(ctx, eng, batch.Submissions, opts.settings().Engine.BatchWorkers)
	formatter.VerboseLog("Processed %d submission(s)", len(result.Items))
	if err := opts.writeMetrics(); err != nil {
		return err
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputBatchText(formatter, result)
	}

	if failed := result.Rejected + result.Errors; failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d submission(s) not stored", failed))
	}
	return nil
}

// SubmitBatch submits every step. Different instruments run concurrently on
// at most workers goroutines; the submissions of one instrument run in
// order.
func SubmitBatch(ctx context.Context, eng *engine.Engine, steps []harness.SubmitStep, workers int) *BatchResult {
	items := make([]BatchItem, len(steps))

	var order []int64
	groups := make(map[int64][]int)
	for i, step := range steps {
		if _, ok := groups[step.Instrument]; !ok {
			order = append(order, step.Instrument)
		}
		groups[step.Instrument] = append(groups[step.Instrument], i)
	}

	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, id := range order {
		indexes := groups[id]
		g.Go(func() error {
			for _, i := range indexes {
				items[i] = submitStep(ctx, eng, i, &steps[i])
			}
			return nil
		})
	}
	_ = g.Wait() // workers record failures per item

	result := &BatchResult{Items: items}
	for _, item := range items {
		switch item.Outcome {
		case OutcomePersisted:
			result.Persisted++
		case OutcomePartial:
			result.Partial++
		case OutcomeRejected:
			result.Rejected++
		default:
			result.Errors++
		}
	}
	return result
}

func submitStep(ctx context.Context, eng *engine.Engine, index int, step *harness.SubmitStep) BatchItem {
	item := BatchItem{Index: index, Instrument: step.Instrument}

	sub, err := step.Submission()
	if err != nil {
		item.Outcome = OutcomeError
		item.Message = err.Error()
		return item
	}

	r, err := eng.Submit(ctx, sub)
	switch {
	case engine.IsRejection(err):
		item.Outcome = OutcomeRejected
		item.Code = string(engine.Code(err))
		item.Message = err.Error()
	case err != nil:
		item.Outcome = OutcomeError
		item.Message = err.Error()
	default:
		item.Reading = r.ID
		item.Outcome = newReadingView(r).Outcome
	}
	return item
}

func outputBatchText(formatter *OutputFormatter, result *BatchResult) {
	w := formatter.Writer
	for _, item := range result.Items {
		switch item.Outcome {
		case OutcomePersisted, OutcomePartial:
			fmt.Fprintf(w, "✓ [%d] %s %s (instrument %d)\n", item.Index, item.Reading, item.Outcome, item.Instrument)
		default:
			fmt.Fprintf(w, "✗ [%d] instrument %d %s: %s\n", item.Index, item.Instrument, item.Outcome, item.Message)
		}
	}
	fmt.Fprintf(w, "\nBatch: %d persisted, %d partial, %d rejected, %d error(s)\n",
		result.Persisted, result.Partial, result.Rejected, result.Errors)
}

// outputEngineError reports a rejection (exit 1) or a command error (exit 2).
func outputEngineError(formatter *OutputFormatter, err error) error {
	if engine.IsRejection(err) {
		code := string(engine.Code(err))
		_ = formatter.Error(code, err.Error(), rejectionDetails(err))
		return WrapExitError(ExitFailure, "rejected", err)
	}
	_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
	return WrapExitError(ExitCommandError, "operation failed", err)
}
