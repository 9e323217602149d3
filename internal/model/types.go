package model

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// Instrument is the complete configuration of one physical sensor
// installation.
type Instrument struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Active    bool       `json:"active"`
	NoLimit   bool       `json:"no_limit"` // skip limit classification for every output
	Inputs    []Input    `json:"inputs"`
	Constants []Constant `json:"constants"`
	Outputs   []Output   `json:"outputs"`
}

// Input is a variable whose value arrives with each reading.
type Input struct {
	ID      int64  `json:"id"`
	Acronym string `json:"acronym"`
	Name    string `json:"name"`
	Unit    string `json:"unit,omitempty"`
}

// Constant is a variable with a value fixed at configuration time.
type Constant struct {
	ID      int64   `json:"id"`
	Acronym string  `json:"acronym"`
	Name    string  `json:"name"`
	Unit    string  `json:"unit,omitempty"`
	Value   float64 `json:"value"`
}

// Output is a quantity derived from an equation over inputs and constants.
type Output struct {
	ID        int64  `json:"id"`
	Acronym   string `json:"acronym"`
	Name      string `json:"name"`
	Unit      string `json:"unit,omitempty"`
	Equation  string `json:"equation"`
	Precision int    `json:"precision"` // digits after the decimal point
	Active    bool   `json:"active"`

	Deterministic *DeterministicLimit `json:"deterministic_limit,omitempty"`
	Statistical   *StatisticalLimit   `json:"statistical_limit,omitempty"`
}

// HasLimit reports whether any limit is configured for the output.
func (o Output) HasLimit() bool {
	return o.Deterministic != nil || o.Statistical != nil
}

// Direction is the polarity of a deterministic limit.
type Direction string

const (
	// DirectionInfer derives the polarity from the threshold ordering.
	DirectionInfer Direction = ""

	// DirectionAscending means higher values are more severe.
	DirectionAscending Direction = "ASCENDING"

	// DirectionDescending means lower values are more severe.
	DirectionDescending Direction = "DESCENDING"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInfer, DirectionAscending, DirectionDescending:
		return true
	default:
		return false
	}
}

// DeterministicLimit holds engineer-specified thresholds. Any subset may be
// unset. Ordering between them is not guaranteed by construction.
type DeterministicLimit struct {
	ID        int64     `json:"id"`
	Attention *float64  `json:"attention,omitempty"`
	Alert     *float64  `json:"alert,omitempty"`
	Emergency *float64  `json:"emergency,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Band is a lower/upper pair for one severity of a statistical limit.
type Band struct {
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// StatisticalLimit holds bands derived from the output's history.
// Attention is the innermost band, Emergency the outermost.
type StatisticalLimit struct {
	ID        int64 `json:"id"`
	Attention *Band `json:"attention,omitempty"`
	Alert     *Band `json:"alert,omitempty"`
	Emergency *Band `json:"emergency,omitempty"`
}

// Float returns a pointer to v. Used to build optional thresholds.
func Float(v float64) *float64 {
	return &v
}

// NormalizeAcronym returns the NFC form of an acronym. Acronyms are otherwise
// matched exactly and case-sensitively.
func NormalizeAcronym(s string) string {
	return norm.NFC.String(s)
}

// Input returns the input with the given acronym.
func (i *Instrument) Input(acronym string) (Input, bool) {
	acronym = NormalizeAcronym(acronym)
	for _, in := range i.Inputs {
		if NormalizeAcronym(in.Acronym) == acronym {
			return in, true
		}
	}
	return Input{}, false
}

// Constant returns the constant with the given acronym.
func (i *Instrument) Constant(acronym string) (Constant, bool) {
	acronym = NormalizeAcronym(acronym)
	for _, c := range i.Constants {
		if NormalizeAcronym(c.Acronym) == acronym {
			return c, true
		}
	}
	return Constant{}, false
}

// Output returns the output with the given id.
func (i *Instrument) Output(id int64) (Output, bool) {
	for _, o := range i.Outputs {
		if o.ID == id {
			return o, true
		}
	}
	return Output{}, false
}

// ActiveOutputs returns the active outputs in declaration order.
func (i *Instrument) ActiveOutputs() []Output {
	var active []Output
	for _, o := range i.Outputs {
		if o.Active {
			active = append(active, o)
		}
	}
	return active
}

// ReadingInputValue is one raw measured value submitted with a reading.
type ReadingInputValue struct {
	Acronym string  `json:"acronym"`
	Value   float64 `json:"value"`
}

// ErrorKind classifies a per-output failure stored on a reading.
type ErrorKind string

const (
	ErrorKindParse           ErrorKind = "PARSE"
	ErrorKindUnboundVariable ErrorKind = "UNBOUND_VARIABLE"
	ErrorKindDivisionByZero  ErrorKind = "DIVISION_BY_ZERO"
	ErrorKindDomain          ErrorKind = "DOMAIN"
	ErrorKindOverflow        ErrorKind = "OVERFLOW"
	ErrorKindLimitConfig     ErrorKind = "LIMIT_CONFIG"
)

// OutputValue is the computed result for one output of a reading.
//
// A failed evaluation leaves Value, Raw and Status empty and sets ErrorKind.
// A limit configuration failure keeps Value and Raw but leaves Status empty.
type OutputValue struct {
	OutputID     int64       `json:"output_id"`
	Acronym      string      `json:"acronym"`
	Value        *float64    `json:"value,omitempty"`     // rounded to the output precision
	Raw          *float64    `json:"raw_value,omitempty"` // full precision, used for classification
	Status       LimitStatus `json:"status,omitempty"`
	ErrorKind    ErrorKind   `json:"error_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Failed reports whether the output carries a failure marker.
func (v OutputValue) Failed() bool {
	return v.ErrorKind != ""
}

// Reading is one timestamped measurement event for an instrument.
type Reading struct {
	ID            string              `json:"id"`
	InstrumentID  int64               `json:"instrument_id"`
	MeasuredAt    time.Time           `json:"measured_at"`
	AuthorID      *int64              `json:"author_id,omitempty"` // nil for automated ingestion
	Comment       string              `json:"comment"`
	Active        bool                `json:"active"`
	Inputs        []ReadingInputValue `json:"inputs"`
	Outputs       []OutputValue       `json:"outputs"`
	ConfigHash    string              `json:"config_hash"`
	EngineVersion string              `json:"engine_version"`
	CreatedAt     time.Time           `json:"created_at"`
}

// HasFailures reports whether any output of the reading failed.
func (r *Reading) HasFailures() bool {
	for _, o := range r.Outputs {
		if o.Failed() {
			return true
		}
	}
	return false
}

// Output returns the computed value for an output id.
func (r *Reading) Output(outputID int64) (OutputValue, bool) {
	for _, o := range r.Outputs {
		if o.OutputID == outputID {
			return o, true
		}
	}
	return OutputValue{}, false
}

// Submission is an incoming measurement batch for one instrument.
type Submission struct {
	InstrumentID int64               `json:"instrument_id"`
	MeasuredAt   time.Time           `json:"measured_at"`
	Inputs       []ReadingInputValue `json:"inputs"`
	AuthorID     *int64              `json:"author_id,omitempty"`
	Comment      string              `json:"comment,omitempty"`
}

// SeriesPoint is one historical computed value of an output.
type SeriesPoint struct {
	ReadingID  string      `json:"reading_id"`
	MeasuredAt time.Time   `json:"measured_at"`
	OutputID   int64       `json:"output_id"`
	Value      *float64    `json:"value,omitempty"`
	Raw        *float64    `json:"raw_value,omitempty"`
	Status     LimitStatus `json:"status,omitempty"`
	ErrorKind  ErrorKind   `json:"error_kind,omitempty"`
	Active     bool        `json:"active"`
}

// TimestampLayout is the persisted timestamp format. Fixed width in UTC, so
// lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
