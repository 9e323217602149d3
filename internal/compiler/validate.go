package compiler

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/joaolima7/geosegbar/internal/expr"
	"github.com/joaolima7/geosegbar/internal/limit"
	"github.com/joaolima7/geosegbar/internal/model"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateAcronym    = "E201" // acronym duplicated, empty, or both input and constant
	ErrEquationParse       = "E202" // equation does not parse
	ErrUnknownSymbol       = "E203" // equation references an undeclared symbol
	ErrInvalidPrecision    = "E204" // precision outside 0..MaxPrecision
	ErrDeterministicLimit  = "E205" // thresholds non-monotonic or contradict direction
	ErrStatisticalLimit    = "E206" // bands inverted or not nested
	ErrConstantNotFinite   = "E207" // constant is NaN or infinite
	ErrDuplicateOutput     = "E208" // output id or acronym reused
	ErrEmptyEquation       = "E209" // active output without equation
	ErrDuplicateInstrument = "E210" // instrument id reused
)

// MaxPrecision is the largest number of decimal places an output may keep.
const MaxPrecision = 15

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateInstruments validates each instrument and the set as a whole.
// Returns all errors found (does not fail-fast).
func ValidateInstruments(insts []*model.Instrument) []ValidationError {
	var errs []ValidationError
	instrumentIDs := make(map[int64]string)
	outputIDs := make(map[int64]string)

	for _, inst := range insts {
		errs = append(errs, ValidateInstrument(inst)...)

		path := instrumentPath(inst)
		if other, ok := instrumentIDs[inst.ID]; ok {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("id %d already used by instrument %q", inst.ID, other),
				Code:    ErrDuplicateInstrument,
			})
		} else {
			instrumentIDs[inst.ID] = inst.Name
		}

		seen := make(map[int64]bool)
		for _, out := range inst.Outputs {
			if seen[out.ID] {
				continue // reported by ValidateInstrument
			}
			seen[out.ID] = true
			if other, ok := outputIDs[out.ID]; ok {
				errs = append(errs, ValidationError{
					Field:   path + ".output." + out.Acronym + ".id",
					Message: fmt.Sprintf("output id %d already used by instrument %q", out.ID, other),
					Code:    ErrDuplicateOutput,
				})
				continue
			}
			outputIDs[out.ID] = inst.Name
		}
	}
	return errs
}

// ValidateInstrument checks one instrument configuration.
// Returns all errors found (does not fail-fast).
//
// Equations of inactive outputs are not checked, since they are never
// evaluated; their precision and limits are.
func ValidateInstrument(inst *model.Instrument) []ValidationError {
	var errs []ValidationError
	path := instrumentPath(inst)

	symbols := make(map[string]string) // acronym -> "input" | "constant"
	declare := func(kind, acronym string) {
		field := fmt.Sprintf("%s.%s.%s", path, kind, acronym)
		normalized := model.NormalizeAcronym(acronym)
		switch prev, ok := symbols[normalized]; {
		case strings.TrimSpace(acronym) == "":
			errs = append(errs, ValidationError{Field: field, Message: "acronym is empty", Code: ErrDuplicateAcronym})
		case ok && prev == kind:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate %s acronym %q", kind, acronym), Code: ErrDuplicateAcronym})
		case ok:
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("acronym %q is declared as both input and constant", acronym), Code: ErrDuplicateAcronym})
		default:
			symbols[normalized] = kind
		}
	}
	for _, in := range inst.Inputs {
		declare("input", in.Acronym)
	}
	for _, c := range inst.Constants {
		declare("constant", c.Acronym)
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.constant.%s.value", path, c.Acronym),
				Message: fmt.Sprintf("value %v is not finite", c.Value),
				Code:    ErrConstantNotFinite,
			})
		}
	}

	outputIDs := make(map[int64]bool)
	outputAcronyms := make(map[string]bool)
	for _, out := range inst.Outputs {
		field := fmt.Sprintf("%s.output.%s", path, out.Acronym)
		if outputIDs[out.ID] {
			errs = append(errs, ValidationError{Field: field + ".id", Message: fmt.Sprintf("duplicate output id %d", out.ID), Code: ErrDuplicateOutput})
		}
		outputIDs[out.ID] = true
		acronym := model.NormalizeAcronym(out.Acronym)
		if outputAcronyms[acronym] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate output acronym %q", out.Acronym), Code: ErrDuplicateOutput})
		}
		outputAcronyms[acronym] = true

		if out.Precision < 0 || out.Precision > MaxPrecision {
			errs = append(errs, ValidationError{
				Field:   field + ".precision",
				Message: fmt.Sprintf("precision %d outside 0..%d", out.Precision, MaxPrecision),
				Code:    ErrInvalidPrecision,
			})
		}

		if out.Active {
			errs = append(errs, validateEquation(field+".equation", out.Equation, symbols)...)
		}

		for _, err := range limit.Validate(out) {
			errs = append(errs, limitError(field, err))
		}
	}
	return errs
}

func validateEquation(field, equation string, symbols map[string]string) []ValidationError {
	if strings.TrimSpace(equation) == "" {
		return []ValidationError{{Field: field, Message: "equation is empty", Code: ErrEmptyEquation}}
	}
	compiled, err := expr.Parse(equation)
	if err != nil {
		return []ValidationError{{Field: field, Message: err.Error(), Code: ErrEquationParse}}
	}
	var errs []ValidationError
	for _, name := range compiled.Variables() {
		if _, ok := symbols[name]; !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("symbol %q is neither an input nor a constant", name),
				Code:    ErrUnknownSymbol,
			})
		}
	}
	return errs
}

func limitError(field string, err error) ValidationError {
	var ce *limit.ConfigError
	if errors.As(err, &ce) && ce.Limit == limit.KindStatistical {
		return ValidationError{Field: field + ".statistical", Message: ce.Message, Code: ErrStatisticalLimit}
	}
	msg := err.Error()
	if ce != nil {
		msg = ce.Message
	}
	return ValidationError{Field: field + ".deterministic", Message: msg, Code: ErrDeterministicLimit}
}

func instrumentPath(inst *model.Instrument) string {
	return "instrument." + inst.Name
}
