// Package compiler turns CUE instrument configuration into model.Instrument
// values and validates them eagerly.
//
// An instrument is declared under the top-level "instrument" struct, keyed
// by its name:
//
//	instrument: "PZ-01": {
//		id:     1
//		active: true // default true
//		no_limit: false // default false
//		input: L: {id: 10, name: "Leitura", unit: "m"}
//		constant: CB: {id: 20, name: "Cota da boca", value: 512.4}
//		output: COTA: {
//			id:        30
//			equation:  "CB - L"
//			precision: 2
//			deterministic: {id: 40, attention: 508, alert: 510, direction: "ASCENDING"}
//			statistical: {id: 41, alert: {lower: 495, upper: 511}}
//		}
//	}
//
// Input, constant and output labels are their acronyms; declaration order is
// preserved. Acronyms that are not CUE identifiers (for example "π") are
// written as quoted labels.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/joaolima7/geosegbar/internal/model"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileSource compiles CUE source text holding an "instrument" struct.
// filename is used in error positions only.
func CompileSource(filename, src string) ([]*model.Instrument, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return CompileValue(v)
}

// CompileValue compiles every instrument declared under the top-level
// "instrument" struct of v, in declaration order.
// Returns all errors found (does not fail-fast).
func CompileValue(v cue.Value) ([]*model.Instrument, []error) {
	instVal := v.LookupPath(cue.ParsePath("instrument"))
	if !instVal.Exists() {
		return nil, []error{&CompileError{
			Field:   "instrument",
			Message: "no instruments declared",
			Pos:     v.Pos(),
		}}
	}

	iter, err := instVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		insts []*model.Instrument
		errs  []error
	)
	for iter.Next() {
		inst, err := CompileInstrument(iter.Label(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		insts = append(insts, inst)
	}
	return insts, errs
}

// CompileInstrument parses one instrument struct.
func CompileInstrument(name string, v cue.Value) (*model.Instrument, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	path := "instrument." + name
	if err := checkFields(path, v, "id", "active", "no_limit", "input", "constant", "output"); err != nil {
		return nil, err
	}

	inst := &model.Instrument{Name: name}
	var err error
	if inst.ID, err = requiredInt(path, v, "id"); err != nil {
		return nil, err
	}
	if inst.Active, err = optionalBool(path, v, "active", true); err != nil {
		return nil, err
	}
	if inst.NoLimit, err = optionalBool(path, v, "no_limit", false); err != nil {
		return nil, err
	}

	err = eachField(path, v, "input", func(acronym string, fv cue.Value) error {
		in, err := compileInput(path+".input."+acronym, acronym, fv)
		if err == nil {
			inst.Inputs = append(inst.Inputs, in)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachField(path, v, "constant", func(acronym string, fv cue.Value) error {
		c, err := compileConstant(path+".constant."+acronym, acronym, fv)
		if err == nil {
			inst.Constants = append(inst.Constants, c)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	err = eachField(path, v, "output", func(acronym string, fv cue.Value) error {
		out, err := compileOutput(path+".output."+acronym, acronym, fv)
		if err == nil {
			inst.Outputs = append(inst.Outputs, out)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return inst, nil
}

func compileInput(path, acronym string, v cue.Value) (model.Input, error) {
	in := model.Input{Acronym: acronym}
	if err := checkFields(path, v, "id", "name", "unit"); err != nil {
		return in, err
	}
	var err error
	if in.ID, err = requiredInt(path, v, "id"); err != nil {
		return in, err
	}
	if in.Name, err = optionalString(path, v, "name"); err != nil {
		return in, err
	}
	in.Unit, err = optionalString(path, v, "unit")
	return in, err
}

func compileConstant(path, acronym string, v cue.Value) (model.Constant, error) {
	c := model.Constant{Acronym: acronym}
	if err := checkFields(path, v, "id", "name", "unit", "value"); err != nil {
		return c, err
	}
	var err error
	if c.ID, err = requiredInt(path, v, "id"); err != nil {
		return c, err
	}
	if c.Name, err = optionalString(path, v, "name"); err != nil {
		return c, err
	}
	if c.Unit, err = optionalString(path, v, "unit"); err != nil {
		return c, err
	}
	value, err := optionalFloat(path, v, "value")
	if err != nil {
		return c, err
	}
	if value == nil {
		return c, &CompileError{Field: path + ".value", Message: "value is required", Pos: v.Pos()}
	}
	c.Value = *value
	return c, nil
}

func compileOutput(path, acronym string, v cue.Value) (model.Output, error) {
	out := model.Output{Acronym: acronym}
	if err := checkFields(path, v, "id", "name", "unit", "equation", "precision", "active", "deterministic", "statistical"); err != nil {
		return out, err
	}
	var err error
	if out.ID, err = requiredInt(path, v, "id"); err != nil {
		return out, err
	}
	if out.Name, err = optionalString(path, v, "name"); err != nil {
		return out, err
	}
	if out.Unit, err = optionalString(path, v, "unit"); err != nil {
		return out, err
	}
	if out.Equation, err = optionalString(path, v, "equation"); err != nil {
		return out, err
	}
	precision, err := requiredInt(path, v, "precision")
	if err != nil {
		return out, err
	}
	out.Precision = int(precision)
	if out.Active, err = optionalBool(path, v, "active", true); err != nil {
		return out, err
	}

	if dv := v.LookupPath(cue.ParsePath("deterministic")); dv.Exists() {
		if out.Deterministic, err = compileDeterministic(path+".deterministic", dv); err != nil {
			return out, err
		}
	}
	if sv := v.LookupPath(cue.ParsePath("statistical")); sv.Exists() {
		if out.Statistical, err = compileStatistical(path+".statistical", sv); err != nil {
			return out, err
		}
	}
	return out, nil
}

func compileDeterministic(path string, v cue.Value) (*model.DeterministicLimit, error) {
	if err := checkFields(path, v, "id", "attention", "alert", "emergency", "direction"); err != nil {
		return nil, err
	}
	d := &model.DeterministicLimit{}
	var err error
	if d.ID, err = requiredInt(path, v, "id"); err != nil {
		return nil, err
	}
	if d.Attention, err = optionalFloat(path, v, "attention"); err != nil {
		return nil, err
	}
	if d.Alert, err = optionalFloat(path, v, "alert"); err != nil {
		return nil, err
	}
	if d.Emergency, err = optionalFloat(path, v, "emergency"); err != nil {
		return nil, err
	}
	direction, err := optionalString(path, v, "direction")
	if err != nil {
		return nil, err
	}
	d.Direction = model.Direction(direction)
	if !d.Direction.Valid() {
		return nil, &CompileError{
			Field:   path + ".direction",
			Message: fmt.Sprintf("direction must be %q or %q, got %q", model.DirectionAscending, model.DirectionDescending, direction),
			Pos:     v.LookupPath(cue.ParsePath("direction")).Pos(),
		}
	}
	return d, nil
}

func compileStatistical(path string, v cue.Value) (*model.StatisticalLimit, error) {
	if err := checkFields(path, v, "id", "attention", "alert", "emergency"); err != nil {
		return nil, err
	}
	s := &model.StatisticalLimit{}
	var err error
	if s.ID, err = requiredInt(path, v, "id"); err != nil {
		return nil, err
	}
	if s.Attention, err = compileBand(path, v, "attention"); err != nil {
		return nil, err
	}
	if s.Alert, err = compileBand(path, v, "alert"); err != nil {
		return nil, err
	}
	if s.Emergency, err = compileBand(path, v, "emergency"); err != nil {
		return nil, err
	}
	return s, nil
}

func compileBand(path string, v cue.Value, field string) (*model.Band, error) {
	bv := v.LookupPath(cue.ParsePath(field))
	if !bv.Exists() {
		return nil, nil
	}
	path += "." + field
	if err := checkFields(path, bv, "lower", "upper"); err != nil {
		return nil, err
	}
	b := &model.Band{}
	var err error
	if b.Lower, err = optionalFloat(path, bv, "lower"); err != nil {
		return nil, err
	}
	if b.Upper, err = optionalFloat(path, bv, "upper"); err != nil {
		return nil, err
	}
	return b, nil
}

// eachField calls fn for every field of the optional struct v.field, in
// declaration order, stopping at the first error.
func eachField(path string, v cue.Value, field string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(field))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return &CompileError{Field: path + "." + field, Message: "must be a struct", Pos: sv.Pos()}
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// checkFields rejects fields outside allowed. CUE structs are open, so a
// misspelled field would otherwise be ignored silently.
func checkFields(path string, v cue.Value, allowed ...string) error {
	iter, err := v.Fields()
	if err != nil {
		return &CompileError{Field: path, Message: "must be a struct", Pos: v.Pos()}
	}
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}
	for iter.Next() {
		if !known[iter.Label()] {
			return &CompileError{
				Field:   path + "." + iter.Label(),
				Message: "unknown field",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func requiredInt(path string, v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{Field: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, &CompileError{Field: path + "." + field, Message: "must be an integer", Pos: fv.Pos()}
	}
	return n, nil
}

func optionalFloat(path string, v cue.Value, field string) (*float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return nil, &CompileError{Field: path + "." + field, Message: "must be a number", Pos: fv.Pos()}
	}
	return &f, nil
}

func optionalString(path string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: path + "." + field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalBool(path string, v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: path + "." + field, Message: "must be a boolean", Pos: fv.Pos()}
	}
	return b, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
