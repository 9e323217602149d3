// Package resolve builds the symbol table an output equation is evaluated
// against.
//
// Constants of the instrument and the input values of one reading are merged
// into a single map keyed by NFC-normalized acronym. Lookups are exact and
// case-sensitive: "X", "x" and "X1" are three different symbols.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joaolima7/geosegbar/internal/model"
)

// Requirement lists the symbols one output's equation references.
type Requirement struct {
	OutputID int64
	Symbols  []string
}

// ResolveError reports every symbol that could not be bound.
// Both lists are sorted and free of duplicates.
type ResolveError struct {
	// Missing holds symbols that are neither a constant nor a submitted input.
	Missing []string

	// Ambiguous holds symbols declared as both an input and a constant.
	Ambiguous []string

	// Outputs holds the ids of the outputs that reference a failing symbol.
	Outputs []int64
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, fmt.Sprintf("ambiguous %s", strings.Join(e.Ambiguous, ", ")))
	}
	return "unresolved symbols: " + strings.Join(parts, "; ")
}

// Bindings merges the instrument's constants with the submitted input values
// and checks that every required symbol is bound exactly once.
//
// Submitted values for acronyms that are not inputs of the instrument are
// ignored here; rejecting them is the caller's decision.
func Bindings(inst *model.Instrument, values []model.ReadingInputValue, reqs []Requirement) (map[string]float64, error) {
	constants := make(map[string]float64, len(inst.Constants))
	for _, c := range inst.Constants {
		constants[model.NormalizeAcronym(c.Acronym)] = c.Value
	}
	declared := make(map[string]bool, len(inst.Inputs))
	for _, in := range inst.Inputs {
		declared[model.NormalizeAcronym(in.Acronym)] = true
	}

	bindings := make(map[string]float64, len(constants)+len(values))
	for k, v := range constants {
		bindings[k] = v
	}
	for _, v := range values {
		acronym := model.NormalizeAcronym(v.Acronym)
		if declared[acronym] {
			bindings[acronym] = v.Value
		}
	}

	missing := make(map[string]bool)
	ambiguous := make(map[string]bool)
	affected := make(map[int64]bool)
	for _, req := range reqs {
		for _, sym := range req.Symbols {
			sym = model.NormalizeAcronym(sym)
			_, isConst := constants[sym]
			switch {
			case isConst && declared[sym]:
				ambiguous[sym] = true
				affected[req.OutputID] = true
			case isConst:
			default:
				if _, ok := bindings[sym]; !ok {
					missing[sym] = true
					affected[req.OutputID] = true
				}
			}
		}
	}

	if len(missing) == 0 && len(ambiguous) == 0 {
		return bindings, nil
	}
	return nil, &ResolveError{
		Missing:   sortedKeys(missing),
		Ambiguous: sortedKeys(ambiguous),
		Outputs:   sortedIDs(affected),
	}
}

// RequiredInputs returns the input acronyms referenced by the requirements,
// sorted. Symbols that are constants or unknown are not included.
func RequiredInputs(inst *model.Instrument, reqs []Requirement) []string {
	required := make(map[string]bool)
	for _, req := range reqs {
		for _, sym := range req.Symbols {
			if _, ok := inst.Input(sym); ok {
				required[model.NormalizeAcronym(sym)] = true
			}
		}
	}
	return sortedKeys(required)
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedIDs(m map[int64]bool) []int64 {
	out := make([]int64, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
