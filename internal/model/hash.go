package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainInstrumentConfig = "geoseg/instrument-config/v1"
	DomainEquation         = "geoseg/equation/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EquationFingerprint identifies an equation text after NFC normalization.
// Two spellings that normalize identically share a fingerprint.
func EquationFingerprint(equation string) string {
	return hashWithDomain(DomainEquation, []byte(NormalizeAcronym(equation)))
}

// ConfigHash computes the content hash of an instrument configuration.
// Every field that can change a computed output or its status participates.
func ConfigHash(inst *Instrument) (string, error) {
	canonical, err := MarshalCanonical(instrumentObject(inst))
	if err != nil {
		return "", fmt.Errorf("ConfigHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInstrumentConfig, canonical), nil
}

// MustConfigHash is like ConfigHash but panics on error.
// Use only in tests or when the configuration is known to be valid.
func MustConfigHash(inst *Instrument) string {
	h, err := ConfigHash(inst)
	if err != nil {
		panic(err)
	}
	return h
}

func instrumentObject(inst *Instrument) map[string]any {
	inputs := make([]any, len(inst.Inputs))
	for i, in := range inst.Inputs {
		inputs[i] = map[string]any{
			"id":      in.ID,
			"acronym": in.Acronym,
			"name":    in.Name,
			"unit":    in.Unit,
		}
	}
	constants := make([]any, len(inst.Constants))
	for i, c := range inst.Constants {
		constants[i] = map[string]any{
			"id":      c.ID,
			"acronym": c.Acronym,
			"name":    c.Name,
			"unit":    c.Unit,
			"value":   c.Value,
		}
	}
	outputs := make([]any, len(inst.Outputs))
	for i, o := range inst.Outputs {
		obj := map[string]any{
			"id":        o.ID,
			"acronym":   o.Acronym,
			"name":      o.Name,
			"unit":      o.Unit,
			"equation":  o.Equation,
			"precision": o.Precision,
			"active":    o.Active,
		}
		if d := o.Deterministic; d != nil {
			obj["deterministic_limit"] = withOptional(map[string]any{
				"id":        d.ID,
				"direction": string(d.Direction),
			}, "attention", d.Attention, "alert", d.Alert, "emergency", d.Emergency)
		}
		if s := o.Statistical; s != nil {
			limit := map[string]any{"id": s.ID}
			for name, band := range map[string]*Band{"attention": s.Attention, "alert": s.Alert, "emergency": s.Emergency} {
				if band != nil {
					limit[name] = withOptional(map[string]any{}, "lower", band.Lower, "upper", band.Upper)
				}
			}
			obj["statistical_limit"] = limit
		}
		outputs[i] = obj
	}
	return map[string]any{
		"id":        inst.ID,
		"name":      inst.Name,
		"active":    inst.Active,
		"no_limit":  inst.NoLimit,
		"inputs":    inputs,
		"constants": constants,
		"outputs":   outputs,
	}
}

// withOptional adds name/value pairs to obj, skipping nil values.
func withOptional(obj map[string]any, pairs ...any) map[string]any {
	for i := 0; i+1 < len(pairs); i += 2 {
		if v, ok := pairs[i+1].(*float64); ok && v != nil {
			obj[pairs[i].(string)] = *v
		}
	}
	return obj
}
