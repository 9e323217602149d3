package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/compiler"
)

func TestValidateValidConfig(t *testing.T) {
	out, err := execute(t, "validate", writeConfig(t, damConfig))
	require.NoError(t, err)
	assert.Equal(t, "✓ 2 instrument(s) valid\n", out)
}

func TestValidateValidConfigJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", writeConfig(t, damConfig))
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Instruments)
	assert.Empty(t, result.Errors)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateInvalidConfig(t *testing.T) {
	out, err := execute(t, "validate", writeConfig(t, brokenConfig))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "[E203] instrument.BAD.output.Y")
}

func TestValidateMultipleErrors(t *testing.T) {
	src := `package dam

instrument: A: {
	id: 1
	input: X: {id: 1}
	output: Y: {id: 2, equation: "X + Q", precision: 1}
	output: Z: {
		id: 3
		equation: "X"
		precision: 1
		deterministic: {id: 4, attention: 10, alert: 5, emergency: 20}
	}
}

instrument: B: {
	id: 1
	input: X: {id: 5}
	output: W: {id: 6, equation: "X", precision: 1}
}
`
	out, err := execute(t, "--format", "json", "validate", writeConfig(t, src))
	require.Error(t, err)

	var result ValidationResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	assert.Equal(t, 2, result.Instruments)

	codes := make([]string, len(result.Errors))
	for i, e := range result.Errors {
		codes[i] = e.Code
	}
	assert.Contains(t, codes, compiler.ErrUnknownSymbol)
	assert.Contains(t, codes, compiler.ErrDeterministicLimit)
	assert.Contains(t, codes, compiler.ErrDuplicateInstrument)
}

func TestValidateLoaded(t *testing.T) {
	result := &LoadResult{}
	errs := ValidateLoaded(result, []error{&compiler.CompileError{Field: "instrument.A.id", Message: "id is required"}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeCompile, errs[0].Code)
	assert.Equal(t, "compile", errs[0].Field)
	assert.Equal(t, "instrument.A.id: id is required", errs[0].Message)
}
