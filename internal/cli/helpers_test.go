package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const damConfig = `package dam

instrument: PZ01: {
	id: 1
	input: L: {id: 10, name: "Leitura", unit: "m"}
	input: D: {id: 11}
	constant: CB: {id: 20, value: 512.5}
	output: COTA: {
		id:        30
		equation:  "CB - L"
		precision: 2
		deterministic: {id: 40, attention: 508, alert: 510, emergency: 511}
	}
	output: RATIO: {
		id:        31
		equation:  "L / D"
		precision: 3
	}
}

instrument: OFF01: {
	id:     2
	active: false
	input: X: {id: 12}
	output: X2: {id: 32, equation: "X * 2", precision: 1}
}
`

const brokenConfig = `package dam

instrument: BAD: {
	id: 9
	input: X: {id: 1}
	output: Y: {id: 2, equation: "X + Q", precision: 1}
}
`

// writeConfig writes src as the only CUE file of a new directory.
func writeConfig(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dam.cue"), []byte(src), 0644))
	return dir
}

// execute runs the root command with a throwaway config file and returns
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	configPath := filepath.Join(t.TempDir(), "geoseg.toml")
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// compiledDB compiles damConfig into a fresh database and returns its path.
func compiledDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "geoseg.db")
	_, err := execute(t, "compile", writeConfig(t, damConfig), "--db", db)
	require.NoError(t, err)
	return db
}

// decodeData decodes the data payload of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v), out)
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
