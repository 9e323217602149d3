package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/engine"
	"github.com/joaolima7/geosegbar/internal/model"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "compilation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "dam.cue", "line": "42"}
	err := formatter.Error("E002", "syntax error", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All instruments valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All instruments valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "compilation failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "compilation failed")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "dam.cue"}
	err := formatter.Error("E001", "compilation failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "dam.cue")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing dam.cue")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "MISSING_INPUT",
		Message: "required inputs not submitted",
		Details: []string{"D"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "MISSING_INPUT", decoded.Code)
	assert.Equal(t, "required inputs not submitted", decoded.Message)
}

func TestExitError(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed to open database", assert.AnError)
	assert.Equal(t, "failed to open database: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, "rejected", NewExitError(ExitFailure, "rejected").Error())
}

func sampleReading() *model.Reading {
	return &model.Reading{
		ID:           "reading-0001",
		InstrumentID: 1,
		MeasuredAt:   time.Date(2024, 5, 1, 5, 0, 0, 0, time.FixedZone("BRT", -3*60*60)),
		Active:       true,
		ConfigHash:   "abc",
		Outputs: []model.OutputValue{
			{OutputID: 30, Acronym: "COTA", Value: model.Float(508), Status: model.StatusAttention},
			{OutputID: 31, Acronym: "RATIO", ErrorKind: model.ErrorKindDivisionByZero, ErrorMessage: "division by zero"},
		},
	}
}

func TestNewReadingView(t *testing.T) {
	view := newReadingView(sampleReading())

	assert.Equal(t, "reading-0001", view.ID)
	assert.Equal(t, "2024-05-01T08:00:00Z", view.MeasuredAt)
	assert.Equal(t, OutcomePartial, view.Outcome)
	require.Len(t, view.Outputs, 2)
	assert.Equal(t, "ATTENTION", view.Outputs[0].Status)
	assert.Empty(t, view.Outputs[1].Status)
	assert.Equal(t, "DIVISION_BY_ZERO", view.Outputs[1].Error)
	assert.Nil(t, view.Outputs[1].Value)

	r := sampleReading()
	r.Outputs = r.Outputs[:1]
	assert.Equal(t, OutcomePersisted, newReadingView(r).Outcome)
}

func TestWriteReadingText(t *testing.T) {
	r := sampleReading()
	r.Active = false
	buf := &bytes.Buffer{}
	writeReadingText(buf, newReadingView(r))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "! reading-0001 partial (instrument 1, measured 2024-05-01T08:00:00Z)", lines[0])
	assert.Equal(t, "  (invalidated)", lines[1])
	assert.Equal(t, "  COTA   (30)  508  ATTENTION", lines[2])
	assert.Equal(t, "  RATIO  (31)  -    DIVISION_BY_ZERO: division by zero", lines[3])
}

func TestRejectionDetails(t *testing.T) {
	err := &engine.RejectionError{
		Code:         engine.ErrCodeMissingInput,
		InstrumentID: 1,
		Acronyms:     []string{"D"},
	}
	assert.Equal(t, map[string]any{"instrument_id": int64(1), "acronyms": []string{"D"}}, rejectionDetails(err))
	assert.Nil(t, rejectionDetails(assert.AnError))
}
