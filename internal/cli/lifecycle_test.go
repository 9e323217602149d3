package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaolima7/geosegbar/internal/model"
)

// seedReadings stores two readings of PZ01 and returns their ids in
// measurement order.
func seedReadings(t *testing.T, db string) (string, string) {
	t.Helper()
	first, _, err := submitJSON(t, db, "--instrument", "1", "--at", "2024-05-01T08:00:00Z", "--input", "L=4.5", "--input", "D=2")
	require.NoError(t, err)
	second, _, err := submitJSON(t, db, "--instrument", "1", "--at", "2024-05-02T08:00:00Z", "--input", "L=3.5", "--input", "D=2")
	require.NoError(t, err)
	return first.ID, second.ID
}

func readHistory(t *testing.T, db string, args ...string) []HistoryPoint {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json", "history", "--db", db}, args...)...)
	require.NoError(t, err, out)
	var points []HistoryPoint
	decodeData(t, out, &points)
	return points
}

func TestHistory(t *testing.T) {
	db := compiledDB(t)
	first, second := seedReadings(t, db)

	points := readHistory(t, db, "--instrument", "1", "--output", "30")
	require.Len(t, points, 2)
	assert.Equal(t, first, points[0].Reading)
	assert.Equal(t, second, points[1].Reading)
	assert.Equal(t, "2024-05-01T08:00:00Z", points[0].MeasuredAt)
	require.NotNil(t, points[1].Value)
	assert.Equal(t, 509.0, *points[1].Value)
	assert.Equal(t, string(model.StatusAttention), points[1].Status)

	assert.Len(t, readHistory(t, db, "--instrument", "1"), 4)
	assert.Len(t, readHistory(t, db, "--instrument", "1", "--output", "30", "--status", "ATENCAO"), 2)
	assert.Empty(t, readHistory(t, db, "--instrument", "1", "--status", "ALERT"))
	assert.Len(t, readHistory(t, db, "--instrument", "1", "--from", "2024-05-02T00:00:00Z"), 2)
	assert.Len(t, readHistory(t, db, "--instrument", "1", "--to", "2024-05-02T00:00:00Z"), 2)
	assert.Len(t, readHistory(t, db, "--instrument", "1", "--limit", "1"), 1)
}

func TestHistoryText(t *testing.T) {
	db := compiledDB(t)

	out, err := execute(t, "history", "--db", db, "--instrument", "1")
	require.NoError(t, err)
	assert.Equal(t, "No values found.\n", out)

	first, _ := seedReadings(t, db)
	out, err = execute(t, "history", "--db", db, "--instrument", "1", "--output", "30")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "MEASURED AT"))
	assert.Contains(t, lines[1], first)
	assert.Contains(t, lines[1], "508")
}

func TestHistoryBadQuery(t *testing.T) {
	db := compiledDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad status", []string{"--instrument", "1", "--status", "RED"}},
		{"bad time", []string{"--instrument", "1", "--from", "May 1"}},
		{"inverted range", []string{"--instrument", "1", "--from", "2024-05-02T00:00:00Z", "--to", "2024-05-01T00:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"history", "--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestInvalidateAndRestore(t *testing.T) {
	db := compiledDB(t)
	first, _ := seedReadings(t, db)

	out, err := execute(t, "invalidate", "--db", db, "--reading", first, "--actor", "7", "--reason", "sensor fault")
	require.NoError(t, err)
	assert.Equal(t, "✓ "+first+" invalidated\n", out)

	assert.Len(t, readHistory(t, db, "--instrument", "1", "--output", "30"), 1)
	all := readHistory(t, db, "--instrument", "1", "--output", "30", "--include-inactive")
	require.Len(t, all, 2)
	assert.False(t, all[0].Active)

	out, err = execute(t, "--format", "json", "invalidate", "--db", db, "--reading", first, "--restore")
	require.NoError(t, err)
	var result LifecycleResult
	decodeData(t, out, &result)
	assert.Equal(t, LifecycleResult{Reading: first, Action: "restored"}, result)

	assert.Len(t, readHistory(t, db, "--instrument", "1", "--output", "30"), 2)
}

func TestCommentCommand(t *testing.T) {
	db := compiledDB(t)
	first, _ := seedReadings(t, db)

	out, err := execute(t, "comment", "--db", db, "--reading", first, "--text", "leitura conferida")
	require.NoError(t, err)
	assert.Equal(t, "✓ "+first+" commented\n", out)
}

func TestLifecycleUnknownReading(t *testing.T) {
	db := compiledDB(t)

	for _, args := range [][]string{
		{"invalidate", "--db", db, "--reading", "missing"},
		{"comment", "--db", db, "--reading", "missing", "--text", "x"},
		{"reprocess", "--db", db, "--reading", "missing"},
	} {
		t.Run(args[0], func(t *testing.T) {
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, ErrCodeStoreFailed)
		})
	}
}

func TestReprocessAfterConfigChange(t *testing.T) {
	db := compiledDB(t)
	first, _ := seedReadings(t, db)

	edited := strings.Replace(damConfig, "value: 512.5", "value: 514.5", 1)
	_, err := execute(t, "compile", writeConfig(t, edited), "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "--format", "json", "reprocess", "--db", db, "--reading", first, "--actor", "7", "--reason", "collar resurveyed")
	require.NoError(t, err)
	var view ReadingView
	decodeData(t, out, &view)
	assert.Equal(t, first, view.ID)
	assert.Equal(t, OutcomePersisted, view.Outcome)
	require.NotNil(t, view.Outputs[0].Value)
	assert.Equal(t, 510.0, *view.Outputs[0].Value)
	assert.Equal(t, string(model.StatusAlert), view.Outputs[0].Status)

	points := readHistory(t, db, "--instrument", "1", "--output", "30")
	require.Len(t, points, 2)
	assert.Equal(t, 510.0, *points[0].Value)
	// Only the reprocessed reading changes.
	assert.Equal(t, 509.0, *points[1].Value)
}

func TestDeriveLimits(t *testing.T) {
	db := compiledDB(t)
	seedReadings(t, db)

	out, err := execute(t, "--format", "json", "derive-limits", "--db", db, "--instrument", "1", "--output", "30", "--min-samples", "2")
	require.NoError(t, err)
	var result DeriveResult
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Samples)
	require.NotNil(t, result.Limit)
	// mean 508.5, sample standard deviation sqrt(0.5)
	assert.InDelta(t, 507.0858, *result.Limit.Attention.Lower, 1e-4)
	assert.InDelta(t, 509.9142, *result.Limit.Attention.Upper, 1e-4)
	assert.InDelta(t, 505.6716, *result.Limit.Emergency.Lower, 1e-4)

	out, err = execute(t, "derive-limits", "--db", db, "--instrument", "1", "--output", "30", "--min-samples", "2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "// instrument 1 output 30, 2 samples\nstatistical: {\n"))
	assert.Contains(t, out, "\tattention: {lower: ")
	assert.Contains(t, out, "\temergency: {lower: ")
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestDeriveLimitsTooFewSamples(t *testing.T) {
	db := compiledDB(t)
	seedReadings(t, db)

	// The configured minimum is 30 samples.
	_, err := execute(t, "derive-limits", "--db", db, "--instrument", "1", "--output", "30")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "need at least 30")
}
