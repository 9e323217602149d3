package limit

import (
	"fmt"
	"math"
	"strings"

	"github.com/joaolima7/geosegbar/internal/model"
)

type threshold struct {
	status model.LimitStatus
	value  float64
}

// setThresholds returns the configured thresholds in severity order.
func setThresholds(d *model.DeterministicLimit) []threshold {
	var out []threshold
	for _, t := range []struct {
		status model.LimitStatus
		value  *float64
	}{
		{model.StatusAttention, d.Attention},
		{model.StatusAlert, d.Alert},
		{model.StatusEmergency, d.Emergency},
	} {
		if t.value != nil {
			out = append(out, threshold{status: t.status, value: *t.value})
		}
	}
	return out
}

// Direction returns the effective polarity of a deterministic limit, or a
// ConfigError if the thresholds are inconsistent.
//
// With two or more thresholds set, strictly increasing values in severity
// order mean ascending and strictly decreasing values mean descending. A
// declared direction must agree with that ordering. A single threshold is
// ascending unless declared otherwise.
func Direction(d *model.DeterministicLimit) (model.Direction, error) {
	if !d.Direction.Valid() {
		return "", configErrorf(KindDeterministic, d.ID, "unknown direction %q", d.Direction)
	}

	ts := setThresholds(d)
	for _, t := range ts {
		if math.IsNaN(t.value) || math.IsInf(t.value, 0) {
			return "", configErrorf(KindDeterministic, d.ID, "%s threshold is not finite", t.status)
		}
	}
	if len(ts) < 2 {
		if d.Direction == model.DirectionInfer {
			return model.DirectionAscending, nil
		}
		return d.Direction, nil
	}

	increasing, decreasing := true, true
	for i := 1; i < len(ts); i++ {
		if ts[i].value <= ts[i-1].value {
			increasing = false
		}
		if ts[i].value >= ts[i-1].value {
			decreasing = false
		}
	}

	var inferred model.Direction
	switch {
	case increasing:
		inferred = model.DirectionAscending
	case decreasing:
		inferred = model.DirectionDescending
	default:
		return "", configErrorf(KindDeterministic, d.ID,
			"thresholds %s are neither strictly increasing nor strictly decreasing by severity", describe(ts))
	}

	if d.Direction != model.DirectionInfer && d.Direction != inferred {
		return "", configErrorf(KindDeterministic, d.ID,
			"declared direction %s contradicts thresholds %s", d.Direction, describe(ts))
	}
	return inferred, nil
}

// ValidateDeterministic checks that a deterministic limit can be classified
// against.
func ValidateDeterministic(d *model.DeterministicLimit) error {
	_, err := Direction(d)
	return err
}

// ClassifyDeterministic returns the most severe threshold crossed by value.
func ClassifyDeterministic(d *model.DeterministicLimit, value float64) (model.LimitStatus, error) {
	dir, err := Direction(d)
	if err != nil {
		return "", err
	}

	status := model.StatusNormal
	for _, t := range setThresholds(d) {
		crossed := value >= t.value
		if dir == model.DirectionDescending {
			crossed = value <= t.value
		}
		if crossed {
			status = model.Max(status, t.status)
		}
	}
	return status, nil
}

func hasThresholds(d *model.DeterministicLimit) bool {
	return d.Attention != nil || d.Alert != nil || d.Emergency != nil
}

func describe(ts []threshold) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("%s=%v", strings.ToLower(string(t.status)), t.value)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
