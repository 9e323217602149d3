package limit

import (
	"fmt"
	"math"

	"github.com/joaolima7/geosegbar/internal/model"
)

// Classify returns the limit status of an unrounded output value.
//
// noLimit, or an output with no configured limit, yields NORMAL without any
// comparison. When both limits are configured the deterministic one decides;
// its configuration error is returned rather than falling back to the
// statistical limit. A deterministic limit with no threshold set counts as
// not configured.
func Classify(noLimit bool, out model.Output, value float64) (model.LimitStatus, error) {
	if noLimit {
		return model.StatusNormal, nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("classify output %d: value %v is not finite", out.ID, value)
	}

	switch {
	case out.Deterministic != nil && hasThresholds(out.Deterministic):
		return ClassifyDeterministic(out.Deterministic, value)
	case out.Statistical != nil && hasBands(out.Statistical):
		return ClassifyStatistical(out.Statistical, value)
	case out.Deterministic != nil:
		// Thresholds all unset; still reject an unknown direction.
		if err := ValidateDeterministic(out.Deterministic); err != nil {
			return "", err
		}
		return model.StatusNormal, nil
	default:
		return model.StatusNormal, nil
	}
}

// Validate checks every limit configured on the output.
// It returns all problems found, deterministic first.
func Validate(out model.Output) []error {
	var errs []error
	if out.Deterministic != nil {
		if err := ValidateDeterministic(out.Deterministic); err != nil {
			errs = append(errs, err)
		}
	}
	if out.Statistical != nil {
		if err := ValidateStatistical(out.Statistical); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
