package limit

import (
	"math"

	"github.com/joaolima7/geosegbar/internal/model"
)

type band struct {
	status model.LimitStatus
	band   *model.Band
}

func setBands(s *model.StatisticalLimit) []band {
	var out []band
	for _, b := range []band{
		{model.StatusAttention, s.Attention},
		{model.StatusAlert, s.Alert},
		{model.StatusEmergency, s.Emergency},
	} {
		if b.band != nil {
			out = append(out, b)
		}
	}
	return out
}

// ValidateStatistical checks that every band has lower < upper and that the
// bands are nested: moving to a more severe band, lowers never increase and
// uppers never decrease.
func ValidateStatistical(s *model.StatisticalLimit) error {
	bands := setBands(s)
	for _, b := range bands {
		for _, bound := range []*float64{b.band.Lower, b.band.Upper} {
			if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0)) {
				return configErrorf(KindStatistical, s.ID, "%s band bound is not finite", b.status)
			}
		}
		if b.band.Lower != nil && b.band.Upper != nil && *b.band.Lower >= *b.band.Upper {
			return configErrorf(KindStatistical, s.ID, "%s band lower %v is not below upper %v",
				b.status, *b.band.Lower, *b.band.Upper)
		}
	}

	for i := 1; i < len(bands); i++ {
		inner, outer := bands[i-1], bands[i]
		if inner.band.Lower != nil && outer.band.Lower != nil && *outer.band.Lower > *inner.band.Lower {
			return configErrorf(KindStatistical, s.ID, "%s band lower %v is inside %s band lower %v",
				outer.status, *outer.band.Lower, inner.status, *inner.band.Lower)
		}
		if inner.band.Upper != nil && outer.band.Upper != nil && *outer.band.Upper < *inner.band.Upper {
			return configErrorf(KindStatistical, s.ID, "%s band upper %v is inside %s band upper %v",
				outer.status, *outer.band.Upper, inner.status, *inner.band.Upper)
		}
	}
	return nil
}

// ClassifyStatistical returns the most severe band crossed by value.
func ClassifyStatistical(s *model.StatisticalLimit, value float64) (model.LimitStatus, error) {
	if err := ValidateStatistical(s); err != nil {
		return "", err
	}

	status := model.StatusNormal
	for _, b := range setBands(s) {
		below := b.band.Lower != nil && value <= *b.band.Lower
		above := b.band.Upper != nil && value >= *b.band.Upper
		if below || above {
			status = model.Max(status, b.status)
		}
	}
	return status, nil
}

func hasBands(s *model.StatisticalLimit) bool {
	return s.Attention != nil || s.Alert != nil || s.Emergency != nil
}
