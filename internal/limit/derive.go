package limit

import (
	"fmt"
	"math"

	"github.com/joaolima7/geosegbar/internal/model"
)

// Sigmas holds the band half-widths in standard deviations.
type Sigmas struct {
	Attention float64
	Alert     float64
	Emergency float64
}

// DefaultSigmas is the classic 2/3/4 sigma banding.
var DefaultSigmas = Sigmas{Attention: 2, Alert: 3, Emergency: 4}

// DefaultMinSamples is the smallest history DeriveStatistical accepts by
// default.
const DefaultMinSamples = 30

// Validate checks that the sigmas are positive and strictly increasing.
func (s Sigmas) Validate() error {
	if !(s.Attention > 0 && s.Alert > s.Attention && s.Emergency > s.Alert) {
		return fmt.Errorf("sigmas must satisfy 0 < attention < alert < emergency, got %v/%v/%v",
			s.Attention, s.Alert, s.Emergency)
	}
	return nil
}

// DeriveStatistical computes nested mean ± k·σ bands from historical output
// values, using the sample standard deviation. The caller supplies only
// values of active readings whose output computed successfully.
func DeriveStatistical(samples []float64, sigmas Sigmas, minSamples int) (*model.StatisticalLimit, error) {
	if err := sigmas.Validate(); err != nil {
		return nil, err
	}
	if minSamples < 2 {
		minSamples = 2
	}
	if len(samples) < minSamples {
		return nil, fmt.Errorf("derive statistical limit: %d samples, need at least %d", len(samples), minSamples)
	}

	var sum float64
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("derive statistical limit: sample %v is not finite", v)
		}
		sum += v
	}
	mean := sum / float64(len(samples))

	var sq float64
	for _, v := range samples {
		d := v - mean
		sq += d * d
	}
	sd := math.Sqrt(sq / float64(len(samples)-1))
	if sd == 0 {
		return nil, fmt.Errorf("derive statistical limit: samples have zero variance")
	}

	bandAt := func(k float64) *model.Band {
		return &model.Band{Lower: model.Float(mean - k*sd), Upper: model.Float(mean + k*sd)}
	}
	return &model.StatisticalLimit{
		Attention: bandAt(sigmas.Attention),
		Alert:     bandAt(sigmas.Alert),
		Emergency: bandAt(sigmas.Emergency),
	}, nil
}
