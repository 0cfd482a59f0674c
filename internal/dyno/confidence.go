package dyno

import (
	"fmt"
	"math"
)

// Rating buckets the confidence score for quick reading.
type Rating string

const (
	RatingHigh   Rating = "high"
	RatingMedium Rating = "medium"
	RatingLow    Rating = "low"
)

// Score is the aggregate confidence in a computed run: a 0–100 value,
// its categorical rating, and one human-readable factor string per
// deduction for the audit trail.
type Score struct {
	Value   float64  `json:"value"`
	Rating  Rating   `json:"rating"`
	Factors []string `json:"factors"`
}

// ScoreInputs are the data-quality, stability, safety-margin and
// shift-count signals the scorer aggregates. The assembler fills them
// from the analyzed windows.
type ScoreInputs struct {
	SampleCount int
	ValidCount  int

	RPMDecreases int

	GearRatioVariance    float64
	AccelerationVariance float64

	MinAFR      float64
	MaxCoolantC float64

	DualClutch      bool
	ShiftsDetected  int
	InvalidSegments int

	AWD               bool
	TorqueSplitKnown  bool
	CouplingLossKnown bool
	SplitFiftyFifty   bool
}

const (
	ratingHighMin   = 80
	ratingMediumMin = 60
)

// ScoreRun starts at 100 and subtracts weighted penalties. Every
// deduction is recorded as a factor string. A run with zero valid
// samples takes the terminal deduction and no further analysis.
func ScoreRun(in ScoreInputs) Score {
	score := 100.0
	var factors []string

	deduct := func(points float64, format string, args ...any) {
		score -= points
		factors = append(factors, fmt.Sprintf("-%g: %s", points, fmt.Sprintf(format, args...)))
	}

	switch {
	case in.SampleCount < 20:
		deduct(30, "only %d samples in the pull (fewer than 20)", in.SampleCount)
	case in.SampleCount < 50:
		deduct(15, "only %d samples in the pull (fewer than 50)", in.SampleCount)
	}

	if in.ValidCount == 0 {
		deduct(50, "no samples were valid for power calculation")
		return finalizeScore(score, factors)
	}

	validFraction := float64(in.ValidCount) / float64(in.SampleCount)
	switch {
	case validFraction < 0.80:
		deduct(20, "only %.0f%% of samples were valid (below 80%%)", validFraction*100)
	case validFraction < 0.95:
		deduct(10, "only %.0f%% of samples were valid (below 95%%)", validFraction*100)
	}

	if in.RPMDecreases > 0 {
		points := math.Min(float64(in.RPMDecreases)*5, 20)
		deduct(points, "%d RPM decreases within the pull", in.RPMDecreases)
	}

	switch {
	case in.GearRatioVariance > 0.5:
		deduct(25, "gear ratio variance %.3f indicates unstable gearing", in.GearRatioVariance)
	case in.GearRatioVariance > 0.1:
		deduct(10, "gear ratio variance %.3f above ideal", in.GearRatioVariance)
	}

	if in.AccelerationVariance > 10 {
		deduct(15, "acceleration variance %.1f (m/s²)² indicates noisy measurement", in.AccelerationVariance)
	}

	switch {
	case in.MinAFR < 12.0:
		deduct(20, "minimum air/fuel ratio %.2f is dangerously rich or misread", in.MinAFR)
	case in.MinAFR < 12.5:
		deduct(10, "minimum air/fuel ratio %.2f approaches the rich limit", in.MinAFR)
	}

	switch {
	case in.MaxCoolantC > 105:
		deduct(15, "coolant peaked at %.1f°C during the pull", in.MaxCoolantC)
	case in.MaxCoolantC > 100:
		deduct(5, "coolant peaked at %.1f°C during the pull", in.MaxCoolantC)
	}

	if in.DualClutch {
		if in.ShiftsDetected == 0 {
			deduct(20, "dual-clutch transmission but no shifts detected")
		}
		if in.InvalidSegments > 0 {
			points := math.Min(float64(in.InvalidSegments)*10, 20)
			deduct(points, "%d segments failed stability validation", in.InvalidSegments)
		}
		if in.ShiftsDetected > 0 {
			points := math.Min(float64(in.ShiftsDetected)*3, 15)
			deduct(points, "%d shift transients interrupt the curve", in.ShiftsDetected)
		}
	}

	if in.AWD {
		switch {
		case !in.TorqueSplitKnown:
			deduct(15, "AWD torque split unknown")
		case !in.CouplingLossKnown:
			deduct(10, "AWD coupling loss unknown")
		}
		if in.SplitFiftyFifty {
			deduct(5, "50/50 torque split is an unverified assumption")
		}
	}

	return finalizeScore(score, factors)
}

func finalizeScore(score float64, factors []string) Score {
	score = math.Min(math.Max(score, 0), 100)

	rating := RatingLow
	switch {
	case score >= ratingHighMin:
		rating = RatingHigh
	case score >= ratingMediumMin:
		rating = RatingMedium
	}

	return Score{
		Value:   score,
		Rating:  rating,
		Factors: factors,
	}
}
