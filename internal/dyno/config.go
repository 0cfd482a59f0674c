package dyno

import (
	"fmt"

	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
)

// Config holds every analysis threshold. All fields have documented
// defaults and are overridable per call; nothing is read from process
// state. Divergent threshold values between historical power-
// calculation paths live here as configuration, not as alternate
// algorithms.
type Config struct {
	// Pull detection
	MinPullRPM          float64 // lower edge of the usable RPM band
	MaxPullRPM          float64 // upper edge of the usable RPM band
	MinPullThrottlePct  float64 // throttle floor to stay inside a pull
	MinPullSamples      int     // candidate windows shorter than this are discarded
	MinAccelerationMps2 float64 // minimum average acceleration over a window

	// WheelslipSpeedDropFraction rejects a window when speed drops by
	// more than this fraction of the previous speed across two
	// consecutive RPM-increasing samples.
	WheelslipSpeedDropFraction float64

	// PullRatioVarianceMax bounds the variance of the instantaneous
	// engine/wheel ratio inside a candidate window.
	PullRatioVarianceMax float64

	// Gear estimation
	GearToleranceDCT float64 // ratio-match tolerance, dual-clutch
	GearTolerance    float64 // ratio-match tolerance, other transmissions
	ShiftRPMRateMin  float64 // RPM/s above which a dual-clutch box counts as mid-shift
	DCTSlipDiscount  float64 // fractional ratio discount applied while mid-shift

	// Shift segmentation (dual-clutch)
	RatioChangeThreshold    float64 // |d(ratio)/dt| that opens a shift event
	ShiftReleaseFraction    float64 // event closes below this fraction of the threshold
	ShiftThrottlePct        float64 // throttle floor for a derivative spike to count as a shift
	SmoothingHalfWidth      int     // half-width of the regression window for the ratio derivative
	GuardWindowSec          float64 // span excluded from segments around each shift boundary
	MinSegmentDurationSec   float64 // shorter segments are invalid
	MinSegmentThrottlePct   float64 // minimum average throttle inside a segment
	SegmentRatioVarianceMax float64 // ratio-stability bound inside a segment

	// WheelspinThrottlePct and WheelspinThrottleFraction drive the
	// wheel-spin heuristic: ratio variance above the stability bound
	// while at least the fraction of samples exceed the throttle level
	// is rejected as probable slip.
	WheelspinThrottlePct      float64
	WheelspinThrottleFraction float64

	// Output
	CurveBinWidthRPM float64 // RPM axis bin width for resampled curves

	// Safety is the per-sample admissibility table.
	Safety telemetry.SafetyLimits
}

// DefaultConfig returns the documented defaults. Callers override
// field-by-field.
func DefaultConfig() Config {
	return Config{
		MinPullRPM:          2000,
		MaxPullRPM:          6500,
		MinPullThrottlePct:  85,
		MinPullSamples:      10,
		MinAccelerationMps2: 1.0,

		WheelslipSpeedDropFraction: 0.30,
		PullRatioVarianceMax:       0.5,

		GearToleranceDCT: 0.5,
		GearTolerance:    0.3,
		ShiftRPMRateMin:  100,
		DCTSlipDiscount:  0.02,

		RatioChangeThreshold:    0.5,
		ShiftReleaseFraction:    0.30,
		ShiftThrottlePct:        80,
		SmoothingHalfWidth:      5,
		GuardWindowSec:          0.5,
		MinSegmentDurationSec:   1.0,
		MinSegmentThrottlePct:   80,
		SegmentRatioVarianceMax: 0.1,

		WheelspinThrottlePct:      90,
		WheelspinThrottleFraction: 0.5,

		CurveBinWidthRPM: 100,

		Safety: telemetry.DefaultSafetyLimits(),
	}
}

// Validate checks the configuration values are internally consistent.
func (c Config) Validate() error {
	errFactory := errors.New()

	checks := []struct {
		ok     bool
		detail string
	}{
		{c.MinPullRPM > 0 && c.MaxPullRPM > c.MinPullRPM,
			fmt.Sprintf("pull RPM band [%g, %g] is not a valid range", c.MinPullRPM, c.MaxPullRPM)},
		{c.MinPullThrottlePct > 0 && c.MinPullThrottlePct <= 100,
			fmt.Sprintf("pull throttle threshold must be in (0, 100], got %g", c.MinPullThrottlePct)},
		{c.MinPullSamples >= 2,
			fmt.Sprintf("minimum pull sample count must be at least 2, got %d", c.MinPullSamples)},
		{c.MinAccelerationMps2 > 0,
			fmt.Sprintf("minimum acceleration must be positive, got %g", c.MinAccelerationMps2)},
		{c.WheelslipSpeedDropFraction > 0 && c.WheelslipSpeedDropFraction < 1,
			fmt.Sprintf("wheelslip speed-drop fraction must be in (0, 1), got %g", c.WheelslipSpeedDropFraction)},
		{c.PullRatioVarianceMax > 0,
			fmt.Sprintf("pull ratio variance bound must be positive, got %g", c.PullRatioVarianceMax)},
		{c.GearTolerance > 0 && c.GearToleranceDCT >= c.GearTolerance,
			fmt.Sprintf("gear tolerances must be positive with DCT ≥ base, got base=%g dct=%g",
				c.GearTolerance, c.GearToleranceDCT)},
		{c.DCTSlipDiscount >= 0 && c.DCTSlipDiscount < 1,
			fmt.Sprintf("DCT slip discount must be in [0, 1), got %g", c.DCTSlipDiscount)},
		{c.RatioChangeThreshold > 0,
			fmt.Sprintf("ratio change threshold must be positive, got %g", c.RatioChangeThreshold)},
		{c.ShiftReleaseFraction > 0 && c.ShiftReleaseFraction < 1,
			fmt.Sprintf("shift release fraction must be in (0, 1), got %g", c.ShiftReleaseFraction)},
		{c.SmoothingHalfWidth >= 1,
			fmt.Sprintf("smoothing half-width must be at least 1, got %d", c.SmoothingHalfWidth)},
		{c.GuardWindowSec >= 0,
			fmt.Sprintf("guard window must be non-negative, got %g", c.GuardWindowSec)},
		{c.MinSegmentDurationSec > 0,
			fmt.Sprintf("minimum segment duration must be positive, got %g", c.MinSegmentDurationSec)},
		{c.SegmentRatioVarianceMax > 0,
			fmt.Sprintf("segment ratio variance bound must be positive, got %g", c.SegmentRatioVarianceMax)},
		{c.WheelspinThrottleFraction > 0 && c.WheelspinThrottleFraction <= 1,
			fmt.Sprintf("wheelspin throttle fraction must be in (0, 1], got %g", c.WheelspinThrottleFraction)},
		{c.CurveBinWidthRPM > 0,
			fmt.Sprintf("curve bin width must be positive, got %g", c.CurveBinWidthRPM)},
	}

	for _, check := range checks {
		if !check.ok {
			return errFactory.WithMessage(ErrInvalidConfig, check.detail)
		}
	}

	return nil
}

// gearTolerance returns the ratio-match tolerance for the transmission:
// wider for a dual-clutch box to absorb clutch slip.
func (c Config) gearTolerance(dualClutch bool) float64 {
	if dualClutch {
		return c.GearToleranceDCT
	}

	return c.GearTolerance
}
