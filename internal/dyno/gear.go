package dyno

import (
	"math"

	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

const secondsPerMinute = 60

// WheelRPM converts linear speed to wheel rotational speed. Returns 0
// for zero or negative speed.
func WheelRPM(speedMps, tireRadiusM float64) float64 {
	if speedMps <= 0 || tireRadiusM <= 0 {
		return 0
	}

	return speedMps / (2 * math.Pi * tireRadiusM) * secondsPerMinute
}

// EffectiveRatio is engine angular speed over wheel angular speed at a
// given instant, independent of which discrete gear is engaged.
// Returns 0 when the wheel speed is zero.
func EffectiveRatio(engineRPM, speedMps, tireRadiusM float64) float64 {
	wheel := WheelRPM(speedMps, tireRadiusM)
	if wheel <= 0 {
		return 0
	}

	return engineRPM / wheel
}

// EstimateRatio infers the active total gear ratio (gear × final drive)
// for one sample by matching the effective ratio against the catalog.
// Returns (0, 0) when the wheel is not turning or no catalog entry
// matches within tolerance: an undetermined ratio is excluded from
// torque attribution, never forced to the nearest gear.
//
// rpmRate is the sample's RPM rate of change in RPM/s; while a
// dual-clutch box is mid-shift (|rpmRate| above the configured floor)
// the matched ratio is discounted by the slip factor before use.
func EstimateRatio(s telemetry.Sample, rpmRate float64, veh vehicle.Constants, cfg Config) (ratio float64, gear int) {
	eff := EffectiveRatio(s.EngineRPM, s.SpeedMps, veh.TireRadiusM)
	if eff <= 0 {
		return 0, 0
	}

	bestGear := 0
	bestDiff := math.MaxFloat64
	for g := 1; g <= len(veh.GearRatios); g++ {
		diff := math.Abs(eff - veh.TotalRatio(g))
		if diff < bestDiff {
			bestDiff = diff
			bestGear = g
		}
	}

	if bestGear == 0 || bestDiff > cfg.gearTolerance(veh.IsDualClutch()) {
		return 0, 0
	}

	matched := veh.TotalRatio(bestGear)
	if veh.IsDualClutch() && math.Abs(rpmRate) > cfg.ShiftRPMRateMin {
		matched *= 1 - cfg.DCTSlipDiscount
	}

	return matched, bestGear
}

// SampleRPMRate returns the RPM rate of change for sample i: the
// ECU-reported channel when present, otherwise a finite difference
// from the neighbouring samples.
func SampleRPMRate(samples []telemetry.Sample, i int) float64 {
	if i < 0 || i >= len(samples) {
		return 0
	}
	if samples[i].RPMRate != nil {
		return *samples[i].RPMRate
	}

	lo, hi := i-1, i+1
	if lo < 0 {
		lo = i
	}
	if hi >= len(samples) {
		hi = i
	}
	if lo == hi {
		return 0
	}

	dt := samples[hi].TimestampSec - samples[lo].TimestampSec
	if dt <= 0 {
		return 0
	}

	return (samples[hi].EngineRPM - samples[lo].EngineRPM) / dt
}
