package dyno

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

// Window is a contiguous, inclusive index range within a sample
// sequence. Windows returned by DetectPulls never overlap.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of samples covered by the window.
func (w Window) Len() int {
	return w.End - w.Start + 1
}

// RejectedWindow is a candidate pull that failed validation, kept for
// diagnostics.
type RejectedWindow struct {
	Window
	Reason string `json:"reason"`
}

// PullScan is the outcome of scanning a sequence for full-throttle
// acceleration pulls.
type PullScan struct {
	Windows      []Window         `json:"windows"`
	Rejected     []RejectedWindow `json:"rejected"`
	RPMDecreases int              `json:"rpm_decreases"`
}

// DetectPulls scans the sequence with a two-state machine: a sample is
// inside a pull while RPM sits in the configured band and throttle
// holds above the pull threshold. Candidate windows long enough are
// then validated for average acceleration, monotonic RPM, wheel slip
// and ratio stability; each window is independent of the others.
func DetectPulls(samples []telemetry.Sample, veh vehicle.Constants, cfg Config) PullScan {
	var scan PullScan

	inPull := false
	start := 0
	for i, s := range samples {
		inside := s.EngineRPM >= cfg.MinPullRPM && s.EngineRPM <= cfg.MaxPullRPM &&
			s.ThrottlePct >= cfg.MinPullThrottlePct

		switch {
		case inside && !inPull:
			inPull = true
			start = i
		case !inside && inPull:
			inPull = false
			collectCandidate(&scan, samples, Window{Start: start, End: i - 1}, veh, cfg)
		}
	}
	if inPull {
		collectCandidate(&scan, samples, Window{Start: start, End: len(samples) - 1}, veh, cfg)
	}

	return scan
}

func collectCandidate(scan *PullScan, samples []telemetry.Sample, w Window, veh vehicle.Constants, cfg Config) {
	if w.Len() < cfg.MinPullSamples {
		return
	}

	scan.RPMDecreases += countRPMDecreases(samples, w)

	if reason := validateWindow(samples, w, veh, cfg); reason != "" {
		scan.Rejected = append(scan.Rejected, RejectedWindow{Window: w, Reason: reason})
		return
	}

	scan.Windows = append(scan.Windows, w)
}

func countRPMDecreases(samples []telemetry.Sample, w Window) int {
	count := 0
	for i := w.Start + 1; i <= w.End; i++ {
		if samples[i].EngineRPM < samples[i-1].EngineRPM {
			count++
		}
	}

	return count
}

// validateWindow returns an empty string for a valid pull, or the
// reason the candidate is rejected.
func validateWindow(samples []telemetry.Sample, w Window, veh vehicle.Constants, cfg Config) string {
	// Average acceleration from per-step velocity/time differences.
	var accels []float64
	for i := w.Start + 1; i <= w.End; i++ {
		dt := samples[i].TimestampSec - samples[i-1].TimestampSec
		if dt <= 0 {
			continue
		}
		accels = append(accels, (samples[i].SpeedMps-samples[i-1].SpeedMps)/dt)
	}
	if len(accels) == 0 {
		return "window too short to measure acceleration"
	}
	if avg := stat.Mean(accels, nil); avg < cfg.MinAccelerationMps2 {
		return fmt.Sprintf("average acceleration %.2f m/s² below minimum %.2f m/s²",
			avg, cfg.MinAccelerationMps2)
	}

	// A single RPM decrease invalidates the window: the driver lifted
	// off mid-pull.
	for i := w.Start + 1; i <= w.End; i++ {
		if samples[i].EngineRPM < samples[i-1].EngineRPM {
			return fmt.Sprintf("engine RPM decreased from %.0f to %.0f mid-pull",
				samples[i-1].EngineRPM, samples[i].EngineRPM)
		}
	}

	// Wheel-slip guard: RPM climbing while speed collapses.
	for i := w.Start + 1; i <= w.End; i++ {
		prev, cur := samples[i-1], samples[i]
		if cur.EngineRPM <= prev.EngineRPM || prev.SpeedMps <= 0 {
			continue
		}
		if cur.SpeedMps < prev.SpeedMps*(1-cfg.WheelslipSpeedDropFraction) {
			return fmt.Sprintf("speed dropped %.1f%% while RPM increased, probable wheel slip",
				(1-cur.SpeedMps/prev.SpeedMps)*100)
		}
	}

	// Ratio-stability guard over the instantaneous engine/wheel ratio.
	var ratios []float64
	for i := w.Start; i <= w.End; i++ {
		if ratio := EffectiveRatio(samples[i].EngineRPM, samples[i].SpeedMps, veh.TireRadiusM); ratio > 0 {
			ratios = append(ratios, ratio)
		}
	}
	if len(ratios) >= 2 {
		if variance := stat.Variance(ratios, nil); variance > cfg.PullRatioVarianceMax {
			return fmt.Sprintf("engine/wheel ratio variance %.3f exceeds stability bound %.3f",
				variance, cfg.PullRatioVarianceMax)
		}
	}

	return ""
}
