package dyno

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"codeberg.org/mutker/virtualdyno/internal/telemetry"
)

// ShiftDirection classifies a detected gear change.
type ShiftDirection string

const (
	ShiftUp      ShiftDirection = "up"
	ShiftDown    ShiftDirection = "down"
	ShiftUnknown ShiftDirection = "unknown"
)

// ShiftEvent is one detected gear change in a dual-clutch pull.
type ShiftEvent struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	PeakSec  float64 `json:"peak_sec"`

	RatioBefore float64 `json:"ratio_before"`
	RatioAfter  float64 `json:"ratio_after"`

	// MaxDerivative is the largest |d(ratio)/dt| observed during the
	// event, in ratio/s.
	MaxDerivative float64 `json:"max_derivative"`

	Direction  ShiftDirection `json:"direction"`
	Confidence float64        `json:"confidence"`
}

// Segment is a contiguous shift-free index range within an analyzed
// window. Indices are into the window's sample slice; the assembler
// rebases them onto the full sequence.
type Segment struct {
	StartIdx int `json:"start_idx"`
	EndIdx   int `json:"end_idx"`

	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`

	// MedianRatio is the median effective gear ratio over the segment.
	MedianRatio float64 `json:"median_ratio"`

	Valid        bool   `json:"valid"`
	RejectReason string `json:"reject_reason,omitempty"`
}

// EffectiveRatios computes the per-sample effective gear ratio series
// for a window (0 where the wheel speed is 0).
func EffectiveRatios(samples []telemetry.Sample, tireRadiusM float64) []float64 {
	ratios := make([]float64, len(samples))
	for i, s := range samples {
		ratios[i] = EffectiveRatio(s.EngineRPM, s.SpeedMps, tireRadiusM)
	}

	return ratios
}

// RatioDerivatives estimates d(ratio)/dt per sample using a centered
// linear-regression slope over a sliding window of the given
// half-width, which suppresses sensor noise better than a raw finite
// difference. Samples too close to either boundary get 0.
func RatioDerivatives(samples []telemetry.Sample, ratios []float64, halfWidth int) []float64 {
	n := len(samples)
	derivs := make([]float64, n)
	if halfWidth < 1 {
		return derivs
	}

	for i := halfWidth; i < n-halfWidth; i++ {
		times := make([]float64, 0, 2*halfWidth+1)
		values := make([]float64, 0, 2*halfWidth+1)
		for j := i - halfWidth; j <= i+halfWidth; j++ {
			times = append(times, samples[j].TimestampSec)
			values = append(values, ratios[j])
		}

		_, slope := stat.LinearRegression(times, values, nil, false)
		if !math.IsNaN(slope) && !math.IsInf(slope, 0) {
			derivs[i] = slope
		}
	}

	return derivs
}

// DetectShifts raises a shift event when the ratio derivative exceeds
// the configured threshold under load, keeps it open while the
// derivative stays above the relaxed release bound, and records the
// peak magnitude plus the ratios immediately before and after.
func DetectShifts(samples []telemetry.Sample, ratios, derivs []float64, cfg Config) []ShiftEvent {
	var events []ShiftEvent

	release := cfg.RatioChangeThreshold * cfg.ShiftReleaseFraction
	inEvent := false
	start := 0
	maxDeriv := 0.0

	closeEvent := func(end int) {
		before := ratioAt(ratios, start-1, start)
		after := ratioAt(ratios, end+1, end)

		events = append(events, ShiftEvent{
			StartSec:      samples[start].TimestampSec,
			EndSec:        samples[end].TimestampSec,
			PeakSec:       (samples[start].TimestampSec + samples[end].TimestampSec) / 2,
			RatioBefore:   before,
			RatioAfter:    after,
			MaxDerivative: maxDeriv,
			Direction:     classifyShift(before, after),
			Confidence:    math.Min(1, maxDeriv/cfg.RatioChangeThreshold),
		})
	}

	for i := range samples {
		magnitude := math.Abs(derivs[i])

		if !inEvent {
			if magnitude > cfg.RatioChangeThreshold && samples[i].ThrottlePct > cfg.ShiftThrottlePct {
				inEvent = true
				start = i
				maxDeriv = magnitude
			}
			continue
		}

		if magnitude > release {
			if magnitude > maxDeriv {
				maxDeriv = magnitude
			}
			continue
		}

		inEvent = false
		closeEvent(i - 1)
	}
	if inEvent {
		closeEvent(len(samples) - 1)
	}

	return events
}

// ratioAt returns the ratio at idx, falling back to fallback when idx
// is out of range or the ratio there is undetermined.
func ratioAt(ratios []float64, idx, fallback int) float64 {
	if idx >= 0 && idx < len(ratios) && ratios[idx] > 0 {
		return ratios[idx]
	}
	if fallback >= 0 && fallback < len(ratios) {
		return ratios[fallback]
	}

	return 0
}

func classifyShift(before, after float64) ShiftDirection {
	if before <= 0 || after <= 0 {
		return ShiftUnknown
	}

	switch {
	case after < 0.8*before:
		return ShiftUp
	case after > 1.2*before:
		return ShiftDown
	default:
		return ShiftUnknown
	}
}

// BuildSegments partitions a window into the spans between consecutive
// shift events (plus before the first and after the last), excluding
// the guard window around each shift boundary, then validates each
// span for duration, load, and ratio stability.
func BuildSegments(samples []telemetry.Sample, ratios []float64, events []ShiftEvent, cfg Config) []Segment {
	if len(samples) == 0 {
		return nil
	}

	type span struct{ startSec, endSec float64 }

	spans := make([]span, 0, len(events)+1)
	cursor := samples[0].TimestampSec
	for _, ev := range events {
		spans = append(spans, span{startSec: cursor, endSec: ev.StartSec - cfg.GuardWindowSec})
		cursor = ev.EndSec + cfg.GuardWindowSec
	}
	spans = append(spans, span{startSec: cursor, endSec: samples[len(samples)-1].TimestampSec})

	var segments []Segment
	for _, sp := range spans {
		seg, ok := segmentForSpan(samples, ratios, sp.startSec, sp.endSec, cfg)
		if ok {
			segments = append(segments, seg)
		}
	}

	return segments
}

// segmentForSpan converts a time span into an index-ranged segment and
// validates it. ok is false when no samples fall inside the span.
func segmentForSpan(samples []telemetry.Sample, ratios []float64, startSec, endSec float64, cfg Config) (Segment, bool) {
	startIdx, endIdx := -1, -1
	for i, s := range samples {
		if s.TimestampSec < startSec || s.TimestampSec > endSec {
			continue
		}
		if startIdx == -1 {
			startIdx = i
		}
		endIdx = i
	}
	if startIdx == -1 {
		return Segment{}, false
	}

	seg := Segment{
		StartIdx:    startIdx,
		EndIdx:      endIdx,
		StartSec:    samples[startIdx].TimestampSec,
		EndSec:      samples[endIdx].TimestampSec,
		MedianRatio: medianPositive(ratios[startIdx : endIdx+1]),
	}

	seg.Valid, seg.RejectReason = validateSegment(samples[startIdx:endIdx+1], ratios[startIdx:endIdx+1], cfg)

	return seg, true
}

func validateSegment(samples []telemetry.Sample, ratios []float64, cfg Config) (bool, string) {
	duration := samples[len(samples)-1].TimestampSec - samples[0].TimestampSec
	if duration < cfg.MinSegmentDurationSec {
		return false, fmt.Sprintf("segment duration %.2fs below minimum %.2fs",
			duration, cfg.MinSegmentDurationSec)
	}

	var throttleSum float64
	highThrottle := 0
	for _, s := range samples {
		throttleSum += s.ThrottlePct
		if s.ThrottlePct > cfg.WheelspinThrottlePct {
			highThrottle++
		}
	}
	if avg := throttleSum / float64(len(samples)); avg < cfg.MinSegmentThrottlePct {
		return false, fmt.Sprintf("average throttle %.1f%% below minimum %.1f%%",
			avg, cfg.MinSegmentThrottlePct)
	}

	var positive []float64
	for _, r := range ratios {
		if r > 0 {
			positive = append(positive, r)
		}
	}
	if len(positive) >= 2 {
		variance := stat.Variance(positive, nil)
		if variance > cfg.SegmentRatioVarianceMax {
			if float64(highThrottle) >= cfg.WheelspinThrottleFraction*float64(len(samples)) {
				return false, fmt.Sprintf("ratio variance %.3f under sustained throttle, probable wheel spin", variance)
			}
			return false, fmt.Sprintf("ratio variance %.3f exceeds stability bound %.3f",
				variance, cfg.SegmentRatioVarianceMax)
		}
	}

	return true, ""
}

// medianPositive returns the median of the positive values, 0 when none
// exist.
func medianPositive(values []float64) float64 {
	var positive []float64
	for _, v := range values {
		if v > 0 {
			positive = append(positive, v)
		}
	}
	if len(positive) == 0 {
		return 0
	}

	sort.Float64s(positive)
	mid := len(positive) / 2
	if len(positive)%2 == 0 {
		return (positive[mid-1] + positive[mid]) / 2
	}

	return positive[mid]
}
