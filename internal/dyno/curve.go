package dyno

import "math"

// CurvePoint is one (RPM, value) pair on a resampled output curve.
type CurvePoint struct {
	RPM   float64 `json:"rpm"`
	Value float64 `json:"value"`
}

// BuildCurve resamples valid measurements onto a common RPM axis:
// fixed-width bins spanning the observed RPM range, each bin carrying
// the mean of the measurements that fall in it. Empty bins are
// omitted; the result is ordered by RPM and deterministic.
func BuildCurve(measurements []Measurement, value func(Measurement) float64, binWidthRPM float64) []CurvePoint {
	if len(measurements) == 0 || binWidthRPM <= 0 {
		return nil
	}

	minBin, maxBin := math.MaxInt, math.MinInt
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, m := range measurements {
		if !m.Valid {
			continue
		}
		bin := int(math.Floor(m.EngineRPM / binWidthRPM))
		sums[bin] += value(m)
		counts[bin]++
		if bin < minBin {
			minBin = bin
		}
		if bin > maxBin {
			maxBin = bin
		}
	}
	if len(counts) == 0 {
		return nil
	}

	curve := make([]CurvePoint, 0, maxBin-minBin+1)
	for bin := minBin; bin <= maxBin; bin++ {
		if counts[bin] == 0 {
			continue
		}
		curve = append(curve, CurvePoint{
			RPM:   (float64(bin) + 0.5) * binWidthRPM,
			Value: sums[bin] / float64(counts[bin]),
		})
	}

	return curve
}

// Peak scans measurements linearly for the maximum of the given value
// and returns it together with the RPM it occurred at. Only valid
// measurements participate.
func Peak(measurements []Measurement, value func(Measurement) float64) (rpm, peak float64) {
	found := false
	for _, m := range measurements {
		if !m.Valid {
			continue
		}
		if v := value(m); !found || v > peak {
			peak = v
			rpm = m.EngineRPM
			found = true
		}
	}
	if !found {
		return 0, 0
	}

	return rpm, peak
}
