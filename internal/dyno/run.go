package dyno

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

// Status is the terminal state of a run: accepted with populated
// curves, or rejected with a reason. Never partially populated.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// SampleDiagnostic records, per input sample, why it did or did not
// contribute to the curve. The full slice is kept on the run for audit.
type SampleDiagnostic struct {
	Index       int      `json:"index"`
	Safe        bool     `json:"safe"`
	SafetyFlags []string `json:"safety_flags,omitempty"`
	InPull      bool     `json:"in_pull"`

	// GearRatio is the attributed total ratio, 0 when undetermined.
	GearRatio float64 `json:"gear_ratio"`

	Valid        bool   `json:"valid"`
	RejectReason string `json:"reject_reason,omitempty"`
}

// Run is one complete analysis result. It is created once per Analyze
// call and immutable thereafter; the store persists it verbatim.
type Run struct {
	ID             string           `json:"id"`
	VehicleVersion string           `json:"vehicle_version"`
	Source         telemetry.Source `json:"source"`

	Status          Status `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	Measurements []Measurement `json:"measurements,omitempty"`

	TorqueCurve []CurvePoint `json:"torque_curve,omitempty"`
	PowerCurve  []CurvePoint `json:"power_curve,omitempty"`

	PeakTorqueNm  float64 `json:"peak_torque_nm"`
	PeakTorqueRPM float64 `json:"peak_torque_rpm"`
	PeakPowerW    float64 `json:"peak_power_w"`
	PeakPowerRPM  float64 `json:"peak_power_rpm"`

	Confidence Score `json:"confidence"`

	PullCount  int          `json:"pull_count"`
	ShiftCount int          `json:"shift_count"`
	Shifts     []ShiftEvent `json:"shifts,omitempty"`
	Segments   []Segment    `json:"segments,omitempty"`

	// DataQuality is the valid/total ratio over analyzed pull samples.
	DataQuality float64 `json:"data_quality"`

	Diagnostics []SampleDiagnostic `json:"diagnostics"`
}

// Analyze runs the full pipeline over one sample sequence against one
// version of the vehicle constants: safety validation, pull detection,
// per-window gear estimation and shift segmentation, force/power
// calculation, confidence scoring. Pure and deterministic: identical
// inputs produce identical runs. Invalid constants or an inadmissible
// sequence return an error and no partial result; recoverable outcomes
// (no pulls, nothing safe) come back as a rejected run.
func Analyze(seq telemetry.Sequence, veh vehicle.Constants, cfg Config) (*Run, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := veh.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConstants, err)
	}

	samples := seq.Samples
	run := &Run{
		ID:             runID(seq, veh),
		VehicleVersion: veh.Version,
		Source:         seq.Source,
	}

	if len(samples) == 0 {
		return reject(run, ReasonNoTelemetry), nil
	}

	if err := seq.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidSequence, err)
	}

	diags := make([]SampleDiagnostic, len(samples))
	for i, s := range samples {
		result := cfg.Safety.Check(s)
		diags[i] = SampleDiagnostic{
			Index:        i,
			Safe:         result.Safe,
			SafetyFlags:  result.Flags,
			RejectReason: "outside any valid pull window",
		}
	}

	scan := DetectPulls(samples, veh, cfg)
	for _, rw := range scan.Rejected {
		for i := rw.Start; i <= rw.End; i++ {
			diags[i].RejectReason = "pull candidate rejected: " + rw.Reason
		}
	}

	if len(scan.Windows) == 0 {
		run.Diagnostics = diags
		return reject(run, ReasonNoValidPulls), nil
	}

	var (
		measurements []Measurement
		shifts       []ShiftEvent
		segments     []Segment

		pullSamples     int
		invalidSegments int
		minAFR          = math.MaxFloat64
		maxCoolant      = -math.MaxFloat64
	)

	for _, w := range scan.Windows {
		sub := samples[w.Start : w.End+1]
		ratios := EffectiveRatios(sub, veh.TireRadiusM)
		accels := Accelerations(sub)

		estimated := make([]float64, len(sub))
		for i := range sub {
			estimated[i], _ = EstimateRatio(sub[i], SampleRPMRate(sub, i), veh, cfg)
		}

		var events []ShiftEvent
		var segs []Segment
		if veh.IsDualClutch() {
			derivs := RatioDerivatives(sub, ratios, cfg.SmoothingHalfWidth)
			events = DetectShifts(sub, ratios, derivs, cfg)
			segs = BuildSegments(sub, ratios, events, cfg)
		} else {
			segs = []Segment{{
				StartIdx:    0,
				EndIdx:      len(sub) - 1,
				StartSec:    sub[0].TimestampSec,
				EndSec:      sub[len(sub)-1].TimestampSec,
				MedianRatio: medianPositive(ratios),
				Valid:       true,
			}}
		}

		membership := make([]int, len(sub))
		for i := range membership {
			membership[i] = -1
		}
		for si, seg := range segs {
			for i := seg.StartIdx; i <= seg.EndIdx; i++ {
				membership[i] = si
			}
		}

		for i, s := range sub {
			diag := &diags[w.Start+i]
			diag.InPull = true
			diag.GearRatio = estimated[i]

			pullSamples++
			minAFR = math.Min(minAFR, s.AirFuelRatio)
			maxCoolant = math.Max(maxCoolant, s.CoolantTempC)

			si := membership[i]
			switch {
			case !diag.Safe:
				diag.RejectReason = "failed safety validation"
			case si == -1:
				diag.RejectReason = "within shift guard window"
			case !segs[si].Valid:
				diag.RejectReason = "segment rejected: " + segs[si].RejectReason
			default:
				m := ComputeMeasurement(s, accels[i], estimated[i], veh)
				measurements = append(measurements, m)
				diag.Valid = m.Valid
				switch {
				case m.Valid:
					diag.RejectReason = ""
				case estimated[i] <= 0:
					diag.RejectReason = "gear ratio undetermined"
				default:
					diag.RejectReason = "zero or negative wheel speed"
				}
			}
		}

		shifts = append(shifts, events...)
		for _, seg := range segs {
			seg.StartIdx += w.Start
			seg.EndIdx += w.Start
			segments = append(segments, seg)
			if !seg.Valid {
				invalidSegments++
			}
		}
	}

	run.Diagnostics = diags
	run.PullCount = len(scan.Windows)
	run.ShiftCount = len(shifts)
	run.Shifts = shifts
	run.Segments = segments
	run.Measurements = measurements

	var valid []Measurement
	for _, m := range measurements {
		if m.Valid {
			valid = append(valid, m)
		}
	}
	if len(valid) == 0 {
		return reject(run, ReasonNoSafeSamples), nil
	}

	engineTorque := func(m Measurement) float64 { return m.EngineTorqueNm }
	enginePower := func(m Measurement) float64 { return m.EnginePowerW }

	run.TorqueCurve = BuildCurve(measurements, engineTorque, cfg.CurveBinWidthRPM)
	run.PowerCurve = BuildCurve(measurements, enginePower, cfg.CurveBinWidthRPM)
	run.PeakTorqueRPM, run.PeakTorqueNm = Peak(measurements, engineTorque)
	run.PeakPowerRPM, run.PeakPowerW = Peak(measurements, enginePower)
	run.DataQuality = float64(len(valid)) / float64(pullSamples)

	run.Confidence = ScoreRun(scoreInputs(veh, scan, valid, pullSamples, len(shifts), invalidSegments, minAFR, maxCoolant))
	run.Status = StatusAccepted

	return run, nil
}

func scoreInputs(
	veh vehicle.Constants,
	scan PullScan,
	valid []Measurement,
	pullSamples, shiftCount, invalidSegments int,
	minAFR, maxCoolant float64,
) ScoreInputs {
	var ratioValues, accelValues []float64
	for _, m := range valid {
		ratioValues = append(ratioValues, m.GearRatio)
		accelValues = append(accelValues, m.AccelerationMps2)
	}

	ratioVariance := 0.0
	accelVariance := 0.0
	if len(valid) >= 2 {
		ratioVariance = stat.Variance(ratioValues, nil)
		accelVariance = stat.Variance(accelValues, nil)
	}

	in := ScoreInputs{
		SampleCount:          pullSamples,
		ValidCount:           len(valid),
		RPMDecreases:         scan.RPMDecreases,
		GearRatioVariance:    ratioVariance,
		AccelerationVariance: accelVariance,
		MinAFR:               minAFR,
		MaxCoolantC:          maxCoolant,
		DualClutch:           veh.IsDualClutch(),
		ShiftsDetected:       shiftCount,
		InvalidSegments:      invalidSegments,
		AWD:                  veh.IsAWD(),
	}
	if veh.IsAWD() {
		in.TorqueSplitKnown = veh.TorqueSplit != nil
		in.CouplingLossKnown = veh.CouplingLoss != nil
		in.SplitFiftyFifty = veh.TorqueSplit != nil && math.Abs(veh.TorqueSplit.Front-0.5) < 1e-9
	}

	return in
}

// reject finalizes a run in the rejected state: empty curves, zero
// confidence, an explicit reason. Never retried internally.
func reject(run *Run, reason string) *Run {
	run.Status = StatusRejected
	run.RejectionReason = reason
	run.Confidence = Score{
		Value:   0,
		Rating:  RatingLow,
		Factors: []string{reason},
	}

	return run
}

// runID derives a stable identifier from the inputs so identical
// telemetry analyzed against identical constants yields an identical
// run, byte for byte.
func runID(seq telemetry.Sequence, veh vehicle.Constants) string {
	h := sha256.New()
	h.Write([]byte(veh.Version))
	h.Write([]byte(seq.Source))

	for _, s := range seq.Samples {
		_ = binary.Write(h, binary.LittleEndian, []float64{
			s.TimestampSec, s.EngineRPM, s.SpeedMps, s.ThrottlePct,
			s.BoostKPa, s.AirFuelRatio, s.IgnitionTimingDeg,
			s.EngineLoadPct, s.IntakeTempC, s.CoolantTempC,
		})
		if s.RPMRate != nil {
			_ = binary.Write(h, binary.LittleEndian, *s.RPMRate)
		}
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, h.Sum(nil)).String()
}
