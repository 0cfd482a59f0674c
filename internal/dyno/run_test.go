package dyno_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

func testSequence(samples []telemetry.Sample) telemetry.Sequence {
	return telemetry.Sequence{Source: telemetry.SourceSimulated, Samples: samples}
}

func TestAnalyzeCleanPull(t *testing.T) {
	seq := testSequence(pullSamples(50))

	run, err := dyno.Analyze(seq, testVehicle(), dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusAccepted, run.Status)
	assert.Empty(t, run.RejectionReason)
	assert.Equal(t, "v1", run.VehicleVersion)
	assert.Equal(t, telemetry.SourceSimulated, run.Source)
	assert.Equal(t, 1, run.PullCount)
	assert.Zero(t, run.ShiftCount)

	assert.Len(t, run.Measurements, 50)
	assert.InDelta(t, 1.0, run.DataQuality, 1e-9)

	assert.InDelta(t, 100, run.Confidence.Value, 1e-9)
	assert.Equal(t, dyno.RatingHigh, run.Confidence.Rating)

	assert.NotEmpty(t, run.TorqueCurve)
	assert.NotEmpty(t, run.PowerCurve)

	// The eased RPM profile peaks its force mid-pull, so peak torque
	// must land in the interior of the band, not at an edge.
	assert.Greater(t, run.PeakTorqueRPM, 2500.0)
	assert.Less(t, run.PeakTorqueRPM, 6000.0)
	assert.Positive(t, run.PeakTorqueNm)
	assert.Positive(t, run.PeakPowerW)

	require.Len(t, run.Diagnostics, 50)
	for _, d := range run.Diagnostics {
		assert.True(t, d.Safe)
		assert.True(t, d.InPull)
		assert.True(t, d.Valid)
		assert.Empty(t, d.RejectReason)
	}
}

func TestAnalyzeEmptySequence(t *testing.T) {
	run, err := dyno.Analyze(testSequence(nil), testVehicle(), dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusRejected, run.Status)
	assert.Equal(t, dyno.ReasonNoTelemetry, run.RejectionReason)
	assert.Zero(t, run.Confidence.Value)
	assert.Empty(t, run.TorqueCurve)
	assert.NotEmpty(t, run.ID, "rejected runs still get a stable identifier")
}

func TestAnalyzeNoValidPulls(t *testing.T) {
	samples := pullSamples(50)
	for i := range samples {
		samples[i].ThrottlePct = 60
	}

	run, err := dyno.Analyze(testSequence(samples), testVehicle(), dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusRejected, run.Status)
	assert.Equal(t, dyno.ReasonNoValidPulls, run.RejectionReason)
	assert.Len(t, run.Diagnostics, 50)
}

func TestAnalyzeNoSafeSamples(t *testing.T) {
	samples := pullSamples(50)
	for i := range samples {
		samples[i].CoolantTempC = 115
	}

	run, err := dyno.Analyze(testSequence(samples), testVehicle(), dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusRejected, run.Status)
	assert.Equal(t, dyno.ReasonNoSafeSamples, run.RejectionReason)

	for _, d := range run.Diagnostics {
		assert.False(t, d.Safe)
		assert.True(t, d.InPull)
		assert.Equal(t, "failed safety validation", d.RejectReason)
	}
}

func TestAnalyzeExcludesUnsafeSamples(t *testing.T) {
	samples := pullSamples(50)
	for i := 40; i < 50; i++ {
		samples[i].CoolantTempC = 112 // overheating toward the end of the pull
	}

	run, err := dyno.Analyze(testSequence(samples), testVehicle(), dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusAccepted, run.Status)
	assert.Len(t, run.Measurements, 40)
	assert.InDelta(t, 0.8, run.DataQuality, 1e-9)

	// 80% valid costs 10 points, peak coolant above 105 °C costs 15.
	assert.InDelta(t, 75, run.Confidence.Value, 1e-9)
	assert.Equal(t, dyno.RatingMedium, run.Confidence.Rating)
	assert.Len(t, run.Confidence.Factors, 2)
}

func TestAnalyzeRejectsNonMonotonicSequence(t *testing.T) {
	samples := pullSamples(50)
	samples[10].TimestampSec = samples[9].TimestampSec

	_, err := dyno.Analyze(testSequence(samples), testVehicle(), dyno.DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidSequence, errors.CodeOf(err))
}

func TestAnalyzeRejectsInvalidConstants(t *testing.T) {
	veh := testVehicle()
	veh.MassKg = -1

	_, err := dyno.Analyze(testSequence(pullSamples(50)), veh, dyno.DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidConstants, errors.CodeOf(err))
}

func TestAnalyzeRejectsInvalidConfig(t *testing.T) {
	cfg := dyno.DefaultConfig()
	cfg.MinPullRPM = 0

	_, err := dyno.Analyze(testSequence(pullSamples(50)), testVehicle(), cfg)
	require.Error(t, err)
	assert.Equal(t, dyno.ErrInvalidConfig, errors.CodeOf(err))
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	seq := testSequence(pullSamples(50))
	veh := testVehicle()
	cfg := dyno.DefaultConfig()

	first, err := dyno.Analyze(seq, veh, cfg)
	require.NoError(t, err)
	second, err := dyno.Analyze(seq, veh, cfg)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second), "identical inputs must produce identical runs")
}

func TestAnalyzeRunIDTracksInputs(t *testing.T) {
	seq := testSequence(pullSamples(50))
	cfg := dyno.DefaultConfig()

	base, err := dyno.Analyze(seq, testVehicle(), cfg)
	require.NoError(t, err)

	// A new constants version is a new run identity.
	heavier, err := testVehicle().Derive("v2", func(c *vehicle.Constants) { c.MassKg = 1700 })
	require.NoError(t, err)

	derived, err := dyno.Analyze(seq, heavier, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, base.ID, derived.ID)

	// Different telemetry is a new run identity too.
	other := testSequence(pullSamples(48))
	otherRun, err := dyno.Analyze(other, testVehicle(), cfg)
	require.NoError(t, err)
	assert.NotEqual(t, base.ID, otherRun.ID)
}

func TestAnalyzeMoreMassMorePower(t *testing.T) {
	seq := testSequence(pullSamples(50))
	cfg := dyno.DefaultConfig()

	light, err := dyno.Analyze(seq, testVehicle(), cfg)
	require.NoError(t, err)

	heavier, err := testVehicle().Derive("v2", func(c *vehicle.Constants) { c.MassKg = 1700 })
	require.NoError(t, err)

	heavy, err := dyno.Analyze(seq, heavier, cfg)
	require.NoError(t, err)

	// The same measured acceleration with more mass to move means the
	// engine must have made more power.
	assert.Greater(t, heavy.PeakPowerW, light.PeakPowerW)
	assert.Greater(t, heavy.PeakTorqueNm, light.PeakTorqueNm)
}

func TestAnalyzeDualClutchWithoutShiftsIsPenalized(t *testing.T) {
	veh := testVehicle()
	veh.Transmission = vehicle.TransmissionDualClutch

	run, err := dyno.Analyze(testSequence(pullSamples(50)), veh, dyno.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, dyno.StatusAccepted, run.Status)
	assert.Zero(t, run.ShiftCount)
	assert.InDelta(t, 80, run.Confidence.Value, 1e-9)

	found := false
	for _, f := range run.Confidence.Factors {
		if strings.Contains(f, "no shifts detected") {
			found = true
		}
	}
	assert.True(t, found, "expected the missing-shift factor, got %v", run.Confidence.Factors)
}
