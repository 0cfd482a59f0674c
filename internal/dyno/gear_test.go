package dyno_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

func TestWheelRPM(t *testing.T) {
	// 20 m/s on a 0.31 m tire: 20 / (2π·0.31) · 60
	assert.InDelta(t, 616.10, dyno.WheelRPM(20, 0.31), 0.01)
	assert.Zero(t, dyno.WheelRPM(0, 0.31))
	assert.Zero(t, dyno.WheelRPM(-5, 0.31))
}

func TestEffectiveRatio(t *testing.T) {
	veh := testVehicle()
	total := veh.TotalRatio(3)

	speed := speedForRPM(4000, total)
	assert.InDelta(t, total, dyno.EffectiveRatio(4000, speed, testTireRadiusM), 1e-9)
	assert.Zero(t, dyno.EffectiveRatio(4000, 0, testTireRadiusM))
}

func TestEstimateRatioMatchesCatalog(t *testing.T) {
	veh := testVehicle()
	cfg := dyno.DefaultConfig()

	for gear := 1; gear <= len(veh.GearRatios); gear++ {
		total := veh.TotalRatio(gear)
		s := telemetry.Sample{EngineRPM: 4000, SpeedMps: speedForRPM(4000, total)}

		ratio, matched := dyno.EstimateRatio(s, 0, veh, cfg)
		assert.Equal(t, gear, matched)
		assert.InDelta(t, total, ratio, 1e-9)
	}
}

func TestEstimateRatioRejectsOutOfTolerance(t *testing.T) {
	veh := testVehicle()
	cfg := dyno.DefaultConfig()

	// An effective ratio of 6.3 sits between second (7.53) and third
	// (5.23), more than 0.3 from either.
	s := telemetry.Sample{EngineRPM: 4000, SpeedMps: speedForRPM(4000, 6.3)}

	ratio, gear := dyno.EstimateRatio(s, 0, veh, cfg)
	assert.Zero(t, ratio)
	assert.Zero(t, gear)
}

func TestEstimateRatioStationaryWheel(t *testing.T) {
	ratio, gear := dyno.EstimateRatio(telemetry.Sample{EngineRPM: 2000}, 0, testVehicle(), dyno.DefaultConfig())
	assert.Zero(t, ratio)
	assert.Zero(t, gear)
}

func TestEstimateRatioDualClutchSlipDiscount(t *testing.T) {
	veh := testVehicle()
	veh.Transmission = vehicle.TransmissionDualClutch
	cfg := dyno.DefaultConfig()

	total := veh.TotalRatio(2)
	s := telemetry.Sample{EngineRPM: 4000, SpeedMps: speedForRPM(4000, total)}

	// Steady state: no discount.
	ratio, gear := dyno.EstimateRatio(s, 50, veh, cfg)
	assert.Equal(t, 2, gear)
	assert.InDelta(t, total, ratio, 1e-9)

	// Mid-shift RPM flare: matched ratio is discounted for clutch slip.
	ratio, gear = dyno.EstimateRatio(s, 800, veh, cfg)
	assert.Equal(t, 2, gear)
	assert.InDelta(t, total*0.98, ratio, 1e-9)
}

func TestSampleRPMRate(t *testing.T) {
	ecuRate := 1200.0
	samples := []telemetry.Sample{
		{TimestampSec: 0.0, EngineRPM: 3000},
		{TimestampSec: 0.1, EngineRPM: 3100, RPMRate: &ecuRate},
		{TimestampSec: 0.2, EngineRPM: 3200},
	}

	// ECU channel wins when present.
	assert.InDelta(t, 1200, dyno.SampleRPMRate(samples, 1), 1e-9)

	// Central difference for the interior, one-sided at the edges.
	assert.InDelta(t, (3100-3000)/0.1, dyno.SampleRPMRate(samples, 0), 1e-6)
	assert.InDelta(t, (3200-3100)/0.1, dyno.SampleRPMRate(samples, 2), 1e-6)

	require.Zero(t, dyno.SampleRPMRate(samples, -1))
	require.Zero(t, dyno.SampleRPMRate(samples, 3))
}
