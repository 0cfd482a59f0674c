package dyno_test

import (
	"math"

	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

const testTireRadiusM = 0.31

func testVehicle() vehicle.Constants {
	return vehicle.Constants{
		Version:              "v1",
		MassKg:               1500,
		DragCoefficient:      0.30,
		FrontalAreaM2:        2.2,
		AirDensityKgM3:       1.225,
		RollingResistance:    0.012,
		GearRatios:           []float64{3.62, 2.19, 1.52, 1.22, 0.97, 0.81},
		FinalDrive:           3.44,
		DrivetrainEfficiency: 0.85,
		TireRadiusM:          testTireRadiusM,
		GravityMS2:           9.81,
		Transmission:         vehicle.TransmissionManual,
		Drivetrain:           vehicle.DrivetrainRWD,
	}
}

// speedForRPM returns the road speed consistent with the engine RPM at
// the given total gear ratio and the test tire radius.
func speedForRPM(rpm, totalRatio float64) float64 {
	wheelRPM := rpm / totalRatio
	return wheelRPM / 60 * 2 * math.Pi * testTireRadiusM
}

// smoothstep eases x in [0, 1] so the synthetic pull accelerates hardest
// mid-pull and tails off at both ends, like a real engine under load.
func smoothstep(x float64) float64 {
	return x * x * (3 - 2*x)
}

// pullSamples builds one clean second-gear pull: n samples at 10 Hz,
// RPM easing from 2000 to 6500, speed locked to the gear ratio, all
// channels inside the safety limits.
func pullSamples(n int) []telemetry.Sample {
	veh := testVehicle()
	totalRatio := veh.GearRatios[1] * veh.FinalDrive

	samples := make([]telemetry.Sample, n)
	for i := range samples {
		x := float64(i) / float64(n-1)
		rpm := 2000 + 4500*smoothstep(x)

		samples[i] = telemetry.Sample{
			TimestampSec:      float64(i) * 0.1,
			EngineRPM:         rpm,
			SpeedMps:          speedForRPM(rpm, totalRatio),
			ThrottlePct:       100,
			BoostKPa:          120,
			AirFuelRatio:      12.8,
			IgnitionTimingDeg: 18,
			EngineLoadPct:     95,
			IntakeTempC:       45,
			CoolantTempC:      95,
		}
	}

	return samples
}
