package dyno

import (
	"math"

	"codeberg.org/mutker/virtualdyno/internal/telemetry"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

// Measurement is the engine-referred torque/power computed for one
// admissible sample. A sample with an undetermined gear ratio or a
// non-turning wheel produces a zeroed, invalid measurement rather than
// a divide-by-zero.
type Measurement struct {
	TimestampSec     float64 `json:"timestamp_sec"`
	EngineRPM        float64 `json:"engine_rpm"`
	SpeedMps         float64 `json:"speed_mps"`
	AccelerationMps2 float64 `json:"acceleration_mps2"`

	WheelTorqueNm  float64 `json:"wheel_torque_nm"`
	WheelPowerW    float64 `json:"wheel_power_w"`
	EngineTorqueNm float64 `json:"engine_torque_nm"`
	EnginePowerW   float64 `json:"engine_power_w"`

	// GearRatio is the total ratio (gear × final drive) attributed to
	// the sample; Efficiency is the effective drivetrain efficiency
	// actually applied.
	GearRatio  float64 `json:"gear_ratio"`
	Efficiency float64 `json:"efficiency"`

	// AWD torque split, present only when the constants carry one.
	FrontTorqueNm  float64 `json:"front_torque_nm,omitempty"`
	RearTorqueNm   float64 `json:"rear_torque_nm,omitempty"`
	HasTorqueSplit bool    `json:"has_torque_split"`

	Valid bool `json:"valid"`
}

const (
	minEffectiveEfficiency = 0.5
	maxEffectiveEfficiency = 1.0
)

// Accelerations computes per-sample instantaneous acceleration over a
// pull window: central difference for interior samples, one-sided
// difference at the window boundaries.
func Accelerations(samples []telemetry.Sample) []float64 {
	n := len(samples)
	accels := make([]float64, n)
	if n < 2 {
		return accels
	}

	for i := range samples {
		lo, hi := i-1, i+1
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}

		dt := samples[hi].TimestampSec - samples[lo].TimestampSec
		if dt <= 0 {
			continue
		}
		accels[i] = (samples[hi].SpeedMps - samples[lo].SpeedMps) / dt
	}

	return accels
}

// EffectiveEfficiency returns the drivetrain efficiency to apply: the
// base value, reduced for AWD configurations by the coupling loss
// weighted by the rear-biased share of the split, clamped to
// [0.5, 1.0]. Unknown AWD parameters leave the base value untouched;
// the confidence scorer penalizes the uncertainty instead.
func EffectiveEfficiency(veh vehicle.Constants) float64 {
	eff := veh.DrivetrainEfficiency
	if veh.IsAWD() && veh.CouplingLoss != nil && veh.TorqueSplit != nil {
		eff -= *veh.CouplingLoss * (1 - veh.TorqueSplit.Front)
	}

	return math.Min(math.Max(eff, minEffectiveEfficiency), maxEffectiveEfficiency)
}

// ComputeMeasurement decomposes the tractive force for one sample into
// inertial, rolling-resistance, aerodynamic-drag and grade components,
// converts it to wheel torque/power and refers both back through the
// drivetrain to the engine.
func ComputeMeasurement(s telemetry.Sample, accel, gearRatio float64, veh vehicle.Constants) Measurement {
	m := Measurement{
		TimestampSec:     s.TimestampSec,
		EngineRPM:        s.EngineRPM,
		SpeedMps:         s.SpeedMps,
		AccelerationMps2: accel,
		GearRatio:        gearRatio,
	}

	if gearRatio <= 0 || s.SpeedMps <= 0 {
		return m
	}

	rollingForce := veh.MassKg * veh.GravityMS2 * veh.RollingResistance
	aeroForce := 0.5 * veh.AirDensityKgM3 * veh.DragCoefficient * veh.FrontalAreaM2 * s.SpeedMps * s.SpeedMps
	gradeForce := veh.MassKg * veh.GravityMS2 * math.Sin(veh.RoadGradeRad())
	tractiveForce := veh.MassKg*accel + rollingForce + aeroForce + gradeForce

	efficiency := EffectiveEfficiency(veh)

	m.WheelTorqueNm = tractiveForce * veh.TireRadiusM
	m.WheelPowerW = tractiveForce * s.SpeedMps
	m.EngineTorqueNm = m.WheelTorqueNm / gearRatio / efficiency
	m.EnginePowerW = m.WheelPowerW / efficiency
	m.Efficiency = efficiency

	if veh.TorqueSplit != nil {
		m.FrontTorqueNm = m.WheelTorqueNm * veh.TorqueSplit.Front
		m.RearTorqueNm = m.WheelTorqueNm * veh.TorqueSplit.Rear
		m.HasTorqueSplit = true
	}

	m.Valid = true

	return m
}
