package vehicle

import (
	"fmt"
	"math"

	"codeberg.org/mutker/virtualdyno/internal/errors"
)

// Transmission identifies the gearbox family. Dual-clutch boxes get a
// wider gear-match tolerance and shift-transient handling downstream.
type Transmission string

const (
	TransmissionManual     Transmission = "manual"
	TransmissionAutomatic  Transmission = "automatic"
	TransmissionDualClutch Transmission = "dual_clutch"
)

// Drivetrain identifies which axles receive torque.
type Drivetrain string

const (
	DrivetrainFWD Drivetrain = "fwd"
	DrivetrainRWD Drivetrain = "rwd"
	DrivetrainAWD Drivetrain = "awd"
)

// TorqueSplit is the front/rear torque distribution of an AWD system.
// Fractions are of total wheel torque and must sum to 1.
type TorqueSplit struct {
	Front float64 `json:"front" mapstructure:"front"`
	Rear  float64 `json:"rear" mapstructure:"rear"`
}

// Constants is the physical parameter set every downstream calculation
// depends on. Values are read once at the start of a run and never
// mutated; any modification goes through Derive, which produces a new
// validated version. TorqueSplit and CouplingLoss are nil when unknown,
// never defaulted.
type Constants struct {
	// Version labels this exact parameter set. Runs record the version
	// they were computed against so stored results stay auditable.
	Version string `json:"version" mapstructure:"version"`

	MassKg               float64   `json:"mass_kg" mapstructure:"mass_kg"`
	DragCoefficient      float64   `json:"drag_coefficient" mapstructure:"drag_coefficient"`
	FrontalAreaM2        float64   `json:"frontal_area_m2" mapstructure:"frontal_area_m2"`
	AirDensityKgM3       float64   `json:"air_density_kg_m3" mapstructure:"air_density_kg_m3"`
	RollingResistance    float64   `json:"rolling_resistance" mapstructure:"rolling_resistance"`
	GearRatios           []float64 `json:"gear_ratios" mapstructure:"gear_ratios"`
	FinalDrive           float64   `json:"final_drive" mapstructure:"final_drive"`
	DrivetrainEfficiency float64   `json:"drivetrain_efficiency" mapstructure:"drivetrain_efficiency"`
	TireRadiusM          float64   `json:"tire_radius_m" mapstructure:"tire_radius_m"`
	GravityMS2           float64   `json:"gravity_ms2" mapstructure:"gravity_ms2"`
	RoadGradeDeg         float64   `json:"road_grade_deg" mapstructure:"road_grade_deg"`

	Transmission Transmission `json:"transmission" mapstructure:"transmission"`
	Drivetrain   Drivetrain   `json:"drivetrain" mapstructure:"drivetrain"`

	// AWD-only. Nil means "not reported", which the confidence scorer
	// penalizes rather than papering over with an assumed value.
	TorqueSplit  *TorqueSplit `json:"torque_split,omitempty" mapstructure:"torque_split"`
	CouplingLoss *float64     `json:"coupling_loss,omitempty" mapstructure:"coupling_loss"`
}

const (
	minGearCount      = 5
	maxDragCoeff      = 2.0
	maxFrontalAreaM2  = 10.0
	maxRollingResist  = 0.1
	maxTireRadiusM    = 1.0
	maxCouplingLoss   = 1.0
	torqueSplitSumTol = 1e-6
)

// Validate checks every field against its physical range. A Constants
// value that fails validation must never reach a calculation.
func (c Constants) Validate() error {
	errFactory := errors.New()

	if c.Version == "" {
		return errFactory.New(ErrMissingVersion)
	}

	checks := []struct {
		ok     bool
		detail string
	}{
		{c.MassKg > 0, fmt.Sprintf("total mass must be positive, got %g kg", c.MassKg)},
		{c.DragCoefficient > 0 && c.DragCoefficient <= maxDragCoeff,
			fmt.Sprintf("drag coefficient must be in (0, %g], got %g", maxDragCoeff, c.DragCoefficient)},
		{c.FrontalAreaM2 > 0 && c.FrontalAreaM2 <= maxFrontalAreaM2,
			fmt.Sprintf("frontal area must be in (0, %g] m², got %g", maxFrontalAreaM2, c.FrontalAreaM2)},
		{c.AirDensityKgM3 > 0, fmt.Sprintf("air density must be positive, got %g kg/m³", c.AirDensityKgM3)},
		{c.RollingResistance >= 0 && c.RollingResistance <= maxRollingResist,
			fmt.Sprintf("rolling resistance coefficient must be in [0, %g], got %g", maxRollingResist, c.RollingResistance)},
		{c.FinalDrive > 0, fmt.Sprintf("final drive ratio must be positive, got %g", c.FinalDrive)},
		{c.DrivetrainEfficiency > 0 && c.DrivetrainEfficiency <= 1,
			fmt.Sprintf("drivetrain efficiency must be in (0, 1], got %g", c.DrivetrainEfficiency)},
		{c.TireRadiusM > 0 && c.TireRadiusM <= maxTireRadiusM,
			fmt.Sprintf("tire radius must be in (0, %g] m, got %g", maxTireRadiusM, c.TireRadiusM)},
		{c.GravityMS2 > 0, fmt.Sprintf("gravitational acceleration must be positive, got %g m/s²", c.GravityMS2)},
		{!math.IsNaN(c.RoadGradeDeg) && math.Abs(c.RoadGradeDeg) < 90,
			fmt.Sprintf("road grade must be in (-90, 90) degrees, got %g", c.RoadGradeDeg)},
	}

	for _, check := range checks {
		if !check.ok {
			return errFactory.WithMessage(ErrInvalidConstants, check.detail)
		}
	}

	if len(c.GearRatios) < minGearCount {
		return errFactory.WithMessage(ErrInvalidGearCatalog,
			fmt.Sprintf("gear catalog needs at least %d ratios, got %d", minGearCount, len(c.GearRatios)))
	}
	for i, ratio := range c.GearRatios {
		if ratio <= 0 {
			return errFactory.WithMessage(ErrInvalidGearCatalog,
				fmt.Sprintf("gear %d ratio must be positive, got %g", i+1, ratio))
		}
	}

	switch c.Transmission {
	case TransmissionManual, TransmissionAutomatic, TransmissionDualClutch:
	default:
		return errFactory.WithData(ErrInvalidTransmission, string(c.Transmission))
	}

	switch c.Drivetrain {
	case DrivetrainFWD, DrivetrainRWD, DrivetrainAWD:
	default:
		return errFactory.WithData(ErrInvalidDrivetrain, string(c.Drivetrain))
	}

	if c.TorqueSplit != nil {
		if c.Drivetrain != DrivetrainAWD {
			return errFactory.WithMessage(ErrInvalidTorqueSplit,
				"torque split is only meaningful for an AWD drivetrain")
		}
		if c.TorqueSplit.Front < 0 || c.TorqueSplit.Rear < 0 {
			return errFactory.WithMessage(ErrInvalidTorqueSplit,
				fmt.Sprintf("torque split fractions must be non-negative, got front=%g rear=%g",
					c.TorqueSplit.Front, c.TorqueSplit.Rear))
		}
		if math.Abs(c.TorqueSplit.Front+c.TorqueSplit.Rear-1) > torqueSplitSumTol {
			return errFactory.WithMessage(ErrInvalidTorqueSplit,
				fmt.Sprintf("torque split fractions must sum to 1, got %g",
					c.TorqueSplit.Front+c.TorqueSplit.Rear))
		}
	}

	if c.CouplingLoss != nil {
		if c.Drivetrain != DrivetrainAWD {
			return errFactory.WithMessage(ErrInvalidTorqueSplit,
				"coupling loss is only meaningful for an AWD drivetrain")
		}
		if *c.CouplingLoss < 0 || *c.CouplingLoss > maxCouplingLoss {
			return errFactory.WithMessage(ErrInvalidConstants,
				fmt.Sprintf("coupling loss must be in [0, %g], got %g", maxCouplingLoss, *c.CouplingLoss))
		}
	}

	return nil
}

// IsDualClutch reports whether the transmission needs shift-transient
// handling (slip discount, shift segmentation).
func (c Constants) IsDualClutch() bool {
	return c.Transmission == TransmissionDualClutch
}

// IsAWD reports whether torque is distributed across both axles.
func (c Constants) IsAWD() bool {
	return c.Drivetrain == DrivetrainAWD
}

// TotalRatio returns gear ratio × final drive for the 1-based gear
// number, or 0 for a gear outside the catalog.
func (c Constants) TotalRatio(gear int) float64 {
	if gear < 1 || gear > len(c.GearRatios) {
		return 0
	}

	return c.GearRatios[gear-1] * c.FinalDrive
}

// RoadGradeRad returns the road grade in radians.
func (c Constants) RoadGradeRad() float64 {
	return c.RoadGradeDeg * math.Pi / 180
}

// clone returns a deep copy so derived versions never alias the
// original's slices or optional fields.
func (c Constants) clone() Constants {
	out := c

	out.GearRatios = make([]float64, len(c.GearRatios))
	copy(out.GearRatios, c.GearRatios)

	if c.TorqueSplit != nil {
		split := *c.TorqueSplit
		out.TorqueSplit = &split
	}
	if c.CouplingLoss != nil {
		loss := *c.CouplingLoss
		out.CouplingLoss = &loss
	}

	return out
}

// Derive produces a new validated Constants version. The receiver is
// never mutated; modify operates on a deep copy that carries the new
// version label. Returns an error when the result fails validation or
// the version label is missing or unchanged.
func (c Constants) Derive(version string, modify func(*Constants)) (Constants, error) {
	errFactory := errors.New()

	if version == "" || version == c.Version {
		return Constants{}, errFactory.WithMessage(ErrMissingVersion,
			"derived constants need a new, distinct version label")
	}

	out := c.clone()
	out.Version = version
	if modify != nil {
		modify(&out)
	}
	out.Version = version // modify must not override the label

	if err := out.Validate(); err != nil {
		return Constants{}, err
	}

	return out, nil
}
