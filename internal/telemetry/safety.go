package telemetry

import "fmt"

// SafetyLimits is the admissibility table for full-load samples. A
// sample failing any check is excluded from the power calculation but
// kept in diagnostics. Defaults suit a turbocharged configuration.
type SafetyLimits struct {
	MaxCoolantTempC float64 `mapstructure:"max_coolant_temp_c"`
	MaxIntakeTempC  float64 `mapstructure:"max_intake_temp_c"`
	MinAFR          float64 `mapstructure:"min_afr"`
	MaxAFR          float64 `mapstructure:"max_afr"`
	MaxBoostKPa     float64 `mapstructure:"max_boost_kpa"`

	// MinThrottlePct is the throttle floor for a sample to count as a
	// valid full-load measurement.
	MinThrottlePct float64 `mapstructure:"min_throttle_pct"`
}

// DefaultSafetyLimits returns the stock admissibility table.
func DefaultSafetyLimits() SafetyLimits {
	return SafetyLimits{
		MaxCoolantTempC: 110,
		MaxIntakeTempC:  80,
		MinAFR:          11.5,
		MaxAFR:          15.0,
		MaxBoostKPa:     200,
		MinThrottlePct:  95,
	}
}

// SafetyResult is the outcome of checking one sample: admissible or
// not, plus one human-readable flag per violated limit.
type SafetyResult struct {
	Safe  bool
	Flags []string
}

// Check validates one sample against the limits. Side-effect free; the
// flags name the offending quantity and its value so the audit trail
// stands on its own.
func (l SafetyLimits) Check(s Sample) SafetyResult {
	var flags []string

	if s.CoolantTempC > l.MaxCoolantTempC {
		flags = append(flags, fmt.Sprintf("coolant temperature %.1f°C exceeds limit %.1f°C",
			s.CoolantTempC, l.MaxCoolantTempC))
	}
	if s.IntakeTempC > l.MaxIntakeTempC {
		flags = append(flags, fmt.Sprintf("intake air temperature %.1f°C exceeds limit %.1f°C",
			s.IntakeTempC, l.MaxIntakeTempC))
	}
	if s.AirFuelRatio < l.MinAFR || s.AirFuelRatio > l.MaxAFR {
		flags = append(flags, fmt.Sprintf("air/fuel ratio %.2f outside safe band [%.1f, %.1f]",
			s.AirFuelRatio, l.MinAFR, l.MaxAFR))
	}
	if s.BoostKPa > l.MaxBoostKPa {
		flags = append(flags, fmt.Sprintf("boost pressure %.1f kPa exceeds limit %.1f kPa",
			s.BoostKPa, l.MaxBoostKPa))
	}
	if s.ThrottlePct < l.MinThrottlePct {
		flags = append(flags, fmt.Sprintf("throttle %.1f%% below full-load threshold %.1f%%",
			s.ThrottlePct, l.MinThrottlePct))
	}

	return SafetyResult{
		Safe:  len(flags) == 0,
		Flags: flags,
	}
}
