package telemetry

// Sample is one capture from the vehicle bus. Samples are immutable
// once acquired and consumed by value; the acquisition collaborator
// owns the slice.
type Sample struct {
	// TimestampSec is seconds since the start of logging. Strictly
	// increasing within a run.
	TimestampSec float64 `json:"timestamp_sec"`

	EngineRPM   float64 `json:"engine_rpm"`
	SpeedMps    float64 `json:"speed_mps"`
	ThrottlePct float64 `json:"throttle_pct"`

	// BoostKPa is gauge pressure (kPa above atmospheric).
	BoostKPa          float64 `json:"boost_kpa"`
	AirFuelRatio      float64 `json:"air_fuel_ratio"`
	IgnitionTimingDeg float64 `json:"ignition_timing_deg"`
	EngineLoadPct     float64 `json:"engine_load_pct"`
	IntakeTempC       float64 `json:"intake_temp_c"`
	CoolantTempC      float64 `json:"coolant_temp_c"`

	// RPMRate is the ECU-reported RPM rate of change in RPM/s. Nil when
	// the ECU does not report the channel; consumers derive it from
	// neighbouring samples instead of assuming zero.
	RPMRate *float64 `json:"rpm_rate,omitempty"`
}

// Source records where a sample sequence came from. The engine
// propagates it onto the run unchanged so the presentation layer can
// distinguish simulated telemetry from real acquisition.
type Source string

const (
	SourceLive      Source = "live"
	SourceSimulated Source = "simulated"
)

// Sequence is an ordered sample capture plus its provenance.
type Sequence struct {
	Source  Source   `json:"source"`
	Samples []Sample `json:"samples"`
}
