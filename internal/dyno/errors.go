package dyno

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	// Input contract errors: analysis does not start
	ErrInvalidConfig    = errors.ErrorCode("dyno_invalid_config")
	ErrInvalidConstants = errors.ErrInvalidConstants
	ErrInvalidSequence  = errors.ErrInvalidSequence
)

// Run-level rejection reasons. These are outcomes carried on the run,
// not errors: the caller recovers by supplying more or better
// telemetry, never by retrying the same input.
const (
	ReasonNoTelemetry   = "no telemetry samples provided"
	ReasonNoValidPulls  = "no valid pulls detected"
	ReasonNoSafeSamples = "no samples passed safety validation"
)
