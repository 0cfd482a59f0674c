package telemetry

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	// Sequence admission errors
	ErrEmptySequence      = errors.ErrorCode("telemetry_empty_sequence")
	ErrNonMonotonicTime   = errors.ErrorCode("telemetry_non_monotonic_timestamps")
	ErrInvalidSampleValue = errors.ErrorCode("telemetry_invalid_sample_value")
	ErrUnknownSource      = errors.ErrorCode("telemetry_unknown_source")

	// Load errors
	ErrOpenSampleLog  = errors.ErrorCode("telemetry_open_sample_log_failed")
	ErrParseSampleLog = errors.ErrorCode("telemetry_parse_sample_log_failed")
)
