package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Input contract errors: the analysis refuses to run on these
	ErrInvalidConstants ErrorCode = "invalid_vehicle_constants"
	ErrInvalidSequence  ErrorCode = "invalid_sample_sequence"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Application errors
	ErrInitApp         ErrorCode = "init_app_failed"
	ErrAnalyzeFailed   ErrorCode = "analyze_run_failed"
	ErrLoadSamples     ErrorCode = "load_samples_failed"
	ErrRenderChart     ErrorCode = "render_chart_failed"
	ErrStoreRun        ErrorCode = "store_run_failed"
	ErrRetrieveRun     ErrorCode = "retrieve_run_failed"
	ErrRunNotFound     ErrorCode = "run_not_found"
	ErrOperationFailed ErrorCode = "operation_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrNotImplemented:   "Operation not implemented",
	ErrInvalidConfig:    "Invalid configuration",
	ErrMissingConfig:    "Missing configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrReadConfig:       "Failed to read configuration",
	ErrInvalidLogLevel:  "Invalid log level",
	ErrInvalidConstants: "Vehicle constants failed validation",
	ErrInvalidSequence:  "Telemetry sample sequence is not admissible",
	ErrInitFailed:       "Initialization failed",
	ErrShutdownFailed:   "Shutdown failed",
	ErrInitApp:          "Failed to initialize application",
	ErrAnalyzeFailed:    "Failed to analyze telemetry run",
	ErrLoadSamples:      "Failed to load telemetry samples",
	ErrRenderChart:      "Failed to render run chart",
	ErrStoreRun:         "Failed to store dyno run",
	ErrRetrieveRun:      "Failed to retrieve dyno run",
	ErrRunNotFound:      "Dyno run not found",
	ErrOperationFailed:  "Operation failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
