package vehicle

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	// Validation Errors
	ErrInvalidConstants    = errors.ErrorCode("vehicle_invalid_constants")
	ErrInvalidGearCatalog  = errors.ErrorCode("vehicle_invalid_gear_catalog")
	ErrInvalidTransmission = errors.ErrorCode("vehicle_invalid_transmission")
	ErrInvalidDrivetrain   = errors.ErrorCode("vehicle_invalid_drivetrain")
	ErrInvalidTorqueSplit  = errors.ErrorCode("vehicle_invalid_torque_split")

	// Versioning Errors
	ErrMissingVersion = errors.ErrorCode("vehicle_missing_version")
)
