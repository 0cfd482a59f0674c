package store

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("store_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("store_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("store_schema_validation_failed")
	ErrTransactionFailed      = errors.ErrorCode("store_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed
	ErrEncodeRun    = errors.ErrorCode("store_encode_run_failed")
	ErrDecodeRun    = errors.ErrorCode("store_decode_run_failed")
	ErrRunNotFound  = errors.ErrRunNotFound
)
