package render

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	ErrEmptyCurves  = errors.ErrorCode("render_empty_curves")
	ErrWriteChart   = errors.ErrorCode("render_write_chart_failed")
	ErrRenderFailed = errors.ErrRenderChart
)
