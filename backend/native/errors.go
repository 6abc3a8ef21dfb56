package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNilDevice is returned when a hal device or queue is missing.
	ErrNilDevice = errors.New("native: nil hal device or queue")

	// ErrNoHAL is returned when a device provider does not expose hal types.
	ErrNoHAL = errors.New("native: provider does not expose HAL types")

	// ErrNoFrame is returned by Draw and EndFrame outside BeginFrame/EndFrame.
	ErrNoFrame = errors.New("native: no frame in progress")

	// ErrFrameInProgress is returned by BeginFrame when a frame is open.
	ErrFrameInProgress = errors.New("native: frame already in progress")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrUnboundAttribute is returned when a draw omits a program attribute.
	ErrUnboundAttribute = errors.New("native: attribute not bound")
)
