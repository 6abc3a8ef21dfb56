package line2d

import "errors"

// Errors returned by New and Update.
var (
	// ErrNilDevice is returned by New when no device is given.
	ErrNilDevice = errors.New("line2d: nil device")

	// ErrInstancingUnsupported is returned by New when the device cannot
	// draw instanced geometry. Every stroke is one instance per segment.
	ErrInstancingUnsupported = errors.New("line2d: device does not support instancing")

	// ErrDestroyed is returned by operations on a destroyed Line.
	ErrDestroyed = errors.New("line2d: line destroyed")

	// ErrNotEnoughColors is returned when a per-point color list is
	// shorter than the number of points.
	ErrNotEnoughColors = errors.New("line2d: not enough colors for points")

	// ErrInvalidOption is returned for option values outside their domain,
	// such as a negative thickness or an unknown join.
	ErrInvalidOption = errors.New("line2d: invalid option")

	// ErrPatternTooLong is returned when a dash period exceeds
	// MaxPatternLength or the device texture size.
	ErrPatternTooLong = errors.New("line2d: dash pattern too long")
)
