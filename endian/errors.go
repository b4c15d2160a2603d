package endian

import "errors"

var (
	// ErrElementSize is returned for element sizes the swap kernel does not handle.
	ErrElementSize = errors.New("endian: unsupported element size")

	// ErrShortBuffer is returned when data is smaller than the launch covers.
	ErrShortBuffer = errors.New("endian: buffer too short")
)
