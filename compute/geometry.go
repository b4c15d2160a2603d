package compute

import "fmt"

// Geometry is the launch shape of a data-parallel kernel: Blocks groups of
// Threads invocations each, one element per invocation.
type Geometry struct {
	Blocks  uint32
	Threads uint32
	// Remainder counts trailing elements no invocation covers because the
	// extent was not a multiple of Threads.
	Remainder uint32
}

// Elements returns the number of elements the launch covers.
func (g Geometry) Elements() int {
	return int(g.Blocks) * int(g.Threads)
}

func (g Geometry) String() string {
	return fmt.Sprintf("%d blocks x %d threads", g.Blocks, g.Threads)
}

// LinearGeometry spreads extent elements over blocks of threads invocations.
// The block count truncates; the uncovered tail is reported in Remainder.
func LinearGeometry(extent, threads int) (Geometry, error) {
	if threads < 1 {
		return Geometry{}, fmt.Errorf("linear geometry: %d threads: %w", threads, ErrInvalidDimension)
	}
	if extent < 0 {
		return Geometry{}, fmt.Errorf("linear geometry: extent %d: %w", extent, ErrInvalidDimension)
	}
	return Geometry{
		Blocks:    uint32(extent / threads),
		Threads:   uint32(threads),
		Remainder: uint32(extent % threads),
	}, nil
}

// CheckLimits reports whether g fits within l.
func (g Geometry) CheckLimits(l Limits) error {
	if l.MaxWorkgroupsPerDimension > 0 && g.Blocks > l.MaxWorkgroupsPerDimension {
		return fmt.Errorf("%d blocks > %d: %w", g.Blocks, l.MaxWorkgroupsPerDimension, ErrGeometryLimit)
	}
	if l.MaxThreadsPerBlock > 0 && g.Threads > l.MaxThreadsPerBlock {
		return fmt.Errorf("%d threads > %d: %w", g.Threads, l.MaxThreadsPerBlock, ErrGeometryLimit)
	}
	return nil
}
