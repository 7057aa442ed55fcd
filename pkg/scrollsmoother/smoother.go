// Package scrollsmoother implements a per-device velocity-space
// exponential filter that turns discrete wheel ticks and raw continuous
// scroll deltas into smoothed motion.
//
// Grounded on _examples/original_source/input/scroll_smoother.c.
package scrollsmoother

// DefaultSmoothingFactor and DefaultVelocityDecay mirror the original
// program's defaults (0.7 / 0.9): alpha near 1 attenuates jitter, decay < 1
// guarantees bounded output that settles to zero once input stops.
const (
	DefaultSmoothingFactor = 0.7
	DefaultVelocityDecay   = 0.9

	// discreteTickScale converts one accumulated discrete tick into a
	// continuous delta fed to the filter.
	discreteTickScale = 0.1

	// minDT is the floor applied to the elapsed-time denominator so a
	// burst of same-microsecond events can't blow up the velocity update.
	minDT = 0.001
)

// Smoother holds one device's velocity-filter state. The zero value is not
// ready to use; call New.
type Smoother struct {
	SmoothingFactor float64
	VelocityDecay   float64

	velocityX, velocityY float64
	positionX, positionY float64
	lastUpdateUS         uint64

	discreteAccumX, discreteAccumY int32
}

// New creates a Smoother with the documented defaults and the given
// initial timestamp (microseconds, monotonic clock).
func New(nowUS uint64) *Smoother {
	return &Smoother{
		SmoothingFactor: DefaultSmoothingFactor,
		VelocityDecay:   DefaultVelocityDecay,
		lastUpdateUS:    nowUS,
	}
}

// Position returns the informational position accumulator. It is not
// authoritative and exists only for diagnostics.
func (s *Smoother) Position() (x, y float64) {
	return s.positionX, s.positionY
}

// Process converts one raw scroll sample into a smoothed delta.
//
// If discrete is set, dx/dy are truncated to integer ticks and accumulated;
// the accumulated ticks are converted to a continuous delta (scaled by
// discreteTickScale) and the accumulators are cleared, so a single tick
// becomes a smooth 0.1-unit motion fed into the filter.
func (s *Smoother) Process(nowUS uint64, dx, dy float64, discrete bool) (smoothedDX, smoothedDY float64) {
	dt := float64(nowUS-s.lastUpdateUS) / 1e6
	if dt < minDT {
		dt = minDT
	}

	if discrete {
		s.discreteAccumX += int32(dx)
		s.discreteAccumY += int32(dy)

		dx = float64(s.discreteAccumX) * discreteTickScale
		dy = float64(s.discreteAccumY) * discreteTickScale

		s.discreteAccumX = 0
		s.discreteAccumY = 0
	}

	newVX := dx / dt
	newVY := dy / dt

	alpha := s.SmoothingFactor
	s.velocityX = alpha*s.velocityX + (1-alpha)*newVX
	s.velocityY = alpha*s.velocityY + (1-alpha)*newVY

	s.velocityX *= s.VelocityDecay
	s.velocityY *= s.VelocityDecay

	smoothedDX = s.velocityX * dt
	smoothedDY = s.velocityY * dt

	s.positionX += smoothedDX
	s.positionY += smoothedDY
	s.lastUpdateUS = nowUS

	return smoothedDX, smoothedDY
}
