// Package predictor implements short-horizon linear extrapolation of
// pointer motion given recent velocity. It is pure: all timestamping and
// I/O happen in the caller (the input proxy).
//
// Grounded on _examples/original_source/input/input_proxy.c's inline
// "simple extrapolation" fallback path (dx * 1.1), generalized into a
// reusable, resettable component per spec.md §4.2.
package predictor

// BaselineFactor is the documented reconciliation-tolerance baseline (see
// spec.md §4.3), used when there is no recent sample. A prediction made with
// it exceeds the unextrapolated delta by a tenth of that delta, so it stays
// inside the 0.1-unit reconciliation tolerance only for deltas under 1 unit.
const BaselineFactor = 1.1

// State holds a predictor's configuration and any accumulated recent
// velocity estimate. The zero value has WindowMS 0: its first sample is
// scaled by BaselineFactor and later samples are returned unchanged; use New
// for the documented defaults.
type State struct {
	WindowMS        uint32
	SmoothingFactor float64
	VelocityDecay   float64

	recentVelocityX, recentVelocityY float64
	lastSampleSec                    float64
	haveRecent                       bool
}

// New creates predictor state for the given prediction window (ms).
func New(windowMS uint32) *State {
	return &State{
		WindowMS:        windowMS,
		SmoothingFactor: 0.7,
		VelocityDecay:   0.9,
	}
}

// Reset clears accumulated velocity. Callers must invoke this on device
// change or after a long idle gap (spec.md §3 Predictor State).
func (s *State) Reset() {
	s.recentVelocityX = 0
	s.recentVelocityY = 0
	s.haveRecent = false
}

// factor computes the extrapolation multiplier k ≈ 1 + W/Δt_recent,
// clamped to a safe range, falling back to BaselineFactor when there is no
// recent-velocity estimate yet (first sample after reset).
func (s *State) factor(dtSec float64) float64 {
	if !s.haveRecent || dtSec <= 0 {
		return BaselineFactor
	}
	windowSec := float64(s.WindowMS) / 1000.0
	k := 1 + windowSec/dtSec
	const (
		minK = 1.0
		maxK = 2.0
	)
	if k < minK {
		k = minK
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// PredictPointer extrapolates a relative pointer delta by a factor derived
// from recent velocity and the configured window, updating the internal
// velocity estimate for next time.
func (s *State) PredictPointer(tNowSec float64, dx, dy float64) (pdx, pdy float64) {
	var dt float64
	if s.haveRecent {
		dt = tNowSec - s.lastSampleSec
	}

	k := s.factor(dt)
	pdx = dx * k
	pdy = dy * k

	if dt > 0 {
		alpha := s.SmoothingFactor
		newVX := dx / dt
		newVY := dy / dt
		s.recentVelocityX = alpha*s.recentVelocityX + (1-alpha)*newVX
		s.recentVelocityY = alpha*s.recentVelocityY + (1-alpha)*newVY
		s.recentVelocityX *= s.VelocityDecay
		s.recentVelocityY *= s.VelocityDecay
	}
	s.lastSampleSec = tNowSec
	s.haveRecent = true

	return pdx, pdy
}

// PredictScroll extrapolates a smoother-derived scroll delta using the
// same shape as PredictPointer (spec.md §4.2).
func (s *State) PredictScroll(tNowSec float64, dx, dy float64) (pdx, pdy float64) {
	return s.PredictPointer(tNowSec, dx, dy)
}
