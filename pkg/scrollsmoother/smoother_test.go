package scrollsmoother

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_DiscreteAccumulatesThenScales(t *testing.T) {
	s := New(0)
	dx, dy := s.Process(1000, 3, 0, true)
	// 3 ticks * 0.1 = 0.3 continuous input over dt=1ms (exactly the minDT floor).
	assert.NotZero(t, dx)
	assert.Zero(t, dy)

	// Accumulators must be cleared after conversion.
	assert.Equal(t, int32(0), s.discreteAccumX)
	assert.Equal(t, int32(0), s.discreteAccumY)
}

func TestProcess_ConvergesAndDecaysBelowInput(t *testing.T) {
	s := New(0)
	const dtUS = uint64(16000) // ~60Hz
	now := uint64(0)

	var last float64
	for i := 0; i < 200; i++ {
		now += dtUS
		dx, _ := s.Process(now, 5.0, 0, false)
		last = dx
	}

	// Steady state magnitude must be strictly less than the constant input
	// magnitude, because VelocityDecay < 1.
	require.Less(t, math.Abs(last), 5.0)
	assert.Greater(t, math.Abs(last), 0.0)
}

func TestProcess_DecaysToZeroWhenInputStops(t *testing.T) {
	s := New(0)
	now := uint64(0)
	for i := 0; i < 50; i++ {
		now += 16000
		s.Process(now, 5.0, 0, false)
	}

	var prev = math.Inf(1)
	for i := 0; i < 50; i++ {
		now += 16000
		dx, _ := s.Process(now, 0, 0, false)
		cur := math.Abs(dx)
		require.LessOrEqual(t, cur, prev+1e-9)
		prev = cur
	}
	assert.InDelta(t, 0, prev, 1e-3)
}

func TestProcess_ClampsMinimumDT(t *testing.T) {
	s := New(1000)
	// Same timestamp as creation: dt would be 0 without the floor.
	dx, dy := s.Process(1000, 1, 1, false)
	assert.False(t, math.IsInf(dx, 0))
	assert.False(t, math.IsInf(dy, 0))
	assert.False(t, math.IsNaN(dx))
}
