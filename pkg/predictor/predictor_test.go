package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictPointer_FirstSampleUsesBaselineFactor(t *testing.T) {
	p := New(16)
	pdx, pdy := p.PredictPointer(0.0, 10, 5)
	assert.InDelta(t, 11.0, pdx, 1e-9)
	assert.InDelta(t, 5.5, pdy, 1e-9)
}

func TestPredictPointer_FactorClampedToSafeRange(t *testing.T) {
	p := New(16)
	p.PredictPointer(0.0, 10, 10)
	// Huge dt between samples should clamp k near 1, not blow up.
	pdx, _ := p.PredictPointer(1000.0, 10, 10)
	assert.LessOrEqual(t, pdx/10.0, 2.0)
	assert.GreaterOrEqual(t, pdx/10.0, 1.0)
}

func TestReset_ClearsRecentVelocity(t *testing.T) {
	p := New(16)
	p.PredictPointer(0.0, 10, 10)
	p.PredictPointer(0.01, 10, 10)
	p.Reset()

	pdx, pdy := p.PredictPointer(5.0, 10, 5)
	assert.InDelta(t, 11.0, pdx, 1e-9)
	assert.InDelta(t, 5.5, pdy, 1e-9)
}

func TestPredictScroll_SameShapeAsPointer(t *testing.T) {
	p := New(16)
	pdx, pdy := p.PredictScroll(0.0, 2, 1)
	assert.InDelta(t, 2.2, pdx, 1e-9)
	assert.InDelta(t, 1.1, pdy, 1e-9)
}
