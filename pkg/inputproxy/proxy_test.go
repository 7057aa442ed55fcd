package inputproxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearlag/nearlag/pkg/event"
)

func TestProcess_PointerMotion_PredictsAndTracksPending(t *testing.T) {
	now := uint64(time.Now().UnixMicro())
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, now, nil, nil)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 10, DY: 5}}
	out, produced := p.Process(ev, 1, true)

	require.True(t, produced)
	assert.Equal(t, event.PointerMotion, out.Type)
	assert.Equal(t, 1, p.PendingCount())
	assert.Equal(t, uint64(1), p.PredictionState().EventsPredicted)
}

func TestProcess_PointerMotion_NoOutputWhenNotRequested(t *testing.T) {
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, uint64(time.Now().UnixMicro()), nil, nil)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 1, DY: 1}}
	_, produced := p.Process(ev, 1, false)

	assert.False(t, produced)
	assert.Equal(t, 1, p.PendingCount())
}

func TestProcess_PointerMotion_OutputIsDistinctFromOriginal(t *testing.T) {
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, uint64(time.Now().UnixMicro()), nil, nil)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 1, DY: 1}}
	out, _ := p.Process(ev, 1, true)

	out.Motion.DX = 999
	assert.NotEqual(t, out.Motion.DX, ev.Motion.DX)
}

func TestReconcile_RetiresMatchingPending(t *testing.T) {
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, uint64(time.Now().UnixMicro()), nil, nil)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 2, DY: 2}}
	p.Process(ev, 7, false)
	require.Equal(t, 1, p.PendingCount())

	found := p.Reconcile(7, nil)
	assert.True(t, found)
	assert.Equal(t, 0, p.PendingCount())
	assert.Equal(t, uint64(1), p.PredictionState().EventsReconciled)
}

func TestReconcile_UnknownFrameIDReturnsFalse(t *testing.T) {
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, uint64(time.Now().UnixMicro()), nil, nil)
	assert.False(t, p.Reconcile(404, nil))
}

func TestReconcile_RecordsErrorWhenOutOfTolerance(t *testing.T) {
	now := uint64(time.Now().UnixMicro())
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, now, nil, nil)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 10, DY: 5}}
	p.Process(ev, 1, false)

	actual := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 1, DY: 1}}
	p.Reconcile(1, &actual)

	dx, dy := p.LastPredictionError()
	assert.NotZero(t, dx)
	assert.NotZero(t, dy)
}

func TestSweepStale_DropsOldPendingEntries(t *testing.T) {
	old := uint64(time.Now().Add(-2 * time.Second).UnixMicro())
	p := New(Config{EnablePrediction: true, PredictionWindowMS: 16}, old, nil, nil)

	p.pendingMu.Lock()
	p.pendingList = append(p.pendingList, pending{frameID: 1, createdAtUS: old})
	p.pendingMu.Unlock()

	p.sweepStale(uint64(time.Now().UnixMicro()))
	assert.Equal(t, 0, p.PendingCount())
}

func TestProcess_Scroll_Smooths(t *testing.T) {
	p := New(Config{EnableScrollSmoothing: true}, uint64(time.Now().UnixMicro()), nil, nil)

	ev := event.Event{Type: event.Scroll, Scroll: event.ScrollData{DY: 10}}
	out, produced := p.Process(ev, 0, true)

	require.True(t, produced)
	assert.Equal(t, event.Scroll, out.Type)
	assert.False(t, out.Scroll.Discrete)
}

func TestProcess_ButtonPassesThroughUntracked(t *testing.T) {
	p := New(Config{}, uint64(time.Now().UnixMicro()), nil, nil)

	ev := event.Event{Type: event.PointerButton, Button: event.Button{Button: 1, Down: true}}
	_, produced := p.Process(ev, 0, true)

	assert.False(t, produced)
	assert.Equal(t, 0, p.PendingCount())
}
