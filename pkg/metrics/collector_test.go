package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearlag/nearlag/pkg/surface"
)

func TestInit_SecondCallFails(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))
	err := c.Init(ObservabilityConfig{EnableMetrics: true})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestRecordFrame_UpdatesTotalsAndDropped(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))

	c.RecordFrame(surface.FrameRecord{LatencyMS: 12, Dropped: false})
	c.RecordFrame(surface.FrameRecord{LatencyMS: 0, Dropped: true})

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.FramesTotal)
	assert.Equal(t, uint64(1), snap.FramesDropped)
}

func TestRecordInputEvent_UpdatesCounters(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))

	c.RecordInputEvent(true, false)
	c.RecordInputEvent(false, true)

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.InputEventsTotal)
	assert.Equal(t, uint64(1), snap.InputEventsPredicted)
	assert.Equal(t, uint64(1), snap.InputEventsReconciled)
}

func TestBandwidthWindow_AveragesAndEvicts(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))

	// Simulate the §8 bandwidth scenario by directly manipulating the
	// sample ring's timestamps (RecordBandwidth always stamps "now").
	c.mu.Lock()
	c.samples = []sample{
		{tsUS: 0, rx: 1000},
		{tsUS: 500_000, rx: 1000},
		{tsUS: 900_000, rx: 1000},
	}
	c.mu.Unlock()

	c.mu.Lock()
	c.evictLocked(900_000)
	rxBps, _ := c.bandwidthLocked()
	c.mu.Unlock()
	assert.Equal(t, uint64(24_000), rxBps)

	c.mu.Lock()
	c.evictLocked(1_200_000)
	rxBps, _ = c.bandwidthLocked()
	c.mu.Unlock()
	assert.Equal(t, uint64(16_000), rxBps)
}

func TestSnapshot_EvictsStaleBandwidthSamplesWithoutANewRecord(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))

	now := nowUS()
	c.mu.Lock()
	c.samples = []sample{
		{tsUS: now - 2_000_000, rx: 5000}, // 2s old: outside the 1s window, must not count
		{tsUS: now - 100_000, rx: 1000},   // 100ms old: inside the window
	}
	c.mu.Unlock()

	// No RecordBandwidth call happens between planting the stale sample and
	// reading Snapshot; Snapshot itself must evict it before averaging.
	snap := c.Snapshot()
	assert.Equal(t, uint64(8_000), snap.BandwidthRxBps)

	c.mu.Lock()
	remaining := len(c.samples)
	c.mu.Unlock()
	assert.Equal(t, 1, remaining)
}

func TestFlush_NoopWithoutFileOrBroadcaster(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))
	c.RecordFrame(surface.FrameRecord{LatencyMS: 5})
	assert.NotPanics(t, func() { c.Flush() })
}

type fakeBroadcaster struct {
	got []Snapshot
}

func (f *fakeBroadcaster) Broadcast(s Snapshot) { f.got = append(f.got, s) }

func TestFlush_NotifiesBroadcaster(t *testing.T) {
	c := New()
	require.NoError(t, c.Init(ObservabilityConfig{EnableMetrics: true}))
	fb := &fakeBroadcaster{}
	c.SetBroadcaster(fb)

	c.Flush()
	c.Flush()
	assert.Len(t, fb.got, 2)
}
