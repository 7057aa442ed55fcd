// Package metrics collects frame, input and bandwidth counters and
// periodically flushes a JSON snapshot, per spec.md §4.5 and §6.
//
// Grounded on _examples/original_source/core/metrics.c.
package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"

	"github.com/nearlag/nearlag/pkg/surface"
)

// ErrAlreadyInitialized is returned by Init when a collector is already
// live (spec.md §4.5 lifecycle, §7 taxonomy: already-initialised).
var ErrAlreadyInitialized = errors.New("metrics: collector already initialized")

// bandwidthWindow is the default sliding-window duration used for the
// bandwidth average (spec.md §3, §4.5).
const bandwidthWindow = time.Second

// sample is one bandwidth measurement in the sliding window.
type sample struct {
	tsUS   uint64
	rx, tx uint64
}

// Snapshot is the metrics document emitted by Flush, matching the field
// set in spec.md §6's metrics file format.
type Snapshot struct {
	TimestampUS          uint64 `json:"timestamp"`
	EndToEndLatencyMS    uint32 `json:"end_to_end_latency_ms"`
	InputLagMS           uint32 `json:"input_lag_ms"`
	FrameDelayMS         uint32 `json:"frame_delay_ms"`
	FramesPerSecond      uint32 `json:"frames_per_second"`
	FramesDropped        uint64 `json:"frames_dropped"`
	FramesTotal          uint64 `json:"frames_total"`
	BandwidthRxBps       uint64 `json:"bandwidth_rx_bps"`
	BandwidthTxBps       uint64 `json:"bandwidth_tx_bps"`
	InputEventsPredicted uint64 `json:"input_events_predicted"`
	InputEventsReconciled uint64 `json:"input_events_reconciled"`
	InputEventsTotal     uint64 `json:"input_events_total"`
}

// Broadcaster receives a copy of every flushed Snapshot. See
// SPEC_FULL.md §4.11.
type Broadcaster interface {
	Broadcast(Snapshot)
}

// Collector is the Metrics Collector component. The zero value is not
// ready to use; call Init.
type Collector struct {
	mu sync.Mutex

	enabled      bool
	intervalMS   uint32
	metricsFile  string
	file         *os.File

	framesTotal, framesDropped uint64
	frameDelayMS               uint32
	lastFrameUS                uint64
	fps                        uint32

	inputTotal, inputPredicted, inputReconciled uint64

	samples        []sample
	totalRx, totalTx uint64

	broadcaster Broadcaster
}

var _ surface.FrameSink = (*Collector)(nil)

// New returns an uninitialized Collector.
func New() *Collector {
	return &Collector{}
}

// SetBroadcaster attaches (or clears, with nil) a live-snapshot fan-out.
func (c *Collector) SetBroadcaster(b Broadcaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.broadcaster = b
}

// ObservabilityConfig is the subset of configuration Init needs.
type ObservabilityConfig struct {
	EnableMetrics     bool
	MetricsIntervalMS uint32
	MetricsFile       string
}

// Init activates the collector. It is idempotent only in the sense that a
// second call while already live fails with ErrAlreadyInitialized; it is
// not an error to Init with EnableMetrics=false (a no-op collector).
func (c *Collector) Init(obs ObservabilityConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled {
		return ErrAlreadyInitialized
	}
	if !obs.EnableMetrics {
		return nil
	}

	c.enabled = true
	c.intervalMS = obs.MetricsIntervalMS
	c.metricsFile = obs.MetricsFile

	if obs.MetricsFile != "" {
		f, err := os.OpenFile(obs.MetricsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			// Metrics file I/O errors are logged and non-fatal (spec.md §7);
			// collection continues in memory without a file.
			slog.Warn("metrics: cannot open metrics file, continuing in memory", "path", obs.MetricsFile, "err", err)
			return nil
		}
		c.file = f
	}
	return nil
}

// Cleanup frees the sample ring and closes the metrics file.
func (c *Collector) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = nil
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.enabled = false
}

// RecordFrame updates frame counters and the instantaneous FPS estimate
// from the inverse inter-arrival interval since the previous frame. It
// satisfies surface.FrameSink.
func (c *Collector) RecordFrame(rec surface.FrameRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}

	c.framesTotal++
	if rec.Dropped {
		c.framesDropped++
	}
	c.frameDelayMS = rec.LatencyMS

	now := nowUS()
	if c.lastFrameUS > 0 {
		dt := now - c.lastFrameUS
		if dt > 0 {
			c.fps = uint32(1_000_000 / dt)
		}
	}
	c.lastFrameUS = now
}

// RecordInputEvent updates the three input counters.
func (c *Collector) RecordInputEvent(predicted, reconciled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.inputTotal++
	if predicted {
		c.inputPredicted++
	}
	if reconciled {
		c.inputReconciled++
	}
}

// RecordBandwidth pushes a sample onto the sliding window and evicts samples
// older than bandwidthWindow. The rx/tx bps figures are computed from the
// samples in the window when Snapshot is read.
func (c *Collector) RecordBandwidth(rx, tx uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}

	now := nowUS()
	c.samples = append(c.samples, sample{tsUS: now, rx: rx, tx: tx})
	c.evictLocked(now)
}

// evictLocked drops samples older than bandwidthWindow relative to now.
// Callers must hold c.mu.
func (c *Collector) evictLocked(now uint64) {
	windowUS := uint64(bandwidthWindow.Microseconds())
	cut := 0
	for cut < len(c.samples) && now-c.samples[cut].tsUS > windowUS {
		cut++
	}
	if cut > 0 {
		c.samples = c.samples[cut:]
	}
}

// bandwidthLocked computes rx/tx bps over the current window. Callers must
// hold c.mu.
func (c *Collector) bandwidthLocked() (rxBps, txBps uint64) {
	if len(c.samples) == 0 {
		return 0, 0
	}
	var sumRx, sumTx uint64
	for _, s := range c.samples {
		sumRx += s.rx
		sumTx += s.tx
	}
	windowUS := uint64(bandwidthWindow.Microseconds())
	rxBps = sumRx * 8 * 1_000_000 / windowUS
	txBps = sumTx * 8 * 1_000_000 / windowUS
	return rxBps, txBps
}

// Snapshot returns the current metrics without flushing. It evicts
// samples aged out of the bandwidth window first, so a bandwidth figure
// read without a fresh RecordBandwidth call still reflects the current
// window rather than a stale one.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(nowUS())
	rxBps, txBps := c.bandwidthLocked()
	return Snapshot{
		TimestampUS:           nowUS(),
		FrameDelayMS:          c.frameDelayMS,
		FramesPerSecond:       c.fps,
		FramesDropped:         c.framesDropped,
		FramesTotal:           c.framesTotal,
		BandwidthRxBps:        rxBps,
		BandwidthTxBps:        txBps,
		InputEventsPredicted:  c.inputPredicted,
		InputEventsReconciled: c.inputReconciled,
		InputEventsTotal:      c.inputTotal,
	}
}

// Flush emits one newline-delimited JSON snapshot to the configured
// metrics file and, if attached, the live Broadcaster. File I/O errors are
// logged through the default slog logger and are non-fatal (spec.md §7);
// Flush itself never returns an error for that reason, mirroring the
// original program's "metrics collection continues in memory" policy.
func (c *Collector) Flush() {
	snap := c.Snapshot()

	c.mu.Lock()
	f := c.file
	bc := c.broadcaster
	c.mu.Unlock()

	if f != nil {
		if data, err := json.Marshal(snap); err == nil {
			if _, err := f.Write(append(data, '\n')); err != nil {
				slog.Warn("metrics: write to metrics file failed", "err", err)
			}
		}
	}
	if bc != nil {
		bc.Broadcast(snap)
	}
}

// HumanizeBandwidth is a small convenience used by CLI/log output to print
// bandwidth figures like "3.0 MB/s" instead of a raw bps integer.
func HumanizeBandwidth(bps uint64) string {
	return fmt.Sprintf("%s/s", humanize.Bytes(bps/8))
}

// RotateAndCompress closes the current metrics file, gzip-compresses it to
// path+".gz" using klauspost/compress (faster than stdlib gzip on the
// write path), and reopens a fresh metrics file at the original path. This
// is an ambient observability convenience (SPEC_FULL.md §4.12's sibling):
// long-running sessions would otherwise grow one metrics file forever.
func (c *Collector) RotateAndCompress() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil || c.metricsFile == "" {
		return nil
	}

	c.file.Close()

	src, err := os.Open(c.metricsFile)
	if err != nil {
		return fmt.Errorf("reopen metrics file for rotation: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(c.metricsFile + ".gz")
	if err != nil {
		return fmt.Errorf("create rotated metrics file: %w", err)
	}
	defer dst.Close()

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		return fmt.Errorf("compress rotated metrics file: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("finalize rotated metrics file: %w", err)
	}

	if err := os.Truncate(c.metricsFile, 0); err != nil {
		return fmt.Errorf("truncate metrics file after rotation: %w", err)
	}

	f, err := os.OpenFile(c.metricsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reopen metrics file after rotation: %w", err)
	}
	c.file = f
	return nil
}

func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}
