// Package inputproxy is the event entry point that coordinates scroll
// smoothing, short-horizon prediction, pending-prediction bookkeeping and
// deferred reconciliation against the authoritative server response.
//
// Grounded on _examples/original_source/input/input_proxy.c.
package inputproxy

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nearlag/nearlag/pkg/event"
	"github.com/nearlag/nearlag/pkg/injector"
	"github.com/nearlag/nearlag/pkg/predictor"
	"github.com/nearlag/nearlag/pkg/scrollsmoother"
)

// staleAfter is the age beyond which a pending prediction is swept away
// unconditionally (spec.md §3, §4.3).
const staleAfter = time.Second

// reconcileTolerance is the per-axis delta tolerance used when comparing a
// predicted pointer-motion event against the authoritative one.
const reconcileTolerance = 0.1

// pending is one outstanding prediction awaiting reconciliation.
type pending struct {
	frameID     uint64
	predicted   event.Event
	createdAtUS uint64
}

// PredictionState is a read-only snapshot of the proxy's prediction
// counters (spec.md §4.3, "Prediction state read-out").
type PredictionState struct {
	Enabled           bool
	WindowMS          uint32
	LastPredictionUS  uint64
	EventsPredicted   uint64
	EventsReconciled  uint64
}

// Config selects the proxy's behavior.
type Config struct {
	EnablePrediction       bool
	PredictionWindowMS     uint32
	EnableScrollSmoothing  bool
}

// Proxy is the Input Proxy component. It is not safe for concurrent use
// from multiple goroutines by design: spec.md §5 documents a single
// logical event-loop thread, so Process carries a re-entrance guard that
// panics on concurrent calls. pendingMu guards the pending list and the
// counters that Process, Reconcile and the read-out methods share.
type Proxy struct {
	cfg Config

	smoother  *scrollsmoother.Smoother
	predict   *predictor.State
	injector  injector.LocalInjector
	logger    *slog.Logger

	pendingMu sync.Mutex // guards pendingList; see note below
	pendingList []pending

	eventsPredicted  uint64
	eventsReconciled uint64
	lastPredictionUS uint64

	// reentrant is a re-entrance guard, active in every build. spec.md §5/§9 assume a
	// single logical event-loop thread; this panics loudly if Process is
	// ever called concurrently with itself instead of silently corrupting
	// pendingList.
	reentrant atomic.Bool

	// lastErrDX/lastErrDY record the last out-of-tolerance per-axis reconciliation
	// error. It is a refinement hook (spec.md §9): the predictor does not
	// yet consume it, but it must not be mistaken for dead code by a
	// future implementer wiring model feedback.
	lastErrDX, lastErrDY float64
}

// New creates a Proxy. A nil injector degrades to injector.Nop{}.
func New(cfg Config, nowUS uint64, inj injector.LocalInjector, logger *slog.Logger) *Proxy {
	if inj == nil {
		inj = injector.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Proxy{
		cfg:      cfg,
		injector: inj,
		logger:   logger,
	}
	if cfg.EnableScrollSmoothing {
		p.smoother = scrollsmoother.New(nowUS)
	}
	if cfg.EnablePrediction {
		p.predict = predictor.New(cfg.PredictionWindowMS)
	}
	return p
}

// nowUS returns the current monotonic microsecond timestamp.
func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Process is the Input Proxy's entry point (spec.md §4.3).
//
// frameID is the frame identifier the caller allocated for this input
// (typically Surface.GenerateFrameID on the surface currently receiving
// this input) — see spec.md §9's Open Question resolution: reconciliation
// is by this externally supplied ID, not a proxy-private counter.
//
// wantOutput requests a distinct, caller-owned copy of any synthesized
// event (smoothed scroll or predicted motion). When wantOutput is false
// the proxy retains sole ownership of the synthesized event and returns
// nothing.
func (p *Proxy) Process(ev event.Event, frameID uint64, wantOutput bool) (out event.Event, produced bool) {
	if !p.reentrant.CompareAndSwap(false, true) {
		panic("inputproxy: Process called re-entrantly; core assumes a single event-loop thread")
	}
	defer p.reentrant.Store(false)

	now := nowUS()

	switch ev.Type {
	case event.Scroll:
		if p.cfg.EnableScrollSmoothing && p.smoother != nil {
			sdx, sdy := p.smoother.Process(now, ev.Scroll.DX, ev.Scroll.DY, ev.Scroll.Discrete)
			p.injector.Scroll(sdx, sdy)
			if wantOutput {
				smoothed := ev
				smoothed.Scroll.DX = sdx
				smoothed.Scroll.DY = sdy
				smoothed.Scroll.Discrete = false
				return smoothed, true
			}
		}
		return event.Event{}, false

	case event.PointerMotion:
		if p.cfg.EnablePrediction && p.predict != nil {
			predicted := ev
			predicted.TimestampUS = now + uint64(p.cfg.PredictionWindowMS)*1000
			pdx, pdy := p.predict.PredictPointer(float64(now)/1e6, ev.Motion.DX, ev.Motion.DY)
			predicted.Motion.DX = pdx
			predicted.Motion.DY = pdy

			p.injector.MoveRelative(pdx, pdy)

			p.pendingMu.Lock()
			p.pendingList = append([]pending{{
				frameID:     frameID,
				predicted:   predicted,
				createdAtUS: now,
			}}, p.pendingList...)
			p.eventsPredicted++
			p.lastPredictionUS = now
			p.pendingMu.Unlock()

			if wantOutput {
				return predicted.Clone(), true
			}
			return event.Event{}, false
		}
		return event.Event{}, false

	default:
		// Button, Key, Touch: pass through unchanged, never tracked.
		return event.Event{}, false
	}
}

// Reconcile retires the pending prediction for frameID, if any, compares it
// against actual (when provided) to classify the prediction as correct or
// not, then sweeps every pending entry older than staleAfter. It returns
// whether a matching pending entry was found (spec.md §4.3).
func (p *Proxy) Reconcile(frameID uint64, actual *event.Event) bool {
	p.pendingMu.Lock()
	var found *pending
	idx := -1
	for i := range p.pendingList {
		if p.pendingList[i].frameID == frameID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		entry := p.pendingList[idx]
		found = &entry
		p.pendingList = append(p.pendingList[:idx], p.pendingList[idx+1:]...)
	}
	p.pendingMu.Unlock()

	ok := found != nil

	if found != nil {
		correct := true
		if actual != nil {
			if found.predicted.Type == actual.Type && found.predicted.Type == event.PointerMotion {
				dxDiff := math.Abs(found.predicted.Motion.DX - actual.Motion.DX)
				dyDiff := math.Abs(found.predicted.Motion.DY - actual.Motion.DY)
				correct = dxDiff < reconcileTolerance && dyDiff < reconcileTolerance
				if !correct {
					p.lastErrDX = found.predicted.Motion.DX - actual.Motion.DX
					p.lastErrDY = found.predicted.Motion.DY - actual.Motion.DY
				}
			}
		}
	}

	p.pendingMu.Lock()
	p.eventsReconciled++
	p.pendingMu.Unlock()

	p.sweepStale(nowUS())

	return ok
}

// sweepStale removes every pending entry older than staleAfter relative to
// now. Required because the presentation side can legitimately drop
// frames; without this the pending list grows unboundedly.
func (p *Proxy) sweepStale(now uint64) {
	cutoff := uint64(staleAfter.Microseconds())
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	kept := p.pendingList[:0]
	for _, entry := range p.pendingList {
		if now-entry.createdAtUS <= cutoff {
			kept = append(kept, entry)
		}
	}
	p.pendingList = kept
}

// PendingCount returns the number of outstanding predictions. Exposed for
// tests and diagnostics.
func (p *Proxy) PendingCount() int {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return len(p.pendingList)
}

// PredictionState returns a read-out of prediction counters.
func (p *Proxy) PredictionState() PredictionState {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return PredictionState{
		Enabled:          p.cfg.EnablePrediction,
		WindowMS:         p.cfg.PredictionWindowMS,
		LastPredictionUS: p.lastPredictionUS,
		EventsPredicted:  p.eventsPredicted,
		EventsReconciled: p.eventsReconciled,
	}
}

// LastPredictionError returns the most recent out-of-tolerance per-axis
// error recorded by Reconcile. This is the refinement hook described in
// spec.md §9: nothing in this package feeds it back into the predictor
// yet, but future model tuning should read it from here rather than
// re-deriving it.
func (p *Proxy) LastPredictionError() (dx, dy float64) {
	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()
	return p.lastErrDX, p.lastErrDY
}
