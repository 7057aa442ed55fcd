// Package surface tracks display-server surfaces, assigns monotonic frame
// IDs on each commit, and routes presentation acknowledgements back to the
// input proxy for prediction retirement.
//
// Grounded on _examples/original_source/compositor/wl_surface.c (frame
// bookkeeping) and core/telescope.c (the registry/reconcile wiring).
package surface

import (
	"sync"
	"time"

	"github.com/nearlag/nearlag/pkg/event"
)

// Reconciler is the subset of inputproxy.Proxy the registry needs to
// retire a prediction once its frame has presented.
type Reconciler interface {
	Reconcile(frameID uint64, actual *event.Event) bool
}

// FrameRecord is what Registry.NotifyFramePresented reports to a metrics
// sink for each presentation callback.
type FrameRecord struct {
	LatencyMS uint32
	Dropped   bool
}

// FrameSink receives one FrameRecord per presentation callback.
type FrameSink interface {
	RecordFrame(rec FrameRecord)
}

// entry is one tracked surface's frame bookkeeping.
type entry struct {
	counter    uint64
	timestamps []uint64 // frame_id -> creation time (us); index 0 unused
}

const initialTableSize = 8 // index 0 is the sentinel "none"; IDs start at 1

func newEntry() *entry {
	return &entry{timestamps: make([]uint64, initialTableSize)}
}

// grow doubles the timestamp table so index id fits, zero-initialising new
// slots (spec.md §3, §4.4).
func (e *entry) grow(id uint64) {
	newSize := uint64(len(e.timestamps))
	if newSize == 0 {
		newSize = initialTableSize
	}
	for newSize <= id {
		newSize *= 2
	}
	grown := make([]uint64, newSize)
	copy(grown, e.timestamps)
	e.timestamps = grown
}

// Registry tracks all registered surfaces. It never blocks: it is driven
// entirely by external callbacks (spec.md §4.4 invariant iii).
type Registry struct {
	mu       sync.Mutex
	surfaces map[string]*entry
	sink     FrameSink
	proxy    Reconciler
}

// New creates an empty Registry. sink and proxy may be nil (metrics
// recording / reconciliation are then skipped, matching the "no-op"
// boundary behavior spec.md §8 describes for an unregistered surface).
func New(sink FrameSink, proxy Reconciler) *Registry {
	return &Registry{
		surfaces: make(map[string]*entry),
		sink:     sink,
		proxy:    proxy,
	}
}

// Register adds surface to the registry with a fresh frame-ID counter.
func (r *Registry) Register(surface string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.surfaces[surface]; exists {
		return
	}
	r.surfaces[surface] = newEntry()
}

// Unregister frees the surface's tracked frame entries.
func (r *Registry) Unregister(surface string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, surface)
}

// GenerateFrameID allocates the next monotonic frame ID for surface and
// records its creation timestamp. Called once per surface commit. Returns
// 0 if surface was never registered (spec.md §8 boundary behavior).
func (r *Registry) GenerateFrameID(surface string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.surfaces[surface]
	if !ok {
		return 0
	}

	e.counter++
	id := e.counter
	if uint64(len(e.timestamps)) <= id {
		e.grow(id)
	}
	e.timestamps[id] = nowUS()
	return id
}

// NotifyFramePresented reports that frameID on surface has presented at
// tsUS. If the frame's creation timestamp is on record, it computes
// latency, clears the slot and emits a non-dropped FrameRecord; otherwise
// it emits a dropped record with zero latency. Either way it reconciles
// frameID with the input proxy (nil actual: spec.md §4.4). It returns
// whether a creation timestamp was on record for frameID.
func (r *Registry) NotifyFramePresented(surface string, frameID uint64, tsUS uint64) bool {
	r.mu.Lock()
	e, ok := r.surfaces[surface]
	var latencyMS uint32
	dropped := true
	if ok && frameID < uint64(len(e.timestamps)) && e.timestamps[frameID] != 0 {
		createdUS := e.timestamps[frameID]
		e.timestamps[frameID] = 0
		latencyMS = uint32((tsUS - createdUS) / 1000)
		dropped = false
	}
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.RecordFrame(FrameRecord{LatencyMS: latencyMS, Dropped: dropped})
	}
	if r.proxy != nil {
		r.proxy.Reconcile(frameID, nil)
	}
	return !dropped
}

func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}
