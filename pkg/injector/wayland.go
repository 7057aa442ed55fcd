package injector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bnema/wayland-virtual-input-go/virtual_pointer"
)

// WaylandInjector drives a zwlr_virtual_pointer_v1 device to apply
// predicted pointer motion and scroll immediately to the local display,
// ahead of the authoritative round trip. Adapted from
// _examples/helixml-helix/api/pkg/desktop/wayland_input.go, trimmed to the
// subset the input proxy actually needs (relative motion + scroll); key
// injection belongs to the real input path, not prediction feedback.
type WaylandInjector struct {
	manager *virtual_pointer.VirtualPointerManager
	pointer *virtual_pointer.VirtualPointer

	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// NewWaylandInjector connects to the compositor and creates a virtual
// pointer device. Callers should fall back to Nop{} if this errors —
// local injection is a feedback convenience, not required for the core
// proxy to function (spec.md §7).
func NewWaylandInjector(logger *slog.Logger) (*WaylandInjector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	manager, err := virtual_pointer.NewVirtualPointerManager(context.Background())
	if err != nil {
		return nil, fmt.Errorf("create virtual pointer manager: %w", err)
	}

	pointer, err := manager.CreatePointer()
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("create virtual pointer: %w", err)
	}

	logger.Info("wayland local injector ready")

	return &WaylandInjector{
		manager: manager,
		pointer: pointer,
		logger:  logger,
	}, nil
}

// MoveRelative applies a predicted relative pointer motion.
func (w *WaylandInjector) MoveRelative(dx, dy float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pointer.MoveRelative(dx, dy)
	w.pointer.Frame()
}

// Scroll applies a predicted smoothed scroll delta.
func (w *WaylandInjector) Scroll(dx, dy float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if dy != 0 {
		w.pointer.ScrollVertical(dy)
	}
	if dx != 0 {
		w.pointer.ScrollHorizontal(dx)
	}
	w.pointer.Frame()
}

// Close releases the virtual pointer device.
func (w *WaylandInjector) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.pointer != nil {
		if cerr := w.pointer.Close(); cerr != nil {
			err = fmt.Errorf("close pointer: %w", cerr)
		}
	}
	if w.manager != nil {
		w.manager.Close()
	}
	return err
}

var _ LocalInjector = (*WaylandInjector)(nil)
