// Package injector applies a predicted input event to the local display
// immediately, so the user gets as-if-local feedback ahead of the real
// round trip to the remote end (spec.md §1, §4.10 in SPEC_FULL.md).
//
// Grounded on _examples/helixml-helix/api/pkg/desktop/wayland_input.go,
// which drives the same zwlr_virtual_pointer_v1 / zwp_virtual_keyboard_v1
// protocols via github.com/bnema/wayland-virtual-input-go.
package injector

// LocalInjector is the narrow interface the input proxy calls into. All
// methods are best-effort and fire-and-forget: a failure here must never
// block or fail the caller's event processing (spec.md §7's hot-path
// degradation policy).
type LocalInjector interface {
	MoveRelative(dx, dy float64)
	Scroll(dx, dy float64)
	Close() error
}

// Nop is a LocalInjector that does nothing. It is the default when no
// compositor connection is available (headless sessions, tests).
type Nop struct{}

func (Nop) MoveRelative(dx, dy float64) {}
func (Nop) Scroll(dx, dy float64)       {}
func (Nop) Close() error                { return nil }

var _ LocalInjector = Nop{}
