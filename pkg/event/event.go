// Package event defines the input event data model shared by the input
// proxy, scroll smoother and predictor.
package event

// Type tags the kind of input event carried by an Event value.
type Type int

const (
	// PointerMotion carries relative (and optionally absolute) pointer movement.
	PointerMotion Type = iota
	// PointerButton carries a mouse button press or release.
	PointerButton
	// Scroll carries continuous and/or discrete wheel movement.
	Scroll
	// Key carries a keyboard key press or release.
	Key
	// Touch carries a touch-point update.
	Touch
)

func (t Type) String() string {
	switch t {
	case PointerMotion:
		return "pointer_motion"
	case PointerButton:
		return "pointer_button"
	case Scroll:
		return "scroll"
	case Key:
		return "key"
	case Touch:
		return "touch"
	default:
		return "unknown"
	}
}

// Motion holds relative pointer deltas and an optional absolute position.
type Motion struct {
	DX, DY float64
	HasAbs bool
	X, Y   float64
}

// Button holds a pointer button event.
type Button struct {
	Button int32
	Down   bool
}

// ScrollData holds continuous scroll deltas and, if Discrete is set, the
// integer tick counts that produced them.
type ScrollData struct {
	DX, DY           float64
	Discrete         bool
	DiscreteDX       int32
	DiscreteDY       int32
}

// KeyData holds a keyboard event.
type KeyData struct {
	Keycode uint32
	Down    bool
}

// TouchData holds a touch-point update.
type TouchData struct {
	Slot uint32
	X, Y float64
}

// Event is a tagged-variant input event with a monotonic microsecond
// timestamp. Events are values: ownership transfers on every hand-off, and
// a single Event must never be referenced from two owners at once (see
// InputProxy's ownership discipline).
type Event struct {
	Type        Type
	TimestampUS uint64

	Motion Motion
	Button Button
	Scroll ScrollData
	Key    KeyData
	Touch  TouchData
}

// Clone returns an independent copy of e. Because Event holds no pointers
// or slices, a plain value copy already satisfies the "distinct owner"
// invariant; Clone exists so call sites can state that intent explicitly.
func (e Event) Clone() Event {
	return e
}
