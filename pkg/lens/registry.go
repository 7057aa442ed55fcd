package lens

import (
	"fmt"

	"github.com/nearlag/nearlag/pkg/config"
)

// Factory builds a new, unstarted Session for one lens type.
type Factory func(cfg *config.Config) Session

// registry maps each concrete lens type to its Factory, the Go analogue of
// lens_get_ops's switch statement.
var registry = map[config.LensType]Factory{
	config.LensWaypipe:   NewWaypipe,
	config.LensSunshine:  NewSunshine,
	config.LensMoonlight: NewMoonlight,
}

// Create builds a Session for the given lens type. "auto" is not a
// concrete type here; callers resolve it first with config.SelectLens.
func Create(lensType config.LensType, cfg *config.Config) (Session, error) {
	factory, ok := registry[lensType]
	if !ok {
		return nil, fmt.Errorf("lens: unsupported type %q", lensType)
	}
	return factory(cfg), nil
}

// Candidates returns the ordered list of lens types an orchestrator should
// try: the resolved primary choice, then cfg.Lens.Fallback in order, then
// waypipe as the terminal protocol-forwarding lens (spec.md §4.7 — waypipe
// never needs a remote companion process and so never itself fails to be
// "supported"). Duplicates are removed, keeping the first occurrence's
// position, so a waypipe already listed earlier stays where it is and is
// not appended again.
func Candidates(cfg *config.Config) []config.LensType {
	primary := config.SelectLens(cfg)

	ordered := make([]config.LensType, 0, len(cfg.Lens.Fallback)+2)
	seen := make(map[config.LensType]bool)

	add := func(t config.LensType) {
		if t == "" || t == config.LensAuto || seen[t] {
			return
		}
		seen[t] = true
		ordered = append(ordered, t)
	}

	add(primary)
	for _, fb := range cfg.Lens.Fallback {
		add(fb)
	}
	add(config.LensWaypipe)

	return ordered
}
