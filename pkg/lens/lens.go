// Package lens abstracts the transport mechanisms a session can run over
// (waypipe, sunshine, moonlight) behind a single interface, per spec.md
// §4.6–§4.7.
//
// Grounded on _examples/original_source/lenses/lens.h (the vtable
// contract) and lens_waypipe.c / lens_sunshine.c / lens_moonlight.c (the
// per-lens argv construction and process lifecycle), with the subprocess
// launch idiom adapted from
// _examples/helixml-helix/api/pkg/desktop/exec.go.
package lens

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/nearlag/nearlag/pkg/config"
)

// Metrics is the lens-specific metrics snapshot returned by GetMetrics.
// Every lens implementation fills in what it can; a field a lens cannot
// observe is left zero.
type Metrics struct {
	TimestampUS uint64
}

// Session is one running transport lens instance (spec.md §4.6). All
// methods are safe to call from a single orchestrating goroutine; Session
// is not meant to be shared across goroutines without external locking.
type Session interface {
	// Start launches the underlying transport process.
	Start() error
	// Stop terminates the transport process if running. Calling Stop on a
	// session that was never started, or already stopped, is a no-op.
	Stop() error
	// Destroy releases any resources held by the session. Implementations
	// call Stop first if still running.
	Destroy()
	// GetMetrics returns the lens's current metrics snapshot.
	GetMetrics() (Metrics, error)
	// Type identifies which lens this session belongs to.
	Type() config.LensType
}

// process is the shared process-lifecycle state every lens implementation
// embeds (spec.md §4.7's fork+exec pattern, expressed with os/exec rather
// than raw fork/exec since the Go runtime multiplexes OS threads under
// goroutines and os/exec already handles the exec-failure handshake that
// the original C implementation built by hand with a close-on-exec pipe).
type process struct {
	name      string
	buildArgv func() []string
	env       []string
	dir       string

	cmd       *exec.Cmd
	running   bool
	startedUS uint64
}

// start launches the process and waits just long enough to distinguish an
// exec failure (bad binary, ENOENT) from a successfully started process,
// mirroring the pipe-handshake guarantee in lens_sunshine.c/lens_moonlight.c:
// a Start call returns an error synchronously if the binary could not be
// exec'd, and succeeds once the process is confirmed running.
func (p *process) start() error {
	if p.running {
		return fmt.Errorf("lens %s: already running", p.name)
	}

	argv := p.buildArgv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = p.env
	cmd.Dir = p.dir

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("lens %s: start %s: %w", p.name, argv[0], err)
	}

	p.cmd = cmd
	p.running = true
	p.startedUS = uint64(time.Now().UnixMicro())
	return nil
}

func (p *process) stop() error {
	if !p.running {
		return nil
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	p.running = false
	return nil
}

func (p *process) metrics() Metrics {
	return Metrics{TimestampUS: uint64(time.Now().UnixMicro())}
}
