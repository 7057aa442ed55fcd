package lens

import (
	"fmt"

	"github.com/nearlag/nearlag/pkg/config"
)

// waypipeSession runs waypipe as a protocol-forwarding transport (spec.md
// §4.7's always-available terminal lens). Grounded on
// lens_waypipe.c's build_waypipe_argv.
type waypipeSession struct {
	process
	cfg *config.Config
}

// NewWaypipe creates a protocol-forwarding lens session.
func NewWaypipe(cfg *config.Config) Session {
	s := &waypipeSession{cfg: cfg}
	s.process = process{
		name:      "waypipe",
		buildArgv: s.argv,
		env:       cfg.Application.ArgvEnv(),
		dir:       cfg.Application.WorkingDirectory,
	}
	return s
}

func (s *waypipeSession) argv() []string {
	conn := s.cfg.Connection
	app := s.cfg.Application

	argv := []string{"waypipe", "client"}

	if conn.Compression != "" && conn.Compression != "none" {
		argv = append(argv, fmt.Sprintf("--compress=%s", conn.Compression))
	}
	if conn.VideoCodec != "" {
		argv = append(argv, fmt.Sprintf("--video-codec=%s", conn.VideoCodec))
	}

	argv = append(argv, "--ssh", fmt.Sprintf("%s@%s", conn.SSHUser, conn.RemoteHost))
	argv = append(argv, "--", app.Executable)
	argv = append(argv, app.Args...)
	return argv
}

func (s *waypipeSession) Start() error { return s.process.start() }
func (s *waypipeSession) Stop() error  { return s.process.stop() }
func (s *waypipeSession) Destroy()     { _ = s.process.stop() }
func (s *waypipeSession) GetMetrics() (Metrics, error) {
	return s.process.metrics(), nil
}
func (s *waypipeSession) Type() config.LensType { return config.LensWaypipe }

var _ Session = (*waypipeSession)(nil)
