package lens

import (
	"strconv"

	"github.com/nearlag/nearlag/pkg/config"
)

const sunshineDefaultPort = 47989

// sunshineSession runs sunshine, the high-motion video lens tuned for
// gaming-style workloads. Grounded on lens_sunshine.c's build_sunshine_argv.
type sunshineSession struct {
	process
	cfg *config.Config
}

// NewSunshine creates a video-high-motion lens session.
func NewSunshine(cfg *config.Config) Session {
	s := &sunshineSession{cfg: cfg}
	s.process = process{
		name:      "sunshine",
		buildArgv: s.argv,
		env:       cfg.Application.ArgvEnv(),
		dir:       cfg.Application.WorkingDirectory,
	}
	return s
}

func (s *sunshineSession) argv() []string {
	conn := s.cfg.Connection
	perf := s.cfg.Performance
	app := s.cfg.Application

	argv := []string{"sunshine"}

	if conn.RemoteHost != "" {
		argv = append(argv, "--host", conn.RemoteHost)
	}
	if conn.RemotePort != 0 && conn.RemotePort != sunshineDefaultPort {
		argv = append(argv, "--port", strconv.Itoa(conn.RemotePort))
	}
	if perf.FrameRate > 0 {
		argv = append(argv, "--fps", strconv.Itoa(perf.FrameRate))
	}
	if conn.VideoCodec != "" {
		argv = append(argv, "--codec", conn.VideoCodec)
	}
	if app.Executable != "" {
		argv = append(argv, "--app", app.Executable)
		argv = append(argv, app.Args...)
	}
	return argv
}

func (s *sunshineSession) Start() error { return s.process.start() }
func (s *sunshineSession) Stop() error  { return s.process.stop() }
func (s *sunshineSession) Destroy()     { _ = s.process.stop() }
func (s *sunshineSession) GetMetrics() (Metrics, error) {
	return s.process.metrics(), nil
}
func (s *sunshineSession) Type() config.LensType { return config.LensSunshine }

var _ Session = (*sunshineSession)(nil)
