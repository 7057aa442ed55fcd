package lens

import (
	"strconv"

	"github.com/nearlag/nearlag/pkg/config"
)

const moonlightDefaultPort = 47984

// moonlightSession runs moonlight, the low-latency decode lens. Grounded
// on lens_moonlight.c's build_moonlight_argv.
type moonlightSession struct {
	process
	cfg *config.Config
}

// NewMoonlight creates a video-low-latency-decode lens session.
func NewMoonlight(cfg *config.Config) Session {
	s := &moonlightSession{cfg: cfg}
	s.process = process{
		name:      "moonlight",
		buildArgv: s.argv,
		env:       cfg.Application.ArgvEnv(),
		dir:       cfg.Application.WorkingDirectory,
	}
	return s
}

func (s *moonlightSession) argv() []string {
	conn := s.cfg.Connection
	perf := s.cfg.Performance
	app := s.cfg.Application

	argv := []string{"moonlight"}

	if conn.RemoteHost != "" {
		argv = append(argv, "stream", conn.RemoteHost)
	}
	if conn.RemotePort != 0 && conn.RemotePort != moonlightDefaultPort {
		argv = append(argv, "--port", strconv.Itoa(conn.RemotePort))
	}
	if perf.FrameRate > 0 {
		argv = append(argv, "--fps", strconv.Itoa(perf.FrameRate))
	}
	if conn.VideoCodec != "" {
		argv = append(argv, "--codec", conn.VideoCodec)
	}
	if app.Executable != "" {
		argv = append(argv, app.Executable)
		argv = append(argv, app.Args...)
	}
	return argv
}

func (s *moonlightSession) Start() error { return s.process.start() }
func (s *moonlightSession) Stop() error  { return s.process.stop() }
func (s *moonlightSession) Destroy()     { _ = s.process.stop() }
func (s *moonlightSession) GetMetrics() (Metrics, error) {
	return s.process.metrics(), nil
}
func (s *moonlightSession) Type() config.LensType { return config.LensMoonlight }

var _ Session = (*moonlightSession)(nil)
