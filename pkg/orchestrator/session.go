// Package orchestrator drives one remote session end to end: selecting
// and starting a transport lens (with automatic fallback), wiring the
// input proxy, surface registry and metrics collector together, and
// tearing everything down on stop. Grounded on
// _examples/original_source/core/telescope.c's telescope_session_*
// lifecycle.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nearlag/nearlag/pkg/config"
	"github.com/nearlag/nearlag/pkg/injector"
	"github.com/nearlag/nearlag/pkg/inputproxy"
	"github.com/nearlag/nearlag/pkg/lens"
	"github.com/nearlag/nearlag/pkg/metrics"
	"github.com/nearlag/nearlag/pkg/surface"
)

// ErrAlreadyRunning is returned by Start when the session is already live.
var ErrAlreadyRunning = errors.New("orchestrator: session already running")

// ErrNoLensAvailable is returned by Start when every candidate lens failed
// to create or start, including the terminal waypipe fallback.
var ErrNoLensAvailable = errors.New("orchestrator: no lens candidate could be started")

// Session is one end-to-end remote session: a config, a selected and
// running lens, and the shared proxy/registry/metrics components that
// back it.
type Session struct {
	SessionID uuid.UUID

	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	proxy    *inputproxy.Proxy
	surface  *surface.Registry
	injector injector.LocalInjector

	lensSession lens.Session
	selected    config.LensType
	running     bool
	startedUS   uint64
}

// newWaylandInjector is a var, not a direct call, so tests can substitute a
// failing constructor without needing a real compositor connection.
var newWaylandInjector = injector.NewWaylandInjector

// New builds an unstarted Session, wiring a fresh metrics collector, local
// injector, input proxy and surface registry together the way the
// orchestrator needs them connected (registry -> proxy.Reconcile, collector
// <- registry frames, injector -> proxy). A local Wayland injector is
// attempted first; construction failure degrades to a no-op injector
// rather than failing session construction (SPEC_FULL.md §4.10, §8).
func New(cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	mc := metrics.New()

	var inj injector.LocalInjector
	wl, err := newWaylandInjector(logger)
	if err != nil {
		logger.Warn("orchestrator: local wayland injector unavailable, falling back to no-op", "err", err)
		inj = injector.Nop{}
	} else {
		inj = wl
	}

	proxyCfg := inputproxy.Config{
		EnablePrediction:      cfg.Performance.EnablePrediction,
		PredictionWindowMS:    uint32(cfg.Performance.PredictionWindowMS),
		EnableScrollSmoothing: cfg.Performance.EnableScrollSmoothing,
	}
	proxy := inputproxy.New(proxyCfg, nowUS(), inj, logger)

	reg := surface.New(mc, proxy)

	return &Session{
		SessionID: uuid.New(),
		cfg:       cfg,
		logger:    logger,
		metrics:   mc,
		proxy:     proxy,
		surface:   reg,
		injector:  inj,
	}
}

// InputProxy exposes the session's wired input proxy.
func (s *Session) InputProxy() *inputproxy.Proxy { return s.proxy }

// SurfaceRegistry exposes the session's wired surface registry.
func (s *Session) SurfaceRegistry() *surface.Registry { return s.surface }

// Metrics exposes the session's metrics collector.
func (s *Session) Metrics() *metrics.Collector { return s.metrics }

// SelectedLens reports which lens type ended up running, the zero value
// before Start succeeds.
func (s *Session) SelectedLens() config.LensType { return s.selected }

// Start tries each lens candidate in order (spec.md §4.7) until one
// creates and starts successfully, falling back to the next on failure.
func (s *Session) Start() error {
	if s.running {
		return ErrAlreadyRunning
	}

	if err := s.metrics.Init(metrics.ObservabilityConfig{
		EnableMetrics:     s.cfg.Observability.EnableMetrics,
		MetricsIntervalMS: uint32(s.cfg.Observability.MetricsIntervalMS),
		MetricsFile:       s.cfg.Observability.MetricsFile,
	}); err != nil {
		return fmt.Errorf("orchestrator: metrics init: %w", err)
	}

	candidates := lens.Candidates(s.cfg)

	var lastErr error
	for _, lensType := range candidates {
		ls, err := lens.Create(lensType, s.cfg)
		if err != nil {
			lastErr = err
			s.logger.Warn("orchestrator: lens unsupported, trying next", "lens", lensType, "err", err)
			continue
		}

		if err := ls.Start(); err != nil {
			lastErr = err
			s.logger.Warn("orchestrator: lens failed to start, trying next", "lens", lensType, "err", err)
			ls.Destroy()
			continue
		}

		s.lensSession = ls
		s.selected = lensType
		lastErr = nil
		break
	}

	if s.lensSession == nil {
		s.metrics.Cleanup()
		if lastErr != nil {
			return fmt.Errorf("%w: %s", ErrNoLensAvailable, lastErr)
		}
		return ErrNoLensAvailable
	}

	s.startedUS = nowUS()
	s.running = true
	s.logger.Info("orchestrator: session started", "session_id", s.SessionID, "lens", s.selected)
	return nil
}

// Stop tears down the active lens session and the metrics collector. It
// is idempotent: calling Stop on a session that was never started, or
// already stopped, succeeds silently.
func (s *Session) Stop() error {
	if !s.running {
		return nil
	}

	if s.lensSession != nil {
		if err := s.lensSession.Stop(); err != nil {
			s.logger.Warn("orchestrator: lens stop failed", "lens", s.selected, "err", err)
		}
		s.lensSession.Destroy()
		s.lensSession = nil
	}

	s.metrics.Cleanup()
	s.running = false
	s.logger.Info("orchestrator: session stopped", "session_id", s.SessionID)
	return nil
}

// Close releases the session's local injector. Safe to call whether or
// not the session was ever started.
func (s *Session) Close() error {
	if s.injector != nil {
		return s.injector.Close()
	}
	return nil
}

// GetMetrics returns the merged session metrics: the shared collector's
// snapshot, with the lens-reported timestamp layered on top when
// available (spec.md §4.6's get_metrics delegation).
func (s *Session) GetMetrics() metrics.Snapshot {
	snap := s.metrics.Snapshot()
	if s.lensSession != nil {
		if lm, err := s.lensSession.GetMetrics(); err == nil {
			snap.TimestampUS = lm.TimestampUS
		}
	}
	return snap
}

func nowUS() uint64 {
	return uint64(time.Now().UnixMicro())
}
