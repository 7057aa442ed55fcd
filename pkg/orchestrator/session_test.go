package orchestrator

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearlag/nearlag/pkg/config"
	"github.com/nearlag/nearlag/pkg/event"
	"github.com/nearlag/nearlag/pkg/injector"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`{
      "connection": {"remote_host": "desk.local"},
      "application": {"executable": "/usr/bin/xterm"}
    }`))
	require.NoError(t, err)
	return cfg
}

func TestNew_WiresProxyRegistryAndMetrics(t *testing.T) {
	s := New(testConfig(t), nil)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", s.SessionID.String())
	assert.NotNil(t, s.InputProxy())
	assert.NotNil(t, s.SurfaceRegistry())
	assert.NotNil(t, s.Metrics())
}

func TestStop_BeforeStart_IsNoop(t *testing.T) {
	s := New(testConfig(t), nil)
	assert.NoError(t, s.Stop())
}

func TestNew_FallsBackToNopInjectorOnConstructionFailure(t *testing.T) {
	orig := newWaylandInjector
	defer func() { newWaylandInjector = orig }()

	newWaylandInjector = func(logger *slog.Logger) (*injector.WaylandInjector, error) {
		return nil, errors.New("no compositor connection")
	}

	s := New(testConfig(t), nil)
	assert.Equal(t, injector.Nop{}, s.injector)
	assert.NoError(t, s.Close())
}

func TestSurfaceRegistryReconcilesThroughProxy(t *testing.T) {
	s := New(testConfig(t), nil)
	reg := s.SurfaceRegistry()
	proxy := s.InputProxy()

	reg.Register("surface-0")
	id := reg.GenerateFrameID("surface-0")
	require.NotZero(t, id)

	ev := event.Event{Type: event.PointerMotion, Motion: event.Motion{DX: 4, DY: 2}}
	proxy.Process(ev, id, false)
	assert.Equal(t, 1, proxy.PendingCount())

	reg.NotifyFramePresented("surface-0", id, uint64(time.Now().Add(time.Millisecond).UnixMicro()))
	assert.Equal(t, 0, proxy.PendingCount())
}
