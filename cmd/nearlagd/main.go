// Command nearlagd runs one predictive remote-desktop proxy session: it
// loads a configuration, starts the selected transport lens, serves a
// metrics endpoint, and shuts everything down cleanly on SIGINT/SIGTERM.
//
// Usage: nearlagd --config session.json [--watch]
//
// Grounded on the server lifecycle in
// _examples/helixml-helix/api/pkg/desktop/desktop.go (HTTP server with a
// context-driven graceful shutdown).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nearlag/nearlag/pkg/config"
	"github.com/nearlag/nearlag/pkg/metrics"
	"github.com/nearlag/nearlag/pkg/orchestrator"
)

func main() {
	configPath := flag.String("config", "session.json", "path to the session configuration file")
	watch := flag.Bool("watch", false, "hot-reload the configuration file on change")
	httpAddr := flag.String("http", ":8765", "address to serve /metrics and /metrics/stream on")
	flag.Parse()

	levelVar := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))

	if err := run(*configPath, *watch, *httpAddr, logger, levelVar); err != nil {
		logger.Error("nearlagd: fatal", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, watch bool, httpAddr string, logger *slog.Logger, levelVar *slog.LevelVar) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	levelVar.Set(parseLevel(cfg.Observability.LogLevel))

	sess := orchestrator.New(cfg, logger)
	defer sess.Close()

	broadcaster := metrics.NewWSBroadcaster(logger)
	sess.Metrics().SetBroadcaster(broadcaster)

	if watch {
		w, err := config.NewWatcher(configPath, logger, func(reloaded *config.Config) {
			logger.Info("nearlagd: configuration file loaded and validated; the running session keeps the configuration it started with")
		})
		if err != nil {
			return fmt.Errorf("start config watcher: %w", err)
		}
		defer w.Close()
	}

	if err := sess.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	logger.Info("nearlagd: session running", "session_id", sess.SessionID, "lens", sess.SelectedLens())

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		snap := sess.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"timestamp":%d,"frames_per_second":%d,"frames_dropped":%d,"frames_total":%d,`+
			`"bandwidth_rx_bps":%d,"bandwidth_tx_bps":%d,`+
			`"input_events_predicted":%d,"input_events_reconciled":%d,"input_events_total":%d}`,
			snap.TimestampUS, snap.FramesPerSecond, snap.FramesDropped, snap.FramesTotal,
			snap.BandwidthRxBps, snap.BandwidthTxBps,
			snap.InputEventsPredicted, snap.InputEventsReconciled, snap.InputEventsTotal)
	})
	mux.HandleFunc("/metrics/stream", broadcaster.ServeHTTP)

	httpServer := &http.Server{Addr: httpAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("nearlagd: metrics server starting", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics http server: %w", err)
		}
	}()

	flushInterval := time.Duration(cfg.Observability.MetricsIntervalMS) * time.Millisecond
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()

	// Rotate the metrics file periodically so a long-running session's log
	// doesn't grow forever; a large multiple of the flush interval keeps
	// rotation rare relative to regular snapshot writes.
	rotateTicker := time.NewTicker(flushInterval * 360)
	defer rotateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("nearlagd: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
			return sess.Stop()

		case err := <-errCh:
			_ = sess.Stop()
			return err

		case <-flushTicker.C:
			sess.Metrics().Flush()
			snap := sess.Metrics().Snapshot()
			logger.Debug("nearlagd: bandwidth",
				"rx", metrics.HumanizeBandwidth(snap.BandwidthRxBps),
				"tx", metrics.HumanizeBandwidth(snap.BandwidthTxBps))

		case <-rotateTicker.C:
			if err := sess.Metrics().RotateAndCompress(); err != nil {
				logger.Warn("nearlagd: metrics file rotation failed", "err", err)
			}
		}
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
