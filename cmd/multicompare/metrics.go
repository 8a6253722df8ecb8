package main

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multicompare/internal/config"
	"multicompare/internal/core"
)

// metricsSetup is the recorder for a run plus an optional /metrics server.
type metricsSetup struct {
	recorder core.MetricsRecorder
	handler  http.Handler
	server   *http.Server
	addr     string
}

func newMetrics(cfg config.Metrics) (*metricsSetup, error) {
	m := &metricsSetup{}
	switch cfg.Driver {
	case "prometheus":
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return nil, err
		}
		m.recorder = rec
		m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	default:
		m.recorder = core.NewExpvarMetricsRecorder("")
		m.handler = expvar.Handler()
	}
	return m, nil
}

// serve starts the metrics endpoint on addr. An empty addr is a no-op.
func (m *metricsSetup) serve(addr string, logger core.Logger) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.handler)
	m.addr = ln.Addr().String()
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", m.addr)
	return nil
}

func (m *metricsSetup) shutdown() {
	if m.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = m.server.Shutdown(ctx)
}
