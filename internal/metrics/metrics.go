// Package metrics exports Prometheus counters for line dispatch.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Neverlord/sash/internal/logger"
	"github.com/Neverlord/sash/internal/shell"
	"github.com/Neverlord/sash/pkg/sashtypes"
)

// Metrics holds the dispatch counters of one shell.
type Metrics struct {
	gatherer           prometheus.Gatherer
	commands           *prometheus.CounterVec
	preprocessorErrors *prometheus.CounterVec
}

// New creates the counters and registers them with reg. Handler serves
// gatherer; when it is nil, reg itself is gathered if it can be, otherwise the
// default gatherer. A nil reg creates a private registry used for both.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	if reg == nil {
		private := prometheus.NewRegistry()
		reg, gatherer = private, private
	}
	if gatherer == nil {
		if g, ok := reg.(prometheus.Gatherer); ok {
			gatherer = g
		} else {
			gatherer = prometheus.DefaultGatherer
		}
	}
	m := &Metrics{
		gatherer: gatherer,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sash_commands_total",
				Help: "Total number of processed input lines by mode and result",
			},
			[]string{"mode", "result"},
		),
		preprocessorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sash_preprocessor_errors_total",
				Help: "Total number of lines rejected by a preprocessor",
			},
			[]string{"mode"},
		),
	}
	for _, c := range []prometheus.Collector{m.commands, m.preprocessorErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records one dispatch. It has the signature of a shell observer.
func (m *Metrics) Observe(modeName string, result sashtypes.Result, err error) {
	m.commands.WithLabelValues(modeName, result.String()).Inc()
	var perr *shell.PreprocessError
	if errors.As(err, &perr) {
		m.preprocessorErrors.WithLabelValues(modeName).Inc()
	}
}

// Handler serves the gatherer in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting metrics server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
