package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors fed by engine hooks.
type Metrics struct {
	Runs       *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Inflight   prometheus.Gauge
	Propagated *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_node_runs_total",
				Help: "Node runs by kind and outcome (success, error, dropped).",
			},
			[]string{"kind", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_node_run_duration_seconds",
				Help:    "Duration of node external calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		Inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "playground_node_runs_inflight",
			Help: "External calls currently in flight.",
		}),
		Propagated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_values_propagated_total",
				Help: "Values written into downstream nodes, by source node.",
			},
			[]string{"node_id"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.Duration, m.Inflight, m.Propagated)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	finish := func(outcome string) func(context.Context, *domain.RunEvent) {
		return func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(e.Kind, outcome).Inc()
			if e.Dispatched {
				m.Inflight.Dec()
				m.Duration.WithLabelValues(e.Kind).Observe(e.Duration.Seconds())
			}
		}
	}

	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, e *domain.RunEvent) {
			m.Inflight.Inc()
		},
		OnRunSuccess: finish("success"),
		OnRunError:   finish("error"),
		OnRunDropped: finish("dropped"),
		OnPropagate: func(_ context.Context, e *domain.PropagateEvent) {
			m.Propagated.WithLabelValues(e.NodeID).Add(float64(len(e.Targets)))
		},
	}
}

// LoggingHooks returns lifecycle hooks that write every event to logger.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	run := func(msg string, level slog.Level) func(context.Context, *domain.RunEvent) {
		return func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{"node_id", e.NodeID, "kind", e.Kind, "token", e.Token}
			if e.Duration > 0 {
				attrs = append(attrs, "duration", e.Duration)
			}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.Log(ctx, level, msg, attrs...)
		}
	}

	return domain.LifecycleHooks{
		OnRunStart:   run("run_start", slog.LevelInfo),
		OnRunSuccess: run("run_success", slog.LevelInfo),
		OnRunError:   run("run_error", slog.LevelWarn),
		OnRunDropped: run("run_dropped", slog.LevelDebug),
		OnPropagate: func(ctx context.Context, e *domain.PropagateEvent) {
			logger.InfoContext(ctx, "propagate", "node_id", e.NodeID, "targets", e.Targets)
		},
	}
}
