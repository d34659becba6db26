package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry            *prometheus.Registry
	evaluationsTotal    prometheus.Counter
	evaluationsBlocked  prometheus.Counter
	noPolicyMatched     prometheus.Counter
	evaluationDuration  prometheus.Histogram
	activeRules         prometheus.Gauge
	ruleMutations       *prometheus.CounterVec
	approversPerRequest prometheus.Histogram
	logger              *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	collector := &MetricsCollector{
		registry: registry,
		evaluationsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "policy_evaluations_total",
			Help: "Total number of policy evaluations",
		}),
		evaluationsBlocked: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "policy_evaluations_blocked_total",
			Help: "Total number of evaluations that blocked the transaction",
		}),
		noPolicyMatched: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "policy_no_match_total",
			Help: "Total number of approver selections with no matching policy",
		}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "policy_evaluation_duration_seconds",
			Help:    "Time taken to evaluate a context against the rule set",
			Buckets: prometheus.DefBuckets,
		}),
		activeRules: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "policy_active_rules",
			Help: "Number of rules in the active set",
		}),
		ruleMutations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "policy_rule_mutations_total",
			Help: "Total number of rule mutations by operation",
		}, []string{"op"}),
		approversPerRequest: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "policy_required_approvers",
			Help:    "Distribution of required approver counts per decision",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6},
		}),
		logger: logger,
	}

	return collector
}

func (m *MetricsCollector) RecordEvaluation(duration time.Duration, approvers int, blocked bool) {
	m.evaluationsTotal.Inc()
	if blocked {
		m.evaluationsBlocked.Inc()
	}
	m.evaluationDuration.Observe(duration.Seconds())
	m.approversPerRequest.Observe(float64(approvers))
}

func (m *MetricsCollector) RecordNoPolicyMatch() {
	m.noPolicyMatched.Inc()
}

func (m *MetricsCollector) RecordMutation(op string) {
	m.ruleMutations.WithLabelValues(op).Inc()
}

func (m *MetricsCollector) SetActiveRules(count int) {
	m.activeRules.Set(float64(count))
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
