package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ptab/wit/pkg/domain"
)

// Namespace prefixes every metric name.
const Namespace = "wit"

// Metrics collects conversation metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	exchanges        *prometheus.CounterVec
	exchangeDuration prometheus.Histogram
	actions          *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
	callbackTimeouts *prometheus.CounterVec
	halts            *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses the default Prometheus registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if reg != nil {
		registerer, gatherer = reg, reg
	}

	m := &Metrics{
		gatherer: gatherer,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "exchanges_total",
			Help:      "Round trips to the converse endpoint, by returned instruction type.",
		}, []string{"kind"}),
		exchangeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "exchange_duration_seconds",
			Help:      "Latency of converse round trips.",
			Buckets:   prometheus.DefBuckets,
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "actions_total",
			Help:      "Completed action handler invocations.",
		}, []string{"action", "status"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "action_duration_seconds",
			Help:      "Time from handler invocation to completion.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		callbackTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "callback_timeouts_total",
			Help:      "Handlers that did not complete within the callback timeout.",
		}, []string{"action"}),
		halts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "turns_total",
			Help:      "Finished conversation turns, by halt reason.",
		}, []string{"reason"}),
	}

	registerer.MustRegister(
		m.exchanges,
		m.exchangeDuration,
		m.actions,
		m.actionDuration,
		m.callbackTimeouts,
		m.halts,
	)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExchange: func(_ context.Context, e *domain.ExchangeEvent) {
			kind := e.Kind
			if e.Err != nil {
				kind = "transport_error"
			}
			m.exchanges.WithLabelValues(kind).Inc()
			m.exchangeDuration.Observe(e.Duration.Seconds())
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			status := "ok"
			if e.IsError {
				status = "error"
			}
			m.actions.WithLabelValues(e.Action, status).Inc()
			m.actionDuration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnCallbackTimeout: func(_ context.Context, e *domain.ActionEvent) {
			m.callbackTimeouts.WithLabelValues(e.Action).Inc()
		},
		OnHalt: func(_ context.Context, e *domain.HaltEvent) {
			m.halts.WithLabelValues(string(e.Reason)).Inc()
		},
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
