package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"SMCSentinel/internal/model"
)

// MetricsRegistry holds all Prometheus metrics for the sentinel.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Pipeline step duration by step and result
	StepDuration *prometheus.HistogramVec

	AnalysesTotal     *prometheus.CounterVec
	TimeframeFailures *prometheus.CounterVec
	BiasConfidence    *prometheus.GaugeVec
	BiasDirection     *prometheus.GaugeVec
	SignalsTotal      *prometheus.CounterVec
}

// NewMetricsRegistry creates a registry with all sentinel metrics registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smc_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"step", "result"},
		),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smc_analyses_total",
				Help: "Completed analyses by symbol and bias direction",
			},
			[]string{"symbol", "direction"},
		),

		TimeframeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smc_timeframe_failures_total",
				Help: "Timeframes that produced no analysis, by failure kind",
			},
			[]string{"timeframe", "kind"},
		),

		BiasConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smc_bias_confidence",
				Help: "Latest bias confidence (0-100) per symbol",
			},
			[]string{"symbol"},
		),

		BiasDirection: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "smc_bias_direction",
				Help: "Latest bias direction per symbol (-1=bearish, 0=neutral, 1=bullish)",
			},
			[]string{"symbol"},
		),

		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smc_signals_total",
				Help: "Signals emitted by source and direction",
			},
			[]string{"source", "direction"},
		),
	}

	m.registry.MustRegister(
		m.StepDuration,
		m.AnalysesTotal,
		m.TimeframeFailures,
		m.BiasConfidence,
		m.BiasDirection,
		m.SignalsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StepTimer tracks execution time for a pipeline step.
type StepTimer struct {
	metrics *MetricsRegistry
	step    string
	start   time.Time
}

// StartStepTimer begins timing a pipeline step.
func (m *MetricsRegistry) StartStepTimer(step string) *StepTimer {
	return &StepTimer{metrics: m, step: step, start: time.Now()}
}

// Stop records the step duration with result "ok" or "error".
func (st *StepTimer) Stop(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	duration := time.Since(st.start)
	st.metrics.StepDuration.WithLabelValues(st.step, result).Observe(duration.Seconds())

	log.Debug().
		Str("step", st.step).
		Str("result", result).
		Dur("duration", duration).
		Msg("pipeline step completed")
}

// ObserveAnalysis records the outcome of one symbol analysis.
func (m *MetricsRegistry) ObserveAnalysis(a *model.Analysis) {
	m.AnalysesTotal.WithLabelValues(a.Symbol, string(a.Bias.Direction)).Inc()
	m.BiasConfidence.WithLabelValues(a.Symbol).Set(a.Bias.Confidence)
	m.BiasDirection.WithLabelValues(a.Symbol).Set(directionValue(a.Bias.Direction))
	for _, f := range a.Failures {
		m.TimeframeFailures.WithLabelValues(string(f.Timeframe), f.Kind).Inc()
	}
	for _, s := range a.Bias.Signals {
		m.SignalsTotal.WithLabelValues(string(s.Source), string(s.Direction)).Inc()
	}
}

func directionValue(d model.Direction) float64 {
	switch d {
	case model.Bullish:
		return 1
	case model.Bearish:
		return -1
	}
	return 0
}

// Serve exposes /metrics on addr until the server fails or is shut down.
func (m *MetricsRegistry) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	return srv
}
