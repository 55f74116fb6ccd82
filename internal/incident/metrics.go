package incident

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the incident workflow.
type Metrics struct {
	TurnsTotal          *prometheus.CounterVec
	TurnDuration        *prometheus.HistogramVec
	TransitionsTotal    *prometheus.CounterVec
	ParseFallbacksTotal *prometheus.CounterVec
	GatewayErrorsTotal  *prometheus.CounterVec
	DiagnosesTotal      *prometheus.CounterVec
	DispatchTotal       *prometheus.CounterVec
	LLMCallsTotal       prometheus.Counter
	LLMTokensIn         prometheus.Counter
	LLMTokensOut        prometheus.Counter
	LLMDuration         prometheus.Histogram
}

// NewMetrics registers and returns incident metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_turns_total",
			Help: "Total processed turns by the stage they started in.",
		}, []string{"stage"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medic_turn_duration_seconds",
			Help:    "Duration of turn processing in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}, []string{"stage"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_stage_transitions_total",
			Help: "Total stage transitions by edge.",
		}, []string{"from", "to"}),
		ParseFallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_parse_fallbacks_total",
			Help: "Total model responses substituted with the fixed fallback.",
		}, []string{"kind"}),
		GatewayErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_gateway_errors_total",
			Help: "Total model gateway failures by stage.",
		}, []string{"stage"}),
		DiagnosesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_diagnoses_total",
			Help: "Total diagnoses produced by severity.",
		}, []string{"severity"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medic_dispatch_total",
			Help: "Total side-effect dispatch attempts by sink and status.",
		}, []string{"sink", "status"}),
		LLMCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medic_llm_calls_total",
			Help: "Total LLM provider calls.",
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medic_llm_tokens_input_total",
			Help: "Total LLM input tokens consumed.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "medic_llm_tokens_output_total",
			Help: "Total LLM output tokens consumed.",
		}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "medic_llm_call_duration_seconds",
			Help:    "Duration of individual LLM calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.TurnDuration,
		m.TransitionsTotal,
		m.ParseFallbacksTotal,
		m.GatewayErrorsTotal,
		m.DiagnosesTotal,
		m.DispatchTotal,
		m.LLMCallsTotal,
		m.LLMTokensIn,
		m.LLMTokensOut,
		m.LLMDuration,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(inputTokens, outputTokens int, duration float64) {
			m.LLMCallsTotal.Inc()
			m.LLMTokensIn.Add(float64(inputTokens))
			m.LLMTokensOut.Add(float64(outputTokens))
			m.LLMDuration.Observe(duration)
		},
		OnParseFallback: func(kind, reason string) {
			m.ParseFallbacksTotal.WithLabelValues(kind).Inc()
		},
		OnGatewayError: func(stage Stage) {
			m.GatewayErrorsTotal.WithLabelValues(string(stage)).Inc()
		},
		OnTransition: func(from, to Stage) {
			m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
		},
		OnDiagnosis: func(severity Severity) {
			m.DiagnosesTotal.WithLabelValues(string(severity)).Inc()
		},
		OnTurn: func(stage Stage, duration float64) {
			m.TurnsTotal.WithLabelValues(string(stage)).Inc()
			m.TurnDuration.WithLabelValues(string(stage)).Observe(duration)
		},
	}
}

// DispatchHooks returns a DispatchHooks that increments the dispatch counter.
func (m *Metrics) DispatchHooks() DispatchHooks {
	return DispatchHooks{
		OnSink: func(sink string, ok bool) {
			status := "success"
			if !ok {
				status = "error"
			}
			m.DispatchTotal.WithLabelValues(sink, status).Inc()
		},
	}
}
