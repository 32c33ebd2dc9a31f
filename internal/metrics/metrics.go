package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// ToolSuccess labels tool invocations that produced a usable result.
	ToolSuccess = "success"
	// ToolFailure labels timeouts, non-zero exits and transport errors.
	ToolFailure = "failure"

	// EscalationManual labels escalations requested by the engineer.
	EscalationManual = "manual"
	// EscalationAuto labels escalations triggered by an unacknowledged call end.
	EscalationAuto = "auto"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall_agent",
			Name:      "diagnostic_runs_total",
			Help:      "Diagnostic runs partitioned by routing action and decision source.",
		},
		[]string{"action", "source"},
	)

	runIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "oncall_agent",
			Name:      "diagnostic_iterations",
			Help:      "DIAGNOSE iterations per run.",
			Buckets:   []float64{0, 1, 2, 3},
		},
	)

	toolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall_agent",
			Name:      "tool_executions_total",
			Help:      "Diagnostic tool executions partitioned by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	toolDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oncall_agent",
			Name:      "tool_duration_seconds",
			Help:      "Diagnostic tool latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"tool"},
	)

	callEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall_agent",
			Name:      "call_events_total",
			Help:      "Inbound telephony events partitioned by event type and whether the call was known.",
		},
		[]string{"event", "known"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall_agent",
			Name:      "escalations_total",
			Help:      "Escalations to backup engineers partitioned by trigger and result.",
		},
		[]string{"trigger", "result"},
	)

	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oncall_agent",
			Name:      "webhook_deliveries_total",
			Help:      "Outgoing notification webhook deliveries partitioned by webhook, event and outcome.",
		},
		[]string{"webhook", "event", "outcome"},
	)
)

// Register attaches oncall-agent collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runIterations,
		toolExecutionsTotal,
		toolDurationSeconds,
		callEventsTotal,
		escalationsTotal,
		webhookDeliveriesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records one finished diagnostic run.
func ObserveRun(action, source string, iterations int) {
	runsTotal.WithLabelValues(action, source).Inc()
	runIterations.Observe(float64(iterations))
}

// ObserveTool records a tool invocation duration and outcome.
func ObserveTool(tool string, success bool, duration time.Duration) {
	outcome := ToolFailure
	if success {
		outcome = ToolSuccess
	}
	toolExecutionsTotal.WithLabelValues(tool, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	toolDurationSeconds.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObserveCallEvent counts an inbound provider event.
func ObserveCallEvent(event string, known bool) {
	label := "false"
	if known {
		label = "true"
	}
	callEventsTotal.WithLabelValues(event, label).Inc()
}

// ObserveEscalation counts an escalation attempt. result is the resulting
// call status or "no_backup".
func ObserveEscalation(trigger, result string) {
	escalationsTotal.WithLabelValues(trigger, result).Inc()
}

// ObserveWebhook counts one outgoing webhook delivery.
func ObserveWebhook(name, event string, success bool) {
	outcome := ToolFailure
	if success {
		outcome = ToolSuccess
	}
	webhookDeliveriesTotal.WithLabelValues(name, event, outcome).Inc()
}
