package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nudger/internal/eventbus"
	"nudger/internal/reminder"
	"nudger/internal/task/engine"
)

const namespace = "nudger"

// Metrics holds the process metrics. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	reg *prometheus.Registry

	Ticks         *prometheus.CounterVec
	TickDuration  prometheus.Histogram
	QueueDelay    prometheus.Histogram
	Reminders     *prometheus.CounterVec
	Outcomes      *prometheus.CounterVec
	EvalDuration  prometheus.Histogram
	JournalErrors prometheus.Counter
	ConfigReloads prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Scheduled evaluation ticks by result",
		}, []string{"result"}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Time spent running one tick",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QueueDelay: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tick_queue_delay_seconds",
			Help:      "Time a tick waited in the task queue",
			Buckets:   []float64{.001, .01, .1, 1, 5, 15, 60},
		}),
		Reminders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "appended_total",
			Help:      "Reminders appended by entity type and urgency",
		}, []string{"entity_type", "urgency"}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "candidate_outcomes_total",
			Help:      "Per-candidate evaluation outcomes",
		}, []string{"outcome"}),
		EvalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a full evaluation pass",
			Buckets:   prometheus.DefBuckets,
		}),
		JournalErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "journal_errors_total",
			Help:      "Reminders that could not be written to the journal",
		}),
		ConfigReloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Applied configuration reloads",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ReminderAppended implements reminder.Observer.
func (m *Metrics) ReminderAppended(_ context.Context, d reminder.Decision) {
	m.Reminders.WithLabelValues(string(d.Event.EntityType), string(d.Event.UrgencyStatus)).Inc()
}

func (m *Metrics) ObserveReport(rep reminder.Report) {
	m.Outcomes.WithLabelValues(string(reminder.OutcomeAppended)).Add(float64(rep.Appended))
	m.Outcomes.WithLabelValues(string(reminder.OutcomeThrottled)).Add(float64(rep.Throttled))
	m.Outcomes.WithLabelValues(string(reminder.OutcomeIdle)).Add(float64(rep.Idle))
	m.Outcomes.WithLabelValues(string(reminder.OutcomeFailed)).Add(float64(rep.Failed))
	m.Outcomes.WithLabelValues(string(reminder.OutcomeSkipped)).Add(float64(rep.Skipped))
	m.EvalDuration.Observe(rep.Took.Seconds())
}

// Handle updates metrics from one bus event. Unknown types are ignored.
func (m *Metrics) Handle(ev eventbus.Event) {
	switch ev.Type {
	case eventbus.TickStarted:
		if te, ok := ev.Data.(engine.TaskEvent); ok {
			m.QueueDelay.Observe(te.QueueDelay.Seconds())
		}
	case eventbus.TickCompleted, eventbus.TickFailed:
		result := "completed"
		if ev.Type == eventbus.TickFailed {
			result = "failed"
		}
		m.Ticks.WithLabelValues(result).Inc()
		if te, ok := ev.Data.(engine.TaskEvent); ok {
			m.TickDuration.Observe(te.Duration.Seconds())
		}
	case eventbus.TickDropped:
		m.Ticks.WithLabelValues("dropped").Inc()
	case eventbus.ConfigReloaded:
		m.ConfigReloads.Inc()
	}
}

// Consume feeds bus events into Handle until ctx is done.
func (m *Metrics) Consume(ctx context.Context, bus eventbus.Bus) error {
	if bus == nil {
		return errors.New("metrics: nil bus")
	}
	ch, unsub := bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			m.Handle(ev)
		}
	}
}
