// Package metrics экспортирует показатели массовых заданий в Prometheus
package metrics

import (
	"net/http"

	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seeder"

// Collector наблюдатель планировщика, который считает задания
type Collector struct {
	jobs             *prometheus.CounterVec
	retries          *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	inFlight         *prometheus.GaugeVec
	validationErrors prometheus.Counter
	runs             *prometheus.CounterVec
}

var _ bulk.Observer = (*Collector)(nil)

// NewCollector регистрирует метрики в reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Finished bulk jobs by action, resource and outcome.",
		}, []string{"action", "resource", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_retries_total",
			Help:      "Retried bulk job attempts.",
		}, []string{"action", "resource"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_attempt_duration_seconds",
			Help:      "Duration of a single bulk job attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"action", "resource"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Bulk jobs currently running.",
		}, []string{"action"}),
		validationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_errors_total",
			Help:      "Validation errors reported for checked documents.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Command runs by command and status.",
		}, []string{"command", "status"}),
	}
}

func (c *Collector) OnJobEvent(ev bulk.Event) {
	action := string(ev.Job.Action)
	resource := ev.Job.Resource
	switch ev.Type {
	case bulk.EventStarted:
		c.inFlight.WithLabelValues(action).Inc()
	case bulk.EventRetrying:
		c.retries.WithLabelValues(action, resource).Inc()
		c.duration.WithLabelValues(action, resource).Observe(ev.Duration.Seconds())
	case bulk.EventCompleted:
		c.inFlight.WithLabelValues(action).Dec()
		c.jobs.WithLabelValues(action, resource, "success").Inc()
		c.duration.WithLabelValues(action, resource).Observe(ev.Duration.Seconds())
	case bulk.EventFailed:
		c.inFlight.WithLabelValues(action).Dec()
		c.jobs.WithLabelValues(action, resource, "failure").Inc()
		c.duration.WithLabelValues(action, resource).Observe(ev.Duration.Seconds())
	}
}

// ObserveValidation учитывает ошибки одной проверки документа
func (c *Collector) ObserveValidation(errorCount int) {
	c.validationErrors.Add(float64(errorCount))
}

// ObserveRun учитывает завершение команды
func (c *Collector) ObserveRun(command string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.runs.WithLabelValues(command, status).Inc()
}

// Handler отдает метрики из gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
