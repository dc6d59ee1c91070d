package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics коллекторы сервиса.
type Metrics struct {
	PublishRequests *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
	RowsProcessed   *prometheus.CounterVec
	CreditedAmount  prometheus.Counter
}

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeError      = "error"

	RowCredited = "credited"
	RowRecorded = "recorded"
	RowFailed   = "failed"
)

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry создаёт и регистрирует коллекторы один раз на процесс.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			PublishRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_requests_total",
				Help:      "Campaign publish requests by outcome.",
			}, []string{"type", "outcome"}),
			PublishDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Time spent publishing a campaign and ingesting its file.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"type"}),
			RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "csv_rows_processed_total",
				Help:      "Uploaded CSV rows by result.",
			}, []string{"result"}),
			CreditedAmount: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credited_amount_total",
				Help:      "Sum of amounts credited to wallets.",
			}),
		}

		prometheus.MustRegister(
			metricsInstance.PublishRequests,
			metricsInstance.PublishDuration,
			metricsInstance.RowsProcessed,
			metricsInstance.CreditedAmount,
		)
	})
	return metricsInstance
}

func Handler() http.Handler {
	return promhttp.Handler()
}
