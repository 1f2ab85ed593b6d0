package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "forkbridge"

var (
	BrowserLaunches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_launches_total",
		Help:      "Number of times the shared browser process was started.",
	})
	OpenPages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "browser_pages_open",
		Help:      "Pages currently held by widget operations.",
	})
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "widget_operations_total",
		Help:      "Widget operations by kind and outcome.",
	}, []string{"operation", "outcome"})
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "widget_operation_duration_seconds",
		Help:      "Wall time of widget operations.",
		Buckets:   []float64{1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90},
	}, []string{"operation"})
	Webhooks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Inbound assistant webhook events by type.",
	}, []string{"event"})
	SelectorReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selector_reloads_total",
		Help:      "Selector catalog reloads from disk by result.",
	}, []string{"result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
