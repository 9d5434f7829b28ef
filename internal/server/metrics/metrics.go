// Package metrics exposes Prometheus counters for the conversation engine
// and the review API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/hronboard/internal/common"
)

type Collector struct {
	chatEvents   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector registers the collector's metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		chatEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hronboard_chat_events_total",
			Help: "Chat events handled, by kind, session state and outcome.",
		}, []string{"kind", "state", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hronboard_http_requests_total",
			Help: "Review API requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hronboard_http_request_duration_seconds",
			Help:    "Review API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(c.chatEvents, c.httpRequests, c.httpLatency)
	return c
}

// ObserveEvent counts a handled chat event. Outcome is "ok", "rejected" for
// domain errors shown to the user, or "error".
func (c *Collector) ObserveEvent(kind, state string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case common.IsDomain(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	c.chatEvents.WithLabelValues(kind, state, outcome).Inc()
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
