package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "urlshorten"

const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type Metrics struct {
	TokenCollisions        prometheus.Counter
	CacheRequests          *prometheus.CounterVec
	ClickIncrementFailures prometheus.Counter
	LinksCreated           prometheus.Counter
	LinksDeleted           prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the service counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		TokenCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_collisions_total",
			Help:      "Candidate tokens rejected by the store as duplicates.",
		}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_cache_requests_total",
			Help:      "Redirect cache lookups by result.",
		}, []string{"result"}),
		ClickIncrementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_increment_failures_total",
			Help:      "Click count increments that failed after a successful redirect.",
		}),
		LinksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created.",
		}),
		LinksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Links deleted by their owner.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.TokenCollisions,
		m.CacheRequests,
		m.ClickIncrementFailures,
		m.LinksCreated,
		m.LinksDeleted,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
