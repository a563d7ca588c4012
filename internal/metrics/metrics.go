package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records request, cache and realtime counters. A noop implementation
// is returned when metrics are disabled so call sites never branch.
type Metrics interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, d time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncEventsPublished(eventType string)
	SetWSClients(n int)
}

type provider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	eventsPublished *prometheus.CounterVec
	wsClients       prometheus.Gauge
}

// New registers the collectors on the default registry.
func New(enabled bool) Metrics {
	if !enabled {
		return &noop{}
	}

	return &provider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unsaid_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unsaid_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unsaid_cache_hits_total",
			Help: "Total number of response cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unsaid_cache_misses_total",
			Help: "Total number of response cache misses",
		}),

		eventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unsaid_events_published_total",
			Help: "Realtime events pushed to the websocket hub",
		}, []string{"type"}),

		wsClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "unsaid_ws_clients",
			Help: "Currently connected websocket clients",
		}),
	}
}

func (p *provider) IncRequestsTotal(route string, status int) {
	p.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (p *provider) ObserveRequestDuration(route string, d time.Duration) {
	p.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (p *provider) IncCacheHits()   { p.cacheHits.Inc() }
func (p *provider) IncCacheMisses() { p.cacheMisses.Inc() }

func (p *provider) IncEventsPublished(eventType string) {
	p.eventsPublished.WithLabelValues(eventType).Inc()
}

func (p *provider) SetWSClients(n int) { p.wsClients.Set(float64(n)) }

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Middleware records per-route counters and latency. Uses the route template
// (FullPath) rather than the raw URL so IDs don't explode label cardinality.
func Middleware(m Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.IncRequestsTotal(route, c.Writer.Status())
		m.ObserveRequestDuration(route, time.Since(start))
	}
}

type noop struct{}

func (*noop) IncRequestsTotal(_ string, _ int)                 {}
func (*noop) ObserveRequestDuration(_ string, _ time.Duration) {}
func (*noop) IncCacheHits()                                    {}
func (*noop) IncCacheMisses()                                  {}
func (*noop) IncEventsPublished(_ string)                      {}
func (*noop) SetWSClients(_ int)                               {}
