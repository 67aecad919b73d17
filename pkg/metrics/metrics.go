package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/102326/PyLab/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	sessionsActive   prometheus.Gauge
	connectsTotal    prometheus.Counter
	disconnectsTotal *prometheus.CounterVec
	subscribeFails   prometheus.Counter
	relayedTotal     prometheus.Counter
	publishedTotal   *prometheus.CounterVec
	directTotal      *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry:   r,
		httpReqCnt: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"}),
		httpDur:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"}),
		httpInfl:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"}),

		sessionsActive:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "sessions_active"}),
		connectsTotal:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "session_connects_total"}),
		disconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "session_disconnects_total"}, []string{"reason"}),
		subscribeFails:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "subscribe_failures_total"}),
		relayedTotal:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "relayed_messages_total"}),
		publishedTotal:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "published_messages_total"}, []string{"status"}),
		directTotal:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "direct_sends_total"}, []string{"delivered"}),
	}
	r.MustRegister(m.httpReqCnt, m.httpDur, m.httpInfl)
	r.MustRegister(m.sessionsActive, m.connectsTotal, m.disconnectsTotal, m.subscribeFails,
		m.relayedTotal, m.publishedTotal, m.directTotal)
	return m
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.connectsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed(reason string) {
	if m == nil {
		return
	}
	m.disconnectsTotal.WithLabelValues(reason).Inc()
	m.sessionsActive.Dec()
}

func (m *Metrics) SubscribeFailed() {
	if m == nil {
		return
	}
	m.subscribeFails.Inc()
}

func (m *Metrics) Relayed() {
	if m == nil {
		return
	}
	m.relayedTotal.Inc()
}

func (m *Metrics) Published(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.publishedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) DirectSend(delivered bool) {
	if m == nil {
		return
	}
	m.directTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
