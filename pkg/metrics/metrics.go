package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aurastack/aura/internal/common/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry     *prometheus.Registry
	namespace    string
	httpReqCnt   *prometheus.CounterVec
	httpDur      *prometheus.HistogramVec
	httpInfl     *prometheus.GaugeVec
	ctxOpCnt     *prometheus.CounterVec
	toolExecCnt  *prometheus.CounterVec
	toolExecDur  *prometheus.HistogramVec
	queryExecCnt *prometheus.CounterVec
	queryExecDur *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "aura"
	}
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	ctxOpCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "context_operations_total"}, []string{"operation", "status"})
	r.MustRegister(ctxOpCnt)

	toolExecCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "tool_execution_total"}, []string{"tool_name", "status"})
	toolExecDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "tool_execution_duration_seconds", Buckets: cfg.Buckets}, []string{"tool_name", "status"})
	r.MustRegister(toolExecCnt, toolExecDur)

	queryExecCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "query_execution_total"}, []string{"db_type", "status"})
	queryExecDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "query_execution_duration_seconds", Buckets: cfg.Buckets}, []string{"db_type", "status"})
	r.MustRegister(queryExecCnt, queryExecDur)

	return &Metrics{
		registry:     r,
		namespace:    ns,
		httpReqCnt:   httpReqCnt,
		httpDur:      httpDur,
		httpInfl:     httpInfl,
		ctxOpCnt:     ctxOpCnt,
		toolExecCnt:  toolExecCnt,
		toolExecDur:  toolExecDur,
		queryExecCnt: queryExecCnt,
		queryExecDur: queryExecDur,
	}
}

func (m *Metrics) ContextOp(operation, status string) {
	m.ctxOpCnt.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) ToolExecDone(toolName string, since time.Time, status string) {
	m.toolExecCnt.WithLabelValues(toolName, status).Inc()
	m.toolExecDur.WithLabelValues(toolName, status).Observe(time.Since(since).Seconds())
}

func (m *Metrics) QueryExecDone(dbType string, since time.Time, status string) {
	m.queryExecCnt.WithLabelValues(dbType, status).Inc()
	m.queryExecDur.WithLabelValues(dbType, status).Observe(time.Since(since).Seconds())
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
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
