package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements DiagramHooks, CacheHooks and HTTPHooks on top of
// a Prometheus registry. Register it once at startup:
//
//	hooks := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	observability.SetDiagramHooks(hooks)
//	observability.SetCacheHooks(hooks)
//	observability.SetHTTPHooks(hooks)
type PrometheusHooks struct {
	layoutDuration *prometheus.HistogramVec
	renderDuration *prometheus.HistogramVec
	routedLines    prometheus.Histogram
	cacheOps       *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewPrometheusHooks creates and registers the metric collectors.
func NewPrometheusHooks(reg prometheus.Registerer) *PrometheusHooks {
	h := &PrometheusHooks{
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tablemap",
			Name:      "layout_duration_seconds",
			Help:      "Time spent placing diagram entities.",
		}, []string{"layout", "status"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tablemap",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering diagram output.",
		}, []string{"format", "status"}),
		routedLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tablemap",
			Name:      "routed_lines",
			Help:      "Relation lines routed per recalculation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tablemap",
			Name:      "cache_operations_total",
			Help:      "Cache operations by key type and outcome.",
		}, []string{"key_type", "op"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tablemap",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request handling time.",
		}, []string{"method", "path", "code"}),
	}
	reg.MustRegister(h.layoutDuration, h.renderDuration, h.routedLines, h.cacheOps, h.httpDuration)
	return h
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PrometheusHooks) OnIntrospectStart(context.Context, string) {}
func (h *PrometheusHooks) OnIntrospectComplete(context.Context, string, int, time.Duration, error) {
}

func (h *PrometheusHooks) OnLayoutStart(context.Context, string, int) {}
func (h *PrometheusHooks) OnLayoutComplete(_ context.Context, layout string, d time.Duration, err error) {
	h.layoutDuration.WithLabelValues(layout, status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnRouteComplete(_ context.Context, lines int, _ time.Duration) {
	h.routedLines.Observe(float64(lines))
}

func (h *PrometheusHooks) OnRenderStart(context.Context, string) {}
func (h *PrometheusHooks) OnRenderComplete(_ context.Context, format string, d time.Duration, err error) {
	h.renderDuration.WithLabelValues(format, status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
}

func (h *PrometheusHooks) OnCacheEvict(_ context.Context, keyType string, count int) {
	h.cacheOps.WithLabelValues(keyType, "evict").Add(float64(count))
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string) {}
func (h *PrometheusHooks) OnResponse(_ context.Context, method, path string, code int, d time.Duration) {
	h.httpDuration.WithLabelValues(method, path, httpCode(code)).Observe(d.Seconds())
}

func httpCode(code int) string {
	switch {
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

var (
	_ DiagramHooks = (*PrometheusHooks)(nil)
	_ CacheHooks   = (*PrometheusHooks)(nil)
	_ HTTPHooks    = (*PrometheusHooks)(nil)
)
