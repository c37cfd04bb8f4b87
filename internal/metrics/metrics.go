// Package metrics 定义语音合成相关的 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "speechengine"

// Metrics 汇总出站请求与合成操作的指标。
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	synthesis    *prometheus.CounterVec
}

// New 创建指标并注册到 reg。reg 为 nil 时不注册（仅内存计数）。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of outbound provider HTTP requests",
			},
			[]string{"provider", "method", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of outbound provider HTTP requests in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "method"},
		),
		synthesis: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesis_total",
				Help:      "Total number of speak/save operations",
			},
			[]string{"provider", "op", "status"}, // status: success, error
		),
	}
	if reg != nil {
		reg.MustRegister(m.httpRequests, m.httpDuration, m.synthesis)
	}
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回注册在 prometheus.DefaultRegisterer 上的全局指标，只注册一次。
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// ObserveRequest 记录一次出站请求。code 为 0 表示请求未拿到响应。
func (m *Metrics) ObserveRequest(provider, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	codeLabel := "error"
	if code > 0 {
		codeLabel = strconv.Itoa(code)
	}
	m.httpRequests.WithLabelValues(provider, method, codeLabel).Inc()
	m.httpDuration.WithLabelValues(provider, method).Observe(elapsed.Seconds())
}

// ObserveSynthesis 记录一次 speak/save 的结果。
func (m *Metrics) ObserveSynthesis(provider, op string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.synthesis.WithLabelValues(provider, op, status).Inc()
}

// Handler 返回暴露 gatherer 指标的 HTTP handler。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
