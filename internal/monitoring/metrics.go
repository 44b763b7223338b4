package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "secrethobby"

// Metrics 监控指标。所有记录方法对 nil 接收者安全，未启用监控时可直接传 nil。
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// 身份指标
	IdentitiesRegistered prometheus.Counter
	AuthAttempts         *prometheus.CounterVec // op: signup|signin, result: ok|<error kind>
	SessionsEnded        prometheus.Counter

	// 发布与协作请求指标
	ListingsCreated    prometheus.Counter
	RequestsSubmitted  prometheus.Counter
	RequestTransitions *prometheus.CounterVec
	InboxFetchDuration prometheus.Histogram

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewMetrics 在指定注册表上创建监控指标，reg 为 nil 时使用默认注册表
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "endpoint"},
		),

		IdentitiesRegistered: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "identities_registered_total",
				Help:      "Total number of aliases registered",
			},
		),

		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Sign-up and sign-in attempts by outcome",
			},
			[]string{"op", "result"},
		),

		SessionsEnded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Total number of sign-outs",
			},
		),

		ListingsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listings_created_total",
				Help:      "Total number of hobby listings created",
			},
		),

		RequestsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaboration_requests_submitted_total",
				Help:      "Total number of collaboration requests submitted",
			},
		),

		RequestTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaboration_request_transitions_total",
				Help:      "Collaboration request status transitions",
			},
			[]string{"status"},
		),

		InboxFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inbox_fetch_duration_seconds",
				Help:      "Time spent aggregating an inbox from both query paths",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_total",
				Help:      "Total number of panics",
			},
		),

		gatherer: gatherer,
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration, responseSize int64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

// RecordIdentityRegistered 记录别名注册
func (m *Metrics) RecordIdentityRegistered() {
	if m == nil {
		return
	}
	m.IdentitiesRegistered.Inc()
}

// RecordAuthAttempt 记录注册/登录结果
func (m *Metrics) RecordAuthAttempt(op, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(op, result).Inc()
}

// RecordSessionEnded 记录登出
func (m *Metrics) RecordSessionEnded() {
	if m == nil {
		return
	}
	m.SessionsEnded.Inc()
}

// RecordListingCreated 记录发布创建
func (m *Metrics) RecordListingCreated() {
	if m == nil {
		return
	}
	m.ListingsCreated.Inc()
}

// RecordRequestSubmitted 记录协作请求提交
func (m *Metrics) RecordRequestSubmitted() {
	if m == nil {
		return
	}
	m.RequestsSubmitted.Inc()
}

// RecordRequestTransition 记录协作请求状态变更
func (m *Metrics) RecordRequestTransition(status string) {
	if m == nil {
		return
	}
	m.RequestTransitions.WithLabelValues(status).Inc()
}

// RecordInboxFetch 记录收件箱聚合耗时
func (m *Metrics) RecordInboxFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.InboxFetchDuration.Observe(duration.Seconds())
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
