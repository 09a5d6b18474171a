package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 社交互动指标
	toggleOutcomes  *prometheus.CounterVec
	followOutcomes  *prometheus.CounterVec
	upgradesTotal   *prometheus.CounterVec
	chatMessages    prometheus.Counter
	activityAppends *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 实时连接
	wsConnections prometheus.Gauge
}

// NewMetricsCollector 在给定 registerer 上创建指标收集器
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		toggleOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reaction_toggles_total",
				Help: "Reaction toggles by subject and outcome",
			},
			[]string{"subject", "outcome"},
		),

		followOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follow_operations_total",
				Help: "Follow graph mutations by outcome",
			},
			[]string{"outcome"},
		),

		upgradesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tier_upgrades_total",
				Help: "Completed tier upgrades by target tier",
			},
			[]string{"tier"},
		),

		chatMessages: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_messages_total",
				Help: "Persisted chat messages",
			},
		),

		activityAppends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_appends_total",
				Help: "Activity log appends by result",
			},
			[]string{"result"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_prefix"},
		),

		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_prefix"},
		),

		wsConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_ws_connections",
				Help: "Open chat websocket connections",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordToggle 记录点赞切换结果 (created/removed/updated)
func (m *MetricsCollector) RecordToggle(subject, outcome string) {
	m.toggleOutcomes.WithLabelValues(subject, outcome).Inc()
}

func (m *MetricsCollector) RecordFollow(outcome string) {
	m.followOutcomes.WithLabelValues(outcome).Inc()
}

func (m *MetricsCollector) RecordUpgrade(tier string) {
	m.upgradesTotal.WithLabelValues(tier).Inc()
}

func (m *MetricsCollector) RecordChatMessage() {
	m.chatMessages.Inc()
}

// RecordActivity 记录活动日志写入结果 (ok/retry/dropped)
func (m *MetricsCollector) RecordActivity(result string) {
	m.activityAppends.WithLabelValues(result).Inc()
}

func (m *MetricsCollector) RecordCache(keyPrefix string, hit bool) {
	if hit {
		m.cacheHitsTotal.WithLabelValues(keyPrefix).Inc()
		return
	}
	m.cacheMissesTotal.WithLabelValues(keyPrefix).Inc()
}

// WSConnected 连接建立时 +1，返回的函数在断开时调用
func (m *MetricsCollector) WSConnected() func() {
	m.wsConnections.Inc()
	return m.wsConnections.Dec
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器 (注册到默认 registry)
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = NewMetricsCollector(prometheus.DefaultRegisterer)
	})
	return globalCollector
}
