// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/toolflow/agent"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	namespace string

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// Agent 指标
	agentRequestsTotal   *prometheus.CounterVec
	agentRequestDuration *prometheus.HistogramVec
	agentErrorsTotal     *prometheus.CounterVec
	toolInvocationsTotal *prometheus.CounterVec

	// 日志存储指标
	journalWritesTotal   *prometheus.CounterVec
	journalWriteDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// Agent 指标
	c.agentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_requests_total",
			Help:      "Total number of processed agent requests",
		},
		[]string{"agent", "strategy", "type"},
	)

	c.agentRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_request_duration_seconds",
			Help:      "Agent request processing duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"agent", "strategy"},
	)

	c.agentErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_errors_total",
			Help:      "Total number of error envelopes by error code",
		},
		[]string{"agent", "code"},
	)

	c.toolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"agent", "tool", "status"}, // status: success, error
	)

	// 日志存储指标
	c.journalWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_writes_total",
			Help:      "Total number of journal writes",
		},
		[]string{"status"},
	)

	c.journalWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "journal_write_duration_seconds",
			Help:      "Journal write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🎭 Agent 指标记录
// =============================================================================

// ObserveEnvelope implements agent.Observer.
func (c *Collector) ObserveEnvelope(_ context.Context, ev agent.Event) {
	strategy := string(ev.Strategy)
	if strategy == "" {
		strategy = "none"
	}

	c.agentRequestsTotal.WithLabelValues(ev.Agent, strategy, ev.Envelope.Type).Inc()
	c.agentRequestDuration.WithLabelValues(ev.Agent, strategy).Observe(ev.Duration.Seconds())

	if ev.ErrorCode != "" {
		c.agentErrorsTotal.WithLabelValues(ev.Agent, string(ev.ErrorCode)).Inc()
	}
	if ev.ToolID != "" {
		status := "success"
		if ev.Envelope.IsError() {
			status = "error"
		}
		c.toolInvocationsTotal.WithLabelValues(ev.Agent, ev.ToolID, status).Inc()
	}
}

// =============================================================================
// 💾 缓存指标
// =============================================================================

// RegisterCacheStats exposes hit/miss counters read from stats on every
// scrape. It may be called once per cacheType.
func (c *Collector) RegisterCacheStats(cacheType string, stats func() (hits, misses uint64)) {
	labels := prometheus.Labels{"cache_type": cacheType}
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        "cache_hits_total",
		Help:        "Total number of cache hits",
		ConstLabels: labels,
	}, func() float64 {
		hits, _ := stats()
		return float64(hits)
	})
	promauto.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   c.namespace,
		Name:        "cache_misses_total",
		Help:        "Total number of cache misses",
		ConstLabels: labels,
	}, func() float64 {
		_, misses := stats()
		return float64(misses)
	})
}

// =============================================================================
// 🗄️ 日志存储指标记录
// =============================================================================

// RecordJournalWrite 记录一次信封写入
func (c *Collector) RecordJournalWrite(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.journalWritesTotal.WithLabelValues(status).Inc()
	c.journalWriteDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
