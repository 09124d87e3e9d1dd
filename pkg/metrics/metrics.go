// Package metrics 提供基于Prometheus的指标收集
//
// # 核心概念
//
// **1. Counter（计数器）**：只增不减的累计值，如HTTP请求总数、图书创建次数
//
// **2. Gauge（仪表盘）**：可增可减的瞬时值，如正在处理的请求数
//
// **3. Histogram（直方图）**：观测值的分布，如请求耗时（可计算P50、P90、P99）
//
// # 本服务的指标
//
//	http_requests_total{method,path,status}          HTTP请求总数
//	http_request_duration_seconds{method,path}       HTTP请求耗时
//	http_requests_in_progress                        正在处理的请求数
//	book_operations_total{operation,result}          图书操作次数（result: success/not_found/conflict/invalid/error）
//	book_operation_duration_seconds{operation}       图书操作耗时
//	book_cache_requests_total{result}                详情缓存访问（hit/miss/error）
//	messages_published_total{exchange,routing_key,result} 领域事件发布次数
//
// # 使用示例
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	b, err := repo.FindByID(ctx, id)
//	metrics.ObserveBookOperation("get", err, time.Since(start))
//
// # 最佳实践
//
// 避免高基数标签：path使用路由模板（/api/v1/books/:id）而不是实际URL，
// 不要把图书ID、书名作为标签
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// 操作结果标签
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// 缓存访问结果标签
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// initOnce 防止重复注册（promauto重复注册会panic）
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method（GET/POST）、path（路由模板）、status（200/404）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	// 桶设置：1ms、10ms、100ms、500ms、1s、5s、10s
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数（Gauge）
	HTTPRequestsInProgress prometheus.Gauge

	// 业务指标

	// BookOperationsTotal 图书操作次数（Counter）
	// 标签：operation（create/get/list/update/delete/search）、result
	BookOperationsTotal *prometheus.CounterVec

	// BookOperationDuration 图书操作耗时（Histogram）
	BookOperationDuration *prometheus.HistogramVec

	// BookCacheRequests 图书详情缓存访问次数（Counter）
	// 标签：result（hit/miss/error）
	BookCacheRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数（Counter）
	// 标签：exchange、routing_key、result（success/error）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
//
// 可以多次调用（测试和main都会调用），只有第一次生效
func InitMetrics() {
	initOnce.Do(func() {
		HTTPRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		)

		HTTPRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP请求耗时（秒）",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"method", "path"},
		)

		HTTPRequestsInProgress = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_progress",
				Help: "正在处理的HTTP请求数",
			},
		)

		BookOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_operations_total",
				Help: "图书操作次数",
			},
			[]string{"operation", "result"},
		)

		BookOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "book_operation_duration_seconds",
				Help: "图书操作耗时（秒）",
				// 单表操作，桶比HTTP更细
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		)

		BookCacheRequests = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "book_cache_requests_total",
				Help: "图书详情缓存访问次数",
			},
			[]string{"result"},
		)

		MessagesPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "messages_published_total",
				Help: "消息发布总数",
			},
			[]string{"exchange", "routing_key", "result"},
		)
	})
}

// ObserveBookOperation 记录一次图书操作的结果和耗时
func ObserveBookOperation(operation string, err error, duration time.Duration) {
	InitMetrics()
	BookOperationsTotal.WithLabelValues(operation, ResultOf(err)).Inc()
	BookOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveCache 记录一次缓存访问
func ObserveCache(result string) {
	InitMetrics()
	BookCacheRequests.WithLabelValues(result).Inc()
}

// ObservePublish 记录一次消息发布
func ObservePublish(exchange, routingKey string, err error) {
	InitMetrics()
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	MessagesPublishedTotal.WithLabelValues(exchange, routingKey, result).Inc()
}

// ResultOf 把错误归类为结果标签
// 按错误码的HTTP状态分类，标签取值有限
func ResultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return ResultError
	}

	switch appErr.HTTPStatus() {
	case 404:
		return ResultNotFound
	case 409:
		return ResultConflict
	case 400, 422:
		return ResultInvalid
	default:
		return ResultError
	}
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
