package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatui_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatui_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 推理指标
var (
	// CompletionRequestsTotal 补全请求总数
	CompletionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatui_completion_requests_total",
			Help: "发往推理后端的补全请求总数",
		},
		[]string{"model"},
	)

	// CompletionChunksTotal 转发的流式块总数
	CompletionChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatui_completion_chunks_total",
			Help: "从推理后端转发的流式块总数",
		},
		[]string{"model"},
	)

	// CompletionDuration 补全耗时（秒），含整个流式过程
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatui_completion_duration_seconds",
			Help:    "补全请求从发出到流结束的耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"model"},
	)
)

// 记忆指标
var (
	// MemorySavesTotal 记忆保存总数，按结果分类
	MemorySavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatui_memory_saves_total",
			Help: "触发的记忆保存总数",
		},
		[]string{"result"},
	)

	// MemoryRetrievalsTotal 注入提示词的记忆检索命中总数
	MemoryRetrievalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatui_memory_retrievals_total",
			Help: "检索命中并注入提示词的记忆块总数",
		},
	)
)
