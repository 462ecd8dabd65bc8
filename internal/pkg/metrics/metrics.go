package metrics

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ci_dashboard"

// 事件处理结果
const (
	ResultStored  = "stored"
	ResultDropped = "dropped"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

var (
	ingestEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Ingested CI events by kind and result",
		},
		[]string{"kind", "result"},
	)

	linksReconciled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "links_reconciled_total",
			Help:      "Workflow run foreign keys filled by the reconciliation pass",
		},
	)

	backfillRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "repos_total",
			Help:      "Backfill passes per repo by result",
		},
		[]string{"result"},
	)

	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Metrics aggregator query latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	registry    = prometheus.NewRegistry()
	metricsOnce sync.Once
)

func register() {
	metricsOnce.Do(func() {
		registry.MustRegister(
			ingestEvents,
			linksReconciled,
			backfillRuns,
			queryDuration,
			httpRequests,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// IncIngest 记录一次事件处理结果
func IncIngest(kind, result string) {
	register()
	ingestEvents.WithLabelValues(kind, result).Inc()
}

// AddLinksReconciled 记录补齐的外键数
func AddLinksReconciled(n int64) {
	if n <= 0 {
		return
	}
	register()
	linksReconciled.Add(float64(n))
}

// IncBackfill 记录一次仓库回填结果
func IncBackfill(result string) {
	register()
	backfillRuns.WithLabelValues(result).Inc()
}

// ObserveQuery 返回结束计时的函数，配合 defer 使用
func ObserveQuery(query string) func() {
	register()
	start := time.Now()
	return func() {
		queryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

// IncHTTPRequest 记录一次HTTP请求
func IncHTTPRequest(method, route, status string) {
	register()
	httpRequests.WithLabelValues(method, route, status).Inc()
}

// Handler /metrics 处理器
func Handler() gin.HandlerFunc {
	register()
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return gin.WrapH(h)
}

// Gatherer 测试中读取指标
func Gatherer() prometheus.Gatherer {
	register()
	return registry
}
