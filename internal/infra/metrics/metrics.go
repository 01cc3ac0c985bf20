package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 汇总抓取/通道/缓存三类指标。
//
// 约束：
// - 由调用方提供 Registerer（测试用独立 registry，避免重复注册 panic）
// - nil *Metrics 上的方法都是 no-op，组件不需要判空
type Metrics struct {
	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	LaneWait      *prometheus.HistogramVec
	CacheTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "avmeta_fetch_total",
			Help: "Outbound fetches by lane and outcome.",
		}, []string{"lane", "outcome"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "avmeta_fetch_duration_seconds",
			Help:    "Duration of the HTTP call, excluding lane wait.",
			Buckets: prometheus.DefBuckets,
		}, []string{"lane"}),
		LaneWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "avmeta_lane_wait_seconds",
			Help:    "Time spent waiting for lane admission (gate + throttle).",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"lane"}),
		CacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "avmeta_cache_total",
			Help: "Cache lookups by record kind and result.",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) ObserveFetch(lane, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(lane, outcome).Inc()
	m.FetchDuration.WithLabelValues(lane).Observe(d.Seconds())
}

func (m *Metrics) ObserveLaneWait(lane string, d time.Duration) {
	if m == nil {
		return
	}
	m.LaneWait.WithLabelValues(lane).Observe(d.Seconds())
}

func (m *Metrics) IncCache(kind, result string) {
	if m == nil {
		return
	}
	m.CacheTotal.WithLabelValues(kind, result).Inc()
}
