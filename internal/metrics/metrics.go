package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FormsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bansos_forms_created_total",
		Help: "Total number of form sessions created",
	})
	FormsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bansos_forms_active",
		Help: "Form sessions currently held in memory",
	})
	RegionRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_region_requests_total",
		Help: "Total wilayah REST requests by tier",
	}, []string{"tier"})
	RegionFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_region_fail_total",
		Help: "Total wilayah REST failures by tier",
	}, []string{"tier"})
	RegionDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bansos_region_duration_ms",
		Help:    "Wilayah REST call duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 3000},
	}, []string{"tier"})
	RegionCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_region_cache_hits_total",
		Help: "Region cache hits by layer",
	}, []string{"layer"})
	RegionCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bansos_region_cache_misses_total",
		Help: "Region lookups that reached the remote API",
	})
	CascadeFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_cascade_fetch_total",
		Help: "Child option fetches issued by the location chain, by child tier and outcome",
	}, []string{"tier", "outcome"})
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_submissions_total",
		Help: "Form submissions by outcome",
	}, []string{"outcome"})
	SubmissionDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bansos_submission_duration_ms",
		Help:    "Submission pipeline duration in milliseconds",
		Buckets: []float64{10, 50, 100, 500, 1000, 1500, 2000, 5000},
	})
	ProvinceHintTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bansos_province_hint_total",
		Help: "Province hint lookups by source",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(FormsCreatedTotal)
	prometheus.MustRegister(FormsActive)
	prometheus.MustRegister(RegionRequestsTotal)
	prometheus.MustRegister(RegionFailTotal)
	prometheus.MustRegister(RegionDurationMs)
	prometheus.MustRegister(RegionCacheHitsTotal)
	prometheus.MustRegister(RegionCacheMissesTotal)
	prometheus.MustRegister(CascadeFetchTotal)
	prometheus.MustRegister(SubmissionsTotal)
	prometheus.MustRegister(SubmissionDurationMs)
	prometheus.MustRegister(ProvinceHintTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
