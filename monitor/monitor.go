// Package monitor exposes Prometheus metrics for the guard engine.
package monitor

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"depeg-guard-go/guard"
)

// Monitor Prometheus监控指标收集器，同时实现 guard.EventSink
type Monitor struct {
	registry *prometheus.Registry

	// 评估指标
	evaluations *prometheus.CounterVec
	admits      *prometheus.CounterVec
	rejections  *prometheus.CounterVec

	// 偏离指标
	deviationBps  *prometheus.GaugeVec
	deviationHist prometheus.Histogram

	// 价格指标
	twapPrice      *prometheus.GaugeVec
	referencePrice *prometheus.GaugeVec

	// 策略指标
	feeBps      *prometheus.GaugeVec
	sizeCeiling *prometheus.GaugeVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "dg",
		Subsystem: "guard",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,

		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "evaluations_total",
			Help:      "交易前评估总数",
		}, []string{"pool"}),
		admits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "admits_total",
			Help:      "放行总数",
		}, []string{"pool"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rejections_total",
			Help:      "拒绝总数（按原因）",
		}, []string{"pool", "reason"}),

		deviationBps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deviation_bps",
			Help:      "最近一次评估的基点偏离",
		}, []string{"pool"}),
		deviationHist: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "deviation_bps_distribution",
			Help:      "基点偏离分布",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200, 500, 1000},
		}),

		twapPrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "twap_price",
			Help:      "最近一次评估的 TWAP（1e18 定点换算）",
		}, []string{"pool"}),
		referencePrice: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "reference_price",
			Help:      "最近一次评估的参考价（1e18 定点换算）",
		}, []string{"pool"}),

		feeBps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fee_bps",
			Help:      "最近一次评估给出的费率覆盖（基点）",
		}, []string{"pool"}),
		sizeCeiling: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "size_ceiling",
			Help:      "最近一次评估给出的规模上限",
		}, []string{"pool"}),
	}
	return m
}

// OnDecision 记录每次评估
func (m *Monitor) OnDecision(ev guard.DecisionEvent) {
	pool := string(ev.Pool)
	m.evaluations.WithLabelValues(pool).Inc()
	if ev.Admit {
		m.admits.WithLabelValues(pool).Inc()
	}
	m.deviationBps.WithLabelValues(pool).Set(float64(ev.DeviationBps))
	m.deviationHist.Observe(float64(ev.DeviationBps))
	if ev.TWAP != nil {
		m.twapPrice.WithLabelValues(pool).Set(scaledFloat(ev.TWAP))
	}
	if ev.Reference != nil {
		m.referencePrice.WithLabelValues(pool).Set(scaledFloat(ev.Reference))
	}
	m.feeBps.WithLabelValues(pool).Set(float64(ev.FeeBps))
	if ev.SizeCeiling != nil {
		f, _ := new(big.Float).SetInt(ev.SizeCeiling).Float64()
		m.sizeCeiling.WithLabelValues(pool).Set(f)
	}
}

// OnRejection 记录拒绝
func (m *Monitor) OnRejection(ev guard.RejectionEvent) {
	m.rejections.WithLabelValues(string(ev.Pool), string(ev.Reason)).Inc()
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 暴露底层 registry，测试用
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Evaluations 返回池的评估计数器，测试用
func (m *Monitor) Evaluations(pool string) prometheus.Counter {
	return m.evaluations.WithLabelValues(pool)
}

// Admits 返回池的放行计数器，测试用
func (m *Monitor) Admits(pool string) prometheus.Counter {
	return m.admits.WithLabelValues(pool)
}

// Rejections 返回池按原因的拒绝计数器，测试用
func (m *Monitor) Rejections(pool, reason string) prometheus.Counter {
	return m.rejections.WithLabelValues(pool, reason)
}

// scaledFloat 1e18 定点转 float64，仅用于指标展示
func scaledFloat(v *big.Int) float64 {
	f := new(big.Float).SetInt(v)
	f.Quo(f, new(big.Float).SetInt64(1_000_000_000_000_000_000))
	out, _ := f.Float64()
	return out
}
