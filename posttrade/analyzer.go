// Package posttrade derives depeg-episode statistics from the guard
// engine's decision stream.
package posttrade

import (
	"sync"

	"depeg-guard-go/guard"
	"depeg-guard-go/risk"
)

// Episode 一次脱锚事件：从首次进入 High 及以上风险档，
// 到偏离回落至 Medium 以下为止。
type Episode struct {
	Pool            guard.PoolID
	StartedAt       int64
	EndedAt         int64 // 0 表示仍在进行
	PeakDeviation   int64
	RejectedTrades  int
	EvaluatedTrades int
}

// Stats 汇总指标。
type Stats struct {
	TotalEpisodes   int
	OpenEpisodes    int
	TotalRejections int
	MaxDeviationBps int64
	AvgDurationSecs float64
}

// Analyzer 事后分析器：实现 guard.EventSink，跟踪每个池的
// 脱锚事件边界与峰值偏离。只消费事件，不回写引擎。
type Analyzer struct {
	mu       sync.RWMutex
	open     map[guard.PoolID]*Episode
	closed   []Episode
	rejected int
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{open: make(map[guard.PoolID]*Episode)}
}

// OnDecision 按决策事件推进事件边界。
func (a *Analyzer) OnDecision(ev guard.DecisionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ep, inEpisode := a.open[ev.Pool]
	elevated := ev.Level >= risk.High

	switch {
	case !inEpisode && elevated:
		a.open[ev.Pool] = &Episode{
			Pool:            ev.Pool,
			StartedAt:       ev.Timestamp,
			PeakDeviation:   ev.DeviationBps,
			EvaluatedTrades: 1,
		}
	case inEpisode && elevated:
		ep.EvaluatedTrades++
		if ev.DeviationBps > ep.PeakDeviation {
			ep.PeakDeviation = ev.DeviationBps
		}
	case inEpisode && !elevated:
		ep.EvaluatedTrades++
		ep.EndedAt = ev.Timestamp
		a.closed = append(a.closed, *ep)
		delete(a.open, ev.Pool)
	}
}

// OnRejection 统计事件内的拒绝次数。
func (a *Analyzer) OnRejection(ev guard.RejectionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected++
	if ep, ok := a.open[ev.Pool]; ok {
		ep.RejectedTrades++
	}
}

// Episodes 返回已结束的事件副本。
func (a *Analyzer) Episodes() []Episode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Episode, len(a.closed))
	copy(out, a.closed)
	return out
}

// Stats 汇总当前统计。
func (a *Analyzer) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalEpisodes:   len(a.closed) + len(a.open),
		OpenEpisodes:    len(a.open),
		TotalRejections: a.rejected,
	}

	var totalDuration int64
	for _, ep := range a.closed {
		if ep.PeakDeviation > stats.MaxDeviationBps {
			stats.MaxDeviationBps = ep.PeakDeviation
		}
		totalDuration += ep.EndedAt - ep.StartedAt
	}
	for _, ep := range a.open {
		if ep.PeakDeviation > stats.MaxDeviationBps {
			stats.MaxDeviationBps = ep.PeakDeviation
		}
	}
	if len(a.closed) > 0 {
		stats.AvgDurationSecs = float64(totalDuration) / float64(len(a.closed))
	}
	return stats
}
