package guard

import (
	"depeg-guard-go/infrastructure/alert"
	"depeg-guard-go/infrastructure/logger"
	"depeg-guard-go/monitor/logschema"
)

// EventSink 接收引擎的观测事件。实现必须快速返回且不得失败
// 影响交易路径；引擎不检查下沉结果。
type EventSink interface {
	OnDecision(DecisionEvent)
	OnRejection(RejectionEvent)
}

// NopSink 丢弃所有事件。
type NopSink struct{}

func (NopSink) OnDecision(DecisionEvent)   {}
func (NopSink) OnRejection(RejectionEvent) {}

// MultiSink 顺序扇出到多个 sink。
type MultiSink struct {
	Sinks []EventSink
}

func (m MultiSink) OnDecision(ev DecisionEvent) {
	for _, s := range m.Sinks {
		if s != nil {
			s.OnDecision(ev)
		}
	}
}

func (m MultiSink) OnRejection(ev RejectionEvent) {
	for _, s := range m.Sinks {
		if s != nil {
			s.OnRejection(ev)
		}
	}
}

// LoggerSink 把事件写入结构化日志，字段经 logschema 校验。
type LoggerSink struct {
	Log *logger.Logger
}

func (s LoggerSink) OnDecision(ev DecisionEvent) {
	if s.Log == nil {
		return
	}
	fields := map[string]interface{}{
		"pool":         string(ev.Pool),
		"deviationBps": ev.DeviationBps,
		"level":        ev.Level.String(),
		"feeBps":       ev.FeeBps,
		"admit":        ev.Admit,
	}
	if ev.Reference != nil {
		fields["reference"] = ev.Reference.String()
	}
	if ev.TWAP != nil {
		fields["twap"] = ev.TWAP.String()
	}
	if ev.SizeCeiling != nil {
		fields["sizeCeiling"] = ev.SizeCeiling.String()
	}
	if ev.Reason != ReasonNone {
		fields["reason"] = string(ev.Reason)
	}
	if err := logschema.Validate("decision_event", fields); err != nil {
		s.Log.LogError(err, map[string]interface{}{"pool": string(ev.Pool)})
	}
	s.Log.LogDecision(fields)
}

func (s LoggerSink) OnRejection(ev RejectionEvent) {
	if s.Log == nil {
		return
	}
	fields := map[string]interface{}{
		"pool":         string(ev.Pool),
		"actor":        string(ev.Actor),
		"deviationBps": ev.DeviationBps,
		"reason":       string(ev.Reason),
	}
	if err := logschema.Validate("rejection_event", fields); err != nil {
		s.Log.LogError(err, map[string]interface{}{"pool": string(ev.Pool)})
	}
	s.Log.LogRejection(fields)
}

// AlertSink 把拒绝事件升级为告警：规模超限 WARNING，
// 脱锚/陈旧参考价 CRITICAL。决策事件不产生告警。
type AlertSink struct {
	Manager *alert.Manager
}

func (s AlertSink) OnDecision(DecisionEvent) {}

func (s AlertSink) OnRejection(ev RejectionEvent) {
	if s.Manager == nil {
		return
	}
	fields := map[string]interface{}{
		"actor":        string(ev.Actor),
		"deviationBps": ev.DeviationBps,
	}
	switch ev.Reason {
	case ReasonSizeExceeded:
		_ = s.Manager.SendWarning(string(ev.Pool), "trade size over ceiling", fields)
	case ReasonCriticalDeviation:
		_ = s.Manager.SendCritical(string(ev.Pool), "critical price deviation", fields)
	case ReasonStaleReference:
		_ = s.Manager.SendCritical(string(ev.Pool), "reference feed stale", fields)
	}
}
