// Package risk turns a reference/TWAP price pair into a deviation
// measurement, a risk classification, and a graduated trading policy.
package risk

import "fmt"

// Level 偏离严重程度，四档全序。
type Level int

const (
	// Low 偏离在最低阈值以下，按基准费率放行。
	Low Level = iota
	// Medium 轻度脱锚，附加费率并收紧规模上限。
	Medium
	// High 明显脱锚，高费率、小上限。
	High
	// Critical 严重脱锚，交易一律拒绝。
	Critical
)

func (l Level) String() string {
	switch l {
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Thresholds 四个严格递增的基点阈值。
type Thresholds struct {
	LowBps      int64
	MediumBps   int64
	HighBps     int64
	CriticalBps int64
}

// Validate 非递增阈值直接失败，绝不静默修正。
func (t Thresholds) Validate() error {
	if t.LowBps < 0 {
		return fmt.Errorf("%w: lowBps must be >= 0", ErrInvalidConfig)
	}
	if !(t.LowBps < t.MediumBps && t.MediumBps < t.HighBps && t.HighBps < t.CriticalBps) {
		return fmt.Errorf("%w: thresholds must be strictly ascending", ErrInvalidConfig)
	}
	return nil
}

// Classify 将基点偏离映射到风险档位，自高向低用 >= 判定：
// 恰好等于阈值归入其上档位。低于 low 为 Low，[low, medium) 为 Medium，
// [medium, critical) 为 High，critical 及以上为 Critical。
// high 阈值不改变档位，仅供策略表在 High 档内升级费率与上限。
func Classify(devBps int64, t Thresholds) Level {
	switch {
	case devBps >= t.CriticalBps:
		return Critical
	case devBps >= t.MediumBps:
		return High
	case devBps >= t.LowBps:
		return Medium
	default:
		return Low
	}
}
