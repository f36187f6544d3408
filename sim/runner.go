// Package sim replays scripted price paths through the guard engine.
package sim

import (
	"errors"
	"math/big"

	"depeg-guard-go/feed"
	"depeg-guard-go/guard"
)

// Step 一个重放步骤：先更新参考价，再以该时刻的池状态评估一笔交易。
type Step struct {
	Timestamp      int64
	ReferencePrice *big.Int // 1e18 定点
	PoolTick       int64
	TradeSize      *big.Int
	Direction      guard.Direction
}

// StepResult 单步评估结果。
type StepResult struct {
	Step     Step
	Decision guard.Decision
	Err      error
}

// Runner 将脚本化的价格路径按生命周期驱动引擎：
// PreTrade → 放行则 PostTrade。确定性重放，相同脚本必得相同结果。
type Runner struct {
	Pool   guard.PoolID
	Engine *guard.Engine
	Feed   *feed.Static
}

// Run 依次执行所有步骤并收集结果。脚本错误（缺参考价等）直接失败，
// 拒绝类错误记入结果继续重放。
func (r *Runner) Run(steps []Step) ([]StepResult, error) {
	if r.Engine == nil || r.Feed == nil {
		return nil, errors.New("runner not initialized")
	}
	results := make([]StepResult, 0, len(steps))
	for _, step := range steps {
		if step.ReferencePrice == nil || step.ReferencePrice.Sign() <= 0 {
			return results, errors.New("step missing reference price")
		}
		r.Feed.Set(step.ReferencePrice, step.Timestamp)

		decision, err := r.Engine.PreTrade(r.Pool, guard.TradeRequest{
			ProposedSize: step.TradeSize,
			Direction:    step.Direction,
			CurrentTick:  step.PoolTick,
			Timestamp:    step.Timestamp,
		})
		if err == nil && decision.Admit {
			r.Engine.PostTrade(r.Pool, step.PoolTick, step.Timestamp)
		}
		results = append(results, StepResult{Step: step, Decision: decision, Err: err})
	}
	return results, nil
}
