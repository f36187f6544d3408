package guard

import (
	"fmt"
	"sync"
	"time"

	"depeg-guard-go/feed"
	"depeg-guard-go/oracle"
	"depeg-guard-go/risk"
)

// DefaultFreshness 参考价默认新鲜度窗口。
const DefaultFreshness = time.Hour

// Config 引擎配置，构造后不可变。
type Config struct {
	WindowSeconds int64         // TWAP 窗口长度（秒）
	Capacity      int           // 每池观察日志容量
	Freshness     time.Duration // 参考价新鲜度窗口，零值取 DefaultFreshness
}

// Engine 交易生命周期编排器：PreTrade 评估并放行/拒绝，
// PostTrade 作为观察日志的唯一写入方追加成交后的池状态。
// 宿主保证同一池的 PreTrade/成交/PostTrade 三元组串行执行；
// 不同池互不共享可变状态。
type Engine struct {
	cfg    Config
	policy *risk.PolicyTable
	feed   feed.ReferenceFeed
	math   oracle.TickMath
	sink   EventSink

	mu   sync.Mutex
	logs map[PoolID]*oracle.Log
}

// New 构造引擎。任何配置形状错误都在此失败，失败的实例不可评估交易。
func New(cfg Config, thresholds risk.Thresholds, fees risk.FeeSchedule, caps risk.SizeCaps, priceFeed feed.ReferenceFeed, sink EventSink) (*Engine, error) {
	if cfg.WindowSeconds <= 0 {
		return nil, fmt.Errorf("%w: twap window must be > 0", ErrInvalidConfig)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: observation capacity must be > 0", ErrInvalidConfig)
	}
	if priceFeed == nil {
		return nil, fmt.Errorf("%w: reference feed required", ErrInvalidConfig)
	}
	policy, err := risk.NewPolicyTable(thresholds, fees, caps)
	if err != nil {
		return nil, err
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Engine{
		cfg:    cfg,
		policy: policy,
		feed:   priceFeed,
		math:   oracle.NewExpTickMath(),
		sink:   sink,
		logs:   make(map[PoolID]*oracle.Log),
	}, nil
}

// SetTickMath 覆盖 tick→price 映射，测试注入用。
func (e *Engine) SetTickMath(m oracle.TickMath) {
	if m != nil {
		e.math = m
	}
}

// PreTrade 交易前评估。按序执行：参考价新鲜度 → TWAP → 偏离分类 →
// 策略查档 → Critical 拒绝 → 规模校验。拒绝类错误原样上抛，
// 不在内部重试；是否重新提交由交易执行方决定。
// 无论放行与否都会发出一条决策事件。
func (e *Engine) PreTrade(pool PoolID, req TradeRequest) (Decision, error) {
	refValue, updatedAt, err := e.feed.Latest()
	if err != nil || updatedAt == 0 || req.Timestamp-updatedAt > int64(e.cfg.Freshness/time.Second) {
		return e.reject(pool, req, Decision{Reason: ReasonStaleReference},
			DecisionEvent{Pool: pool, Reference: refValue, Timestamp: req.Timestamp},
			ErrStaleReference)
	}

	twap, err := oracle.TWAP(e.poolLog(pool), e.cfg.WindowSeconds, req.Timestamp, req.CurrentTick, e.math)
	if err != nil {
		twap = e.math.PriceAtTick(req.CurrentTick)
	}

	// TWAP 为零 → 哨兵最大偏离，分类必落 Critical，绝不静默放行
	devBps, _ := risk.DeviationBps(refValue, twap)
	level, feeBps, ceiling := e.policy.Decide(devBps)

	decision := Decision{
		FeeBps:       feeBps,
		SizeCeiling:  ceiling,
		DeviationBps: devBps,
		Level:        level,
	}
	event := DecisionEvent{
		Pool:         pool,
		Reference:    refValue,
		TWAP:         twap,
		DeviationBps: devBps,
		Level:        level,
		FeeBps:       feeBps,
		SizeCeiling:  ceiling,
		Timestamp:    req.Timestamp,
	}

	if level == risk.Critical {
		decision.Reason = ReasonCriticalDeviation
		return e.reject(pool, req, decision, event, ErrCriticalDeviation)
	}
	if req.ProposedSize != nil && ceiling != nil && req.ProposedSize.Cmp(ceiling) > 0 {
		decision.Reason = ReasonSizeExceeded
		return e.reject(pool, req, decision, event, ErrSizeExceeded)
	}

	decision.Admit = true
	event.Admit = true
	e.sink.OnDecision(event)
	return decision, nil
}

// PostTrade 成交后无条件追加观察，是观察日志的唯一写入方。
// 被拒绝的交易不会到达这里，也就不会留下样本。
func (e *Engine) PostTrade(pool PoolID, resultingTick int64, timestamp int64) {
	e.poolLog(pool).Append(timestamp, resultingTick)
}

// ObservationCount 返回池的当前样本数，运维接口。
func (e *Engine) ObservationCount(pool PoolID) int {
	return e.poolLog(pool).Count()
}

// Policy 返回构造好的策略表。
func (e *Engine) Policy() *risk.PolicyTable { return e.policy }

func (e *Engine) reject(pool PoolID, req TradeRequest, d Decision, ev DecisionEvent, cause error) (Decision, error) {
	ev.Admit = false
	ev.Reason = d.Reason
	e.sink.OnDecision(ev)
	e.sink.OnRejection(RejectionEvent{
		Pool:         pool,
		Actor:        req.Direction,
		DeviationBps: d.DeviationBps,
		Reason:       d.Reason,
		Timestamp:    req.Timestamp,
	})
	return d, fmt.Errorf("pool %s: %w", pool, cause)
}

// poolLog 懒创建池的观察日志；容量在构造期已校验，这里不会失败。
func (e *Engine) poolLog(pool PoolID) *oracle.Log {
	e.mu.Lock()
	defer e.mu.Unlock()
	log, ok := e.logs[pool]
	if !ok {
		log, _ = oracle.NewLog(e.cfg.Capacity)
		e.logs[pool] = log
	}
	return log
}
