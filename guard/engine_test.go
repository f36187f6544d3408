package guard_test

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depeg-guard-go/feed"
	"depeg-guard-go/guard"
	"depeg-guard-go/risk"
)

var (
	testThresholds = risk.Thresholds{LowBps: 10, MediumBps: 50, HighBps: 100, CriticalBps: 200}
	testFees       = risk.FeeSchedule{BaseBps: 30, MediumBps: 500, HighBps: 1000, MaxBps: 3000}
	testCaps       = risk.SizeCaps{
		Base:   big.NewInt(1_000_000),
		Medium: big.NewInt(200_000),
		High:   big.NewInt(50_000),
		Min:    big.NewInt(10_000),
	}
)

// milliE18 构造精确的 1e18 定点价：milliE18(1003) = 1.003e18。
func milliE18(m int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(m), big.NewInt(1_000_000_000_000_000))
}

// recordingSink 记录所有事件供断言。
type recordingSink struct {
	mu         sync.Mutex
	decisions  []guard.DecisionEvent
	rejections []guard.RejectionEvent
}

func (s *recordingSink) OnDecision(ev guard.DecisionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, ev)
}

func (s *recordingSink) OnRejection(ev guard.RejectionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections = append(s.rejections, ev)
}

// zeroMath 恒零的 tick→price 映射，制造 TWAP 为零的场景。
type zeroMath struct{}

func (zeroMath) PriceAtTick(int64) *big.Int { return big.NewInt(0) }

func newEngine(t *testing.T) (*guard.Engine, *feed.Static, *recordingSink) {
	t.Helper()
	priceFeed := feed.NewStatic()
	sink := &recordingSink{}
	eng, err := guard.New(guard.Config{WindowSeconds: 600, Capacity: 64},
		testThresholds, testFees, testCaps, priceFeed, sink)
	require.NoError(t, err)
	return eng, priceFeed, sink
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	priceFeed := feed.NewStatic()

	_, err := guard.New(guard.Config{WindowSeconds: 0, Capacity: 64},
		testThresholds, testFees, testCaps, priceFeed, nil)
	assert.ErrorIs(t, err, guard.ErrInvalidConfig)

	_, err = guard.New(guard.Config{WindowSeconds: 600, Capacity: 0},
		testThresholds, testFees, testCaps, priceFeed, nil)
	assert.ErrorIs(t, err, guard.ErrInvalidConfig)

	_, err = guard.New(guard.Config{WindowSeconds: 600, Capacity: 64},
		testThresholds, testFees, testCaps, nil, nil)
	assert.ErrorIs(t, err, guard.ErrInvalidConfig)

	badFees := risk.FeeSchedule{BaseBps: 500, MediumBps: 500, HighBps: 1000, MaxBps: 3000}
	_, err = guard.New(guard.Config{WindowSeconds: 600, Capacity: 64},
		testThresholds, badFees, testCaps, priceFeed, nil)
	assert.ErrorIs(t, err, risk.ErrInvalidConfig)
}

// 30 bps 偏离 → Medium 档，费率 500，上限 mediumMaxSize。
func TestPreTradeMediumDeviation(t *testing.T) {
	eng, priceFeed, sink := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1003), now)

	// 空日志冷启动：tick 0 的即时价恰为 1.000e18
	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(100_000),
		Direction:    guard.Buy,
		CurrentTick:  0,
		Timestamp:    now,
	})
	require.NoError(t, err)
	assert.True(t, decision.Admit)
	assert.Equal(t, int64(30), decision.DeviationBps)
	assert.Equal(t, risk.Medium, decision.Level)
	assert.Equal(t, uint64(500), decision.FeeBps)
	assert.Equal(t, 0, decision.SizeCeiling.Cmp(big.NewInt(200_000)))

	require.Len(t, sink.decisions, 1)
	assert.True(t, sink.decisions[0].Admit)
	assert.Empty(t, sink.rejections)
}

// 250 bps ≥ 200 → Critical，无条件拒绝，且中止的交易不留样本。
func TestPreTradeCriticalDeviation(t *testing.T) {
	eng, priceFeed, sink := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1025), now)

	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		Direction:    guard.Sell,
		CurrentTick:  0,
		Timestamp:    now,
	})
	assert.ErrorIs(t, err, guard.ErrCriticalDeviation)
	assert.False(t, decision.Admit)
	assert.Equal(t, guard.ReasonCriticalDeviation, decision.Reason)
	assert.Equal(t, int64(250), decision.DeviationBps)

	// 决策事件照发，拒绝事件带原因码
	require.Len(t, sink.decisions, 1)
	require.Len(t, sink.rejections, 1)
	assert.Equal(t, guard.ReasonCriticalDeviation, sink.rejections[0].Reason)
	assert.Equal(t, guard.Sell, sink.rejections[0].Actor)

	assert.Equal(t, 0, eng.ObservationCount("pool-1"))
}

// High 档：100,000 超过 highMaxSize=50,000 拒绝；10,000 放行、费率 highFee。
func TestPreTradeSizeCeiling(t *testing.T) {
	eng, priceFeed, sink := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1006), now) // 60 bps → High

	_, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(100_000),
		Direction:    guard.Buy,
		CurrentTick:  0,
		Timestamp:    now,
	})
	assert.ErrorIs(t, err, guard.ErrSizeExceeded)
	require.Len(t, sink.rejections, 1)
	assert.Equal(t, guard.ReasonSizeExceeded, sink.rejections[0].Reason)

	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(10_000),
		Direction:    guard.Buy,
		CurrentTick:  0,
		Timestamp:    now,
	})
	require.NoError(t, err)
	assert.True(t, decision.Admit)
	assert.Equal(t, risk.High, decision.Level)
	assert.Equal(t, uint64(1000), decision.FeeBps)
}

// [high, critical) 边界带：仍是 High 但费率顶格、上限保底。
func TestPreTradeBoundaryBand(t *testing.T) {
	eng, priceFeed, _ := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1015), now) // 150 bps

	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(5_000),
		Direction:    guard.Buy,
		CurrentTick:  0,
		Timestamp:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, risk.High, decision.Level)
	assert.Equal(t, uint64(3000), decision.FeeBps)
	assert.Equal(t, 0, decision.SizeCeiling.Cmp(big.NewInt(10_000)))
}

// 参考价超龄（2 小时 > 1 小时窗口）→ 无论偏离多少都拒绝。
func TestPreTradeStaleReference(t *testing.T) {
	eng, priceFeed, sink := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1000), now-7200)

	_, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		Direction:    guard.Buy,
		CurrentTick:  0,
		Timestamp:    now,
	})
	assert.ErrorIs(t, err, guard.ErrStaleReference)
	require.Len(t, sink.rejections, 1)
	assert.Equal(t, guard.ReasonStaleReference, sink.rejections[0].Reason)

	// 时间戳缺失等同陈旧
	priceFeed.Set(milliE18(1000), 0)
	_, err = eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		CurrentTick:  0,
		Timestamp:    now,
	})
	assert.ErrorIs(t, err, guard.ErrStaleReference)
}

// 喂价端错误视为陈旧参考价。
func TestPreTradeFeedError(t *testing.T) {
	eng, _, _ := newEngine(t)
	_, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		CurrentTick:  0,
		Timestamp:    1_700_000_000,
	})
	assert.ErrorIs(t, err, guard.ErrStaleReference)
}

// TWAP 为零按最大偏离处理：落 Critical，绝不静默放行。
func TestPreTradeZeroTWAP(t *testing.T) {
	eng, priceFeed, _ := newEngine(t)
	eng.SetTickMath(zeroMath{})
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1000), now)

	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		CurrentTick:  0,
		Timestamp:    now,
	})
	assert.ErrorIs(t, err, guard.ErrCriticalDeviation)
	assert.Equal(t, risk.MaxDeviationBps, decision.DeviationBps)
	assert.Equal(t, risk.Critical, decision.Level)
}

// PostTrade 是观察日志唯一写入方；样本随成交累积并参与后续 TWAP。
func TestPostTradeAppends(t *testing.T) {
	eng, priceFeed, _ := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1000), now)

	eng.PostTrade("pool-1", 0, now-300)
	eng.PostTrade("pool-1", 0, now-200)
	assert.Equal(t, 2, eng.ObservationCount("pool-1"))

	// 池之间互不影响
	assert.Equal(t, 0, eng.ObservationCount("pool-2"))

	decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
		ProposedSize: big.NewInt(1),
		CurrentTick:  0,
		Timestamp:    now,
	})
	require.NoError(t, err)
	assert.True(t, decision.Admit)
}

// 同秒重复评估/成交必须保持正确（宿主时钟粗化）。
func TestSameSecondLifecycle(t *testing.T) {
	eng, priceFeed, _ := newEngine(t)
	now := int64(1_700_000_000)
	priceFeed.Set(milliE18(1000), now)

	for i := 0; i < 3; i++ {
		decision, err := eng.PreTrade("pool-1", guard.TradeRequest{
			ProposedSize: big.NewInt(1_000),
			Direction:    guard.Buy,
			CurrentTick:  0,
			Timestamp:    now,
		})
		require.NoError(t, err)
		require.True(t, decision.Admit)
		eng.PostTrade("pool-1", 0, now)
	}
	assert.Equal(t, 3, eng.ObservationCount("pool-1"))
}
