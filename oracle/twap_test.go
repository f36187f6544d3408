package oracle

import (
	"math/big"
	"testing"
)

// identityMath 将 tick 原样作为价格返回，便于断言插值结果。
type identityMath struct{}

func (identityMath) PriceAtTick(tick int64) *big.Int { return big.NewInt(tick) }

func TestTWAPColdStart(t *testing.T) {
	price, err := TWAP(nil, 600, 1000, 42, identityMath{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if price.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("cold start price = %v, want 42", price)
	}

	empty, _ := NewLog(4)
	price, _ = TWAP(empty, 600, 1000, 42, identityMath{})
	if price.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("empty log price = %v, want 42", price)
	}
}

func TestTWAPDegenerateBracket(t *testing.T) {
	log, _ := NewLog(4)
	log.Append(100, 5)

	// 仅一条样本：包夹两端相同，直接取 currentTick
	price, err := TWAP(log, 50, 200, 7, identityMath{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if price.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("price = %v, want 7", price)
	}

	// 目标在最新样本之后同样退化
	log.Append(200, 5)
	price, _ = TWAP(log, 10, 300, 9, identityMath{})
	if price.Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("price = %v, want 9", price)
	}
}

func TestTWAPInterpolation(t *testing.T) {
	log, _ := NewLog(8)
	log.Append(100, 0)  // cum = 0
	log.Append(200, 10) // cum = 0 + 10*100 = 1000

	// target = 250-100 = 150，位于两样本正中：0 + 1000*50/100 = 500
	price, err := TWAP(log, 100, 250, 99, identityMath{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if price.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("interpolated = %v, want 500", price)
	}
}

func TestTWAPTruncatesTowardZero(t *testing.T) {
	// 手工构造积分，使插值出现非整除：2*2/3 = 1.33 → 1
	log := &Log{
		slots: []Observation{
			{Timestamp: 100, CumulativeTick: big.NewInt(0), Valid: true},
			{Timestamp: 103, CumulativeTick: big.NewInt(2), Valid: true},
		},
		writeIndex: 0,
		count:      2,
	}
	price, err := TWAP(log, 1, 103, 0, identityMath{}) // target 102
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if price.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("price = %v, want 1 (truncated)", price)
	}

	// 负方向同样向零截断：-4/3 → -1 而不是 -2
	neg := &Log{
		slots: []Observation{
			{Timestamp: 100, CumulativeTick: big.NewInt(0), Valid: true},
			{Timestamp: 103, CumulativeTick: big.NewInt(-2), Valid: true},
		},
		writeIndex: 0,
		count:      2,
	}
	price, _ = TWAP(neg, 1, 103, 0, identityMath{})
	if price.Cmp(big.NewInt(-1)) != 0 {
		t.Fatalf("price = %v, want -1 (truncated toward zero)", price)
	}
}

func TestTWAPWindowUnderflowClampsToZero(t *testing.T) {
	log, _ := NewLog(8)
	log.Append(100, 0)
	log.Append(200, 10)

	// now-window < 0 时 target 取 0，早于最旧样本 → 退化取 currentTick
	price, err := TWAP(log, 5000, 150, 3, identityMath{})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if price.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("price = %v, want 3", price)
	}
}

// 重复追加同一 (timestamp, tick) 只消耗槽位，不改变后续 TWAP 结果。
func TestTWAPNoopAppendIdempotent(t *testing.T) {
	build := func(dup bool) *Log {
		log, _ := NewLog(8)
		log.Append(100, 0)
		log.Append(200, 10)
		if dup {
			log.Append(200, 10)
		}
		log.Append(300, 4)
		return log
	}

	plain := build(false)
	duped := build(true)
	for _, now := range []int64{300, 350, 420} {
		a, _ := TWAP(plain, 120, now, 4, identityMath{})
		b, _ := TWAP(duped, 120, now, 4, identityMath{})
		if a.Cmp(b) != 0 {
			t.Fatalf("now=%d: twap diverged %v vs %v", now, a, b)
		}
	}
	if duped.Count() != plain.Count()+1 {
		t.Fatalf("duplicate append should consume a slot")
	}
}
