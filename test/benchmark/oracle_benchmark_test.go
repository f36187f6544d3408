package benchmark

import (
	"testing"

	"depeg-guard-go/oracle"
)

// BenchmarkPriceAtTick 定点幂计算
func BenchmarkPriceAtTick(b *testing.B) {
	math := oracle.NewExpTickMath()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = math.PriceAtTick(int64(i % 1000))
	}
}

// BenchmarkTWAP 满日志 TWAP 查询
func BenchmarkTWAP(b *testing.B) {
	log, err := oracle.NewLog(1024)
	if err != nil {
		b.Fatalf("new log: %v", err)
	}
	t0 := int64(1_700_000_000)
	for i := int64(0); i < 2048; i++ { // 写满并环绕一轮
		log.Append(t0+i, i%20)
	}
	math := oracle.NewExpTickMath()
	now := t0 + 2048

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = oracle.TWAP(log, 600, now, 10, math)
	}
}
