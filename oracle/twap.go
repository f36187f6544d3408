package oracle

import "math/big"

// TWAP 计算 [now-window, now] 窗口的时间加权平均价。
//
// 冷启动（空日志）回退到 currentTick 的即时价；退化包夹（目标落在最新
// 样本之后，或日志仅一条）同样直接取 currentTick。其余情况在包夹样本的
// 累计积分上做线性插值，除法统一用 Quo 向零截断。
func TWAP(log *Log, window, now int64, currentTick int64, math TickMath) (*big.Int, error) {
	if log == nil || log.Count() == 0 {
		return math.PriceAtTick(currentTick), nil
	}
	target := now - window
	if target < 0 {
		target = 0
	}
	before, after, err := log.Bracket(target)
	if err != nil {
		return math.PriceAtTick(currentTick), nil
	}
	if before.Timestamp == after.Timestamp {
		return math.PriceAtTick(currentTick), nil
	}
	span := big.NewInt(after.Timestamp - before.Timestamp)
	offset := big.NewInt(target - before.Timestamp)
	avg := new(big.Int).Sub(after.CumulativeTick, before.CumulativeTick)
	avg.Mul(avg, offset)
	avg.Quo(avg, span)
	avg.Add(avg, before.CumulativeTick)
	return math.PriceAtTick(saturateTick(avg)), nil
}

// saturateTick 将超出 int64 的积分值压到 tick 定义域边界。
func saturateTick(v *big.Int) int64 {
	if v.IsInt64() {
		return v.Int64()
	}
	if v.Sign() > 0 {
		return MaxTick
	}
	return -MaxTick
}
