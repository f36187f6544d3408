package oracle

import "math/big"

// PricePrecision 1e18 定点价格精度。
var PricePrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MaxTick tick 的有效定义域边界，超出部分按边界截断。
const MaxTick = int64(887272)

// TickMath 将对数刻度的 tick 映射为 1e18 定点价格。
// 实现必须确定且随 tick 单调。
type TickMath interface {
	PriceAtTick(tick int64) *big.Int
}

const tickMathPrec = 128

// ExpTickMath 指数曲线 price = base^tick 的默认实现。
// 幂运算用固定精度 big.Float 平方求幂，同一输入结果完全可复现。
type ExpTickMath struct {
	base *big.Float
}

// NewExpTickMath 默认底数 1.0001，tick 即万分之一刻度。
func NewExpTickMath() *ExpTickMath {
	return &ExpTickMath{
		base: new(big.Float).SetPrec(tickMathPrec).SetFloat64(1.0001),
	}
}

// PriceAtTick 返回 base^tick 的 1e18 定点值，tick 截断到 [-MaxTick, MaxTick]。
func (m *ExpTickMath) PriceAtTick(tick int64) *big.Int {
	n := clampTick(tick)
	neg := n < 0
	if neg {
		n = -n
	}
	acc := new(big.Float).SetPrec(tickMathPrec).SetInt64(1)
	sq := new(big.Float).SetPrec(tickMathPrec).Set(m.base)
	for n > 0 {
		if n&1 == 1 {
			acc.Mul(acc, sq)
		}
		sq.Mul(sq, sq)
		n >>= 1
	}
	if neg {
		acc.Quo(new(big.Float).SetPrec(tickMathPrec).SetInt64(1), acc)
	}
	scaled := new(big.Float).SetPrec(tickMathPrec).SetInt(PricePrecision)
	scaled.Mul(scaled, acc)
	out, _ := scaled.Int(nil)
	return out
}

func clampTick(tick int64) int64 {
	if tick > MaxTick {
		return MaxTick
	}
	if tick < -MaxTick {
		return -MaxTick
	}
	return tick
}
