package risk

import (
	"math"
	"math/big"
)

// MaxDeviationBps 除零时的哨兵偏离值，分类必落 Critical。
const MaxDeviationBps = int64(math.MaxInt64)

var bpsScale = big.NewInt(10_000)

// DeviationBps 计算两价之间的基点偏离，向下取整。
// 分母取两价中较小者，保证 DeviationBps(a,b) == DeviationBps(b,a)；
// 任一价为零（或 nil）返回哨兵最大值与 ErrZeroTWAP，绝不静默放行。
func DeviationBps(reference, twap *big.Int) (int64, error) {
	if reference == nil || twap == nil || reference.Sign() <= 0 || twap.Sign() <= 0 {
		return MaxDeviationBps, ErrZeroTWAP
	}
	lo, hi := reference, twap
	if lo.Cmp(hi) > 0 {
		lo, hi = hi, lo
	}
	dev := new(big.Int).Sub(hi, lo)
	dev.Mul(dev, bpsScale)
	dev.Quo(dev, lo)
	if !dev.IsInt64() {
		return MaxDeviationBps, nil
	}
	return dev.Int64(), nil
}
