package guard

import "errors"

var (
	// ErrStaleReference 参考价超出新鲜度窗口或时间戳缺失。
	ErrStaleReference = errors.New("reference price stale")
	// ErrSizeExceeded 申报规模超过当前档位上限。
	ErrSizeExceeded = errors.New("trade size exceeds ceiling")
	// ErrCriticalDeviation 偏离达到 Critical 档，无条件拒绝。
	ErrCriticalDeviation = errors.New("critical price deviation")
	// ErrInvalidConfig 构造期配置错误，引擎不可用。
	ErrInvalidConfig = errors.New("invalid guard config")
)
