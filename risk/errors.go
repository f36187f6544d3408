package risk

import "errors"

var (
	// ErrInvalidConfig 构造期配置形状错误；构造失败的实例不可使用。
	ErrInvalidConfig = errors.New("invalid risk config")
	// ErrZeroTWAP TWAP 为零，按最大偏离处理而非崩溃。
	ErrZeroTWAP = errors.New("twap is zero")
)
