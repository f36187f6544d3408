// Package guard wires the observation log, the deviation classifier and
// the policy table into a strict before/after lifecycle around each trade.
package guard

import (
	"math/big"

	"depeg-guard-go/risk"
)

// PoolID 池标识，对引擎不透明。
type PoolID string

// Direction 交易方向。
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// TradeRequest PreTrade 的不可变输入快照：宿主每次调用只传值，
// 引擎从不伸手进宿主全局状态。
type TradeRequest struct {
	ProposedSize *big.Int
	Direction    Direction
	CurrentTick  int64
	Timestamp    int64 // epoch 秒，宿主时钟可粗化（同秒可重复）
}

// RejectReason 拒绝原因码。
type RejectReason string

const (
	ReasonNone              RejectReason = ""
	ReasonStaleReference    RejectReason = "stale_reference"
	ReasonSizeExceeded      RejectReason = "size_exceeded"
	ReasonCriticalDeviation RejectReason = "critical_deviation"
)

// Decision 单次 PreTrade 的评估结果，临时值不落盘。
// Admit 为真时 FeeBps 取代池子静态费率。
type Decision struct {
	FeeBps       uint64
	SizeCeiling  *big.Int
	Admit        bool
	Reason       RejectReason
	DeviationBps int64
	Level        risk.Level
}

// DecisionEvent 每次 PreTrade 均发出的观测事件（含被拒绝的）。
type DecisionEvent struct {
	Pool         PoolID
	Reference    *big.Int
	TWAP         *big.Int
	DeviationBps int64
	Level        risk.Level
	FeeBps       uint64
	SizeCeiling  *big.Int
	Admit        bool
	Reason       RejectReason
	Timestamp    int64
}

// RejectionEvent 仅在拒绝时发出。
type RejectionEvent struct {
	Pool         PoolID
	Actor        Direction
	DeviationBps int64
	Reason       RejectReason
	Timestamp    int64
}
