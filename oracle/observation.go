// Package oracle maintains per-pool price-integral observations and
// answers time-weighted average price queries over a bounded window.
package oracle

import (
	"errors"
	"math/big"
)

var (
	ErrEmptyLog     = errors.New("observation log empty")
	ErrZeroCapacity = errors.New("observation capacity must be > 0")
)

// Observation 单条样本。CumulativeTick 是 tick 对秒数的累计积分，
// tick 可为负，因此积分可双向移动。
type Observation struct {
	Timestamp      int64
	CumulativeTick *big.Int
	Valid          bool
}

// Log 每池一份的环形观察缓冲。写满后新样本覆盖按时间最旧的槽位，
// 有效样本数恒不超过容量。按时间序读取时时间戳不递减。
type Log struct {
	slots      []Observation
	writeIndex int
	count      int
}

// NewLog 创建固定容量的观察日志；容量为零视为配置错误。
func NewLog(capacity int) (*Log, error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	return &Log{slots: make([]Observation, capacity)}, nil
}

// Count 当前有效样本数。
func (l *Log) Count() int { return l.count }

// Capacity 配置的最大保留样本数。
func (l *Log) Capacity() int { return len(l.slots) }

// Append 追加一条观察并推进写指针。
// 同一秒的重复追加经过时间为零、积分不变，但仍消耗一个槽位；
// 需要去重的调用方应在调用前自行合并。
func (l *Log) Append(timestamp int64, tick int64) {
	cum := new(big.Int)
	if l.count > 0 {
		prev := l.slots[l.lastIndex()]
		elapsed := timestamp - prev.Timestamp
		cum.Mul(big.NewInt(tick), big.NewInt(elapsed))
		cum.Add(cum, prev.CumulativeTick)
	} else {
		// 首条样本以日志起点为时间原点
		cum.Mul(big.NewInt(tick), big.NewInt(timestamp))
	}
	l.slots[l.writeIndex] = Observation{
		Timestamp:      timestamp,
		CumulativeTick: cum,
		Valid:          true,
	}
	l.writeIndex = (l.writeIndex + 1) % len(l.slots)
	if l.count < len(l.slots) {
		l.count++
	}
}

// Latest 返回最新一条观察。
func (l *Log) Latest() (Observation, error) {
	if l.count == 0 {
		return Observation{}, ErrEmptyLog
	}
	return l.slots[l.lastIndex()], nil
}

// Bracket 在按时间展开的视图上二分查找包夹 target 的两条观察。
// target 早于最旧样本时两端均为最旧；晚于最新样本时两端均为最新。
// 缓冲回绕后槽位顺序不等于时间顺序，必须先相对最旧槽位展开再二分。
func (l *Log) Bracket(target int64) (before, after Observation, err error) {
	if l.count == 0 {
		return Observation{}, Observation{}, ErrEmptyLog
	}
	oldest := l.at(0)
	newest := l.at(l.count - 1)
	if target <= oldest.Timestamp {
		return oldest, oldest, nil
	}
	if target >= newest.Timestamp {
		return newest, newest, nil
	}
	// 找第一个 Timestamp > target 的位置
	lo, hi := 0, l.count-1
	for lo < hi {
		mid := (lo + hi) / 2
		if l.at(mid).Timestamp > target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return l.at(lo - 1), l.at(lo), nil
}

func (l *Log) lastIndex() int {
	return (l.writeIndex - 1 + len(l.slots)) % len(l.slots)
}

// oldestIndex 未写满时最旧样本在 0 号槽，写满后在写指针处。
func (l *Log) oldestIndex() int {
	if l.count < len(l.slots) {
		return 0
	}
	return l.writeIndex
}

// at 按时间序访问第 i 条（0 为最旧）。
func (l *Log) at(i int) Observation {
	return l.slots[(l.oldestIndex()+i)%len(l.slots)]
}
