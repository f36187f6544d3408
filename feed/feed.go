// Package feed provides reference-price collaborators for the guard
// engine: a manual in-memory feed and a websocket push subscriber.
package feed

import (
	"errors"
	"math/big"
	"sync"
)

// ErrNoPrice 尚未观察到任何参考价。
var ErrNoPrice = errors.New("no reference price observed")

// ReferenceFeed 暴露最新参考价（1e18 定点）及其上游时间戳（epoch 秒）。
// 核心只读，从不修改该协作方。
type ReferenceFeed interface {
	Latest() (value *big.Int, updatedAt int64, err error)
}

// Static 手动喂价实现，sim 与测试使用。
type Static struct {
	mu        sync.RWMutex
	value     *big.Int
	updatedAt int64
}

func NewStatic() *Static { return &Static{} }

// Set 更新快照。value 会被复制，调用方可复用自己的对象。
func (s *Static) Set(value *big.Int, updatedAt int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = new(big.Int).Set(value)
	s.updatedAt = updatedAt
}

func (s *Static) Latest() (*big.Int, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil {
		return nil, 0, ErrNoPrice
	}
	return new(big.Int).Set(s.value), s.updatedAt, nil
}
