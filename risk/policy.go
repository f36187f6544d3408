package risk

import (
	"fmt"
	"math/big"
)

// FeeSchedule 四档严格递增的费率（基点）。Critical 对应 MaxBps，
// 但到达 Critical 的交易无论费率都会被拒绝。
type FeeSchedule struct {
	BaseBps   uint64
	MediumBps uint64
	HighBps   uint64
	MaxBps    uint64
}

// Validate 费率必须严格递增。
func (f FeeSchedule) Validate() error {
	if !(f.BaseBps < f.MediumBps && f.MediumBps < f.HighBps && f.HighBps < f.MaxBps) {
		return fmt.Errorf("%w: fee rates must be strictly ascending", ErrInvalidConfig)
	}
	return nil
}

// SizeCaps 四档严格递减的规模上限。Min 是 High 档贴近 Critical 边界时
// 的保底上限，再往上即直接拒绝。
type SizeCaps struct {
	Base   *big.Int
	Medium *big.Int
	High   *big.Int
	Min    *big.Int
}

// Validate 上限必须全为正且严格递减。
func (c SizeCaps) Validate() error {
	caps := []*big.Int{c.Base, c.Medium, c.High, c.Min}
	for _, v := range caps {
		if v == nil || v.Sign() <= 0 {
			return fmt.Errorf("%w: size caps must be > 0", ErrInvalidConfig)
		}
	}
	for i := 1; i < len(caps); i++ {
		if caps[i].Cmp(caps[i-1]) >= 0 {
			return fmt.Errorf("%w: size caps must be strictly descending", ErrInvalidConfig)
		}
	}
	return nil
}

// policyRow 单条策略档：floorBps 起生效的档位、费率与上限。
type policyRow struct {
	floorBps int64
	level    Level
	feeBps   uint64
	sizeCap  *big.Int
}

// PolicyTable 把三份配置折叠成一张有序档表加 Critical 终止档，
// 三张表不可能再漂移错位。构造期校验失败的表不可用。
type PolicyTable struct {
	thresholds Thresholds
	rows       []policyRow
}

// NewPolicyTable 校验并构建策略表。
func NewPolicyTable(t Thresholds, f FeeSchedule, c SizeCaps) (*PolicyTable, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	rows := []policyRow{
		{floorBps: 0, level: Low, feeBps: f.BaseBps, sizeCap: c.Base},
		{floorBps: t.LowBps, level: Medium, feeBps: f.MediumBps, sizeCap: c.Medium},
		{floorBps: t.MediumBps, level: High, feeBps: f.HighBps, sizeCap: c.High},
		// High 档边界带：费率顶格、上限保底，但仍可成交
		{floorBps: t.HighBps, level: High, feeBps: f.MaxBps, sizeCap: c.Min},
		// Critical 终止档：无条件拒绝
		{floorBps: t.CriticalBps, level: Critical, feeBps: f.MaxBps, sizeCap: c.Min},
	}
	return &PolicyTable{thresholds: t, rows: rows}, nil
}

// Thresholds 返回表内的阈值配置。
func (p *PolicyTable) Thresholds() Thresholds { return p.thresholds }

// Fee 按档位查费率。
func (p *PolicyTable) Fee(level Level) uint64 {
	switch level {
	case Low:
		return p.rows[0].feeBps
	case Medium:
		return p.rows[1].feeBps
	case High:
		return p.rows[2].feeBps
	default:
		return p.rows[4].feeBps
	}
}

// SizeCeiling 按档位查规模上限。
func (p *PolicyTable) SizeCeiling(level Level) *big.Int {
	switch level {
	case Low:
		return p.rows[0].sizeCap
	case Medium:
		return p.rows[1].sizeCap
	case High:
		return p.rows[2].sizeCap
	default:
		return p.rows[4].sizeCap
	}
}

// Decide 按偏离查档：取 floorBps <= devBps 的最高档。
// 返回档位、费率覆盖与规模上限；Critical 的返回值仅供事件记录。
func (p *PolicyTable) Decide(devBps int64) (Level, uint64, *big.Int) {
	for i := len(p.rows) - 1; i > 0; i-- {
		if devBps >= p.rows[i].floorBps {
			r := p.rows[i]
			return r.level, r.feeBps, r.sizeCap
		}
	}
	r := p.rows[0]
	return r.level, r.feeBps, r.sizeCap
}
