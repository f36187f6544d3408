package main

import (
	"flag"
	"fmt"
	"math/big"
	"math/rand"

	"depeg-guard-go/feed"
	"depeg-guard-go/guard"
	"depeg-guard-go/risk"
	"depeg-guard-go/sim"
)

// 一个极简的本地回放：合成参考价路径，驱动评估与观察链路。
// 可通过命令行参数调整阈值与规模；确定性种子下结果可复现。
func main() {
	pool := flag.String("pool", "sim-pool", "pool identifier")
	steps := flag.Int("steps", 20, "number of steps to replay")
	seed := flag.Int64("seed", 1, "random seed (same seed, same path)")
	driftBps := flag.Float64("driftBps", 15, "stddev of reference drift per step in bps")
	tradeSize := flag.Int64("tradeSize", 10_000, "proposed size per step")
	window := flag.Int64("window", 600, "twap window seconds")
	lowBps := flag.Int64("lowBps", 10, "risk: low threshold")
	mediumBps := flag.Int64("mediumBps", 50, "risk: medium threshold")
	highBps := flag.Int64("highBps", 100, "risk: high threshold")
	criticalBps := flag.Int64("criticalBps", 200, "risk: critical threshold")
	flag.Parse()

	priceFeed := feed.NewStatic()
	engine, err := guard.New(guard.Config{WindowSeconds: *window, Capacity: 256},
		risk.Thresholds{LowBps: *lowBps, MediumBps: *mediumBps, HighBps: *highBps, CriticalBps: *criticalBps},
		risk.FeeSchedule{BaseBps: 30, MediumBps: 500, HighBps: 1000, MaxBps: 3000},
		risk.SizeCaps{
			Base:   big.NewInt(1_000_000),
			Medium: big.NewInt(200_000),
			High:   big.NewInt(50_000),
			Min:    big.NewInt(10_000),
		},
		priceFeed, nil)
	if err != nil {
		fmt.Printf("engine init failed: %v\n", err)
		return
	}

	runner := &sim.Runner{Pool: guard.PoolID(*pool), Engine: engine, Feed: priceFeed}

	rng := rand.New(rand.NewSource(*seed))
	script := make([]sim.Step, 0, *steps)
	t0 := int64(1_700_000_000)
	refMilli := int64(1000) // 1.000 起步
	for i := 0; i < *steps; i++ {
		refMilli += int64(rng.NormFloat64() * *driftBps / 10) // bps → milli
		if refMilli < 1 {
			refMilli = 1
		}
		script = append(script, sim.Step{
			Timestamp:      t0 + int64(i)*60,
			ReferencePrice: new(big.Int).Mul(big.NewInt(refMilli), big.NewInt(1_000_000_000_000_000)),
			PoolTick:       0,
			TradeSize:      big.NewInt(*tradeSize),
			Direction:      guard.Buy,
		})
	}

	results, err := runner.Run(script)
	if err != nil {
		fmt.Printf("replay failed: %v\n", err)
		return
	}

	admitted := 0
	for i, res := range results {
		if res.Err != nil {
			fmt.Printf("step %2d ref=%s dev=%dbps level=%s rejected: %v\n",
				i, res.Step.ReferencePrice, res.Decision.DeviationBps, res.Decision.Level, res.Err)
			continue
		}
		admitted++
		fmt.Printf("step %2d ref=%s dev=%dbps level=%s fee=%dbps cap=%s\n",
			i, res.Step.ReferencePrice, res.Decision.DeviationBps, res.Decision.Level,
			res.Decision.FeeBps, res.Decision.SizeCeiling)
	}
	fmt.Printf("admitted %d/%d, observations=%d\n", admitted, len(results), engine.ObservationCount(runner.Pool))
}
