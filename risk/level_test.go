package risk

import (
	"errors"
	"testing"
)

var testThresholds = Thresholds{LowBps: 10, MediumBps: 50, HighBps: 100, CriticalBps: 200}

func TestThresholdsValidate(t *testing.T) {
	if err := testThresholds.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	bad := []Thresholds{
		{LowBps: 50, MediumBps: 50, HighBps: 100, CriticalBps: 200}, // 相等
		{LowBps: 60, MediumBps: 50, HighBps: 100, CriticalBps: 200}, // 乱序
		{LowBps: -1, MediumBps: 50, HighBps: 100, CriticalBps: 200},
	}
	for i, th := range bad {
		if err := th.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}

func TestClassifyBands(t *testing.T) {
	cases := []struct {
		dev  int64
		want Level
	}{
		{0, Low},
		{9, Low},
		{10, Medium}, // 等于阈值归上档
		{30, Medium},
		{49, Medium},
		{50, High},
		{99, High},
		{100, High}, // high 阈值仍是 High，策略表内升级
		{199, High},
		{200, Critical},
		{250, Critical},
		{MaxDeviationBps, Critical},
	}
	for _, c := range cases {
		if got := Classify(c.dev, testThresholds); got != c.want {
			t.Fatalf("classify(%d) = %v, want %v", c.dev, got, c.want)
		}
	}
}

// 偏离增大档位绝不回落。
func TestClassifyMonotonic(t *testing.T) {
	prev := Low
	for dev := int64(0); dev <= 300; dev++ {
		got := Classify(dev, testThresholds)
		if got < prev {
			t.Fatalf("classify(%d) = %v below previous %v", dev, got, prev)
		}
		prev = got
	}
}
