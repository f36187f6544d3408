// Package config loads and validates the guard daemon's YAML
// configuration and watches it for changes.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"depeg-guard-go/guard"
	"depeg-guard-go/risk"
)

// GuardConfig 主运行时配置。
type GuardConfig struct {
	Env      string        `yaml:"env"`
	Risk     RiskConfig    `yaml:"risk"`
	Fees     FeeConfig     `yaml:"fees"`
	SizeCaps SizeCapConfig `yaml:"sizeCaps"`
	TWAP     TWAPConfig    `yaml:"twap"`
	Feed     FeedConfig    `yaml:"feed"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Alerts   AlertConfig   `yaml:"alerts"`
	Logger   LoggerConfig  `yaml:"logger"`
}

// RiskConfig 偏离分级阈值（bps），必须严格递增。
type RiskConfig struct {
	LowBps      int64 `yaml:"lowBps"`
	MediumBps   int64 `yaml:"mediumBps"`
	HighBps     int64 `yaml:"highBps"`
	CriticalBps int64 `yaml:"criticalBps"`
}

// FeeConfig 各档费率（bps），必须严格递增。
type FeeConfig struct {
	BaseBps   uint64 `yaml:"baseBps"`
	MediumBps uint64 `yaml:"mediumBps"`
	HighBps   uint64 `yaml:"highBps"`
	MaxBps    uint64 `yaml:"maxBps"`
}

// SizeCapConfig 各档规模上限，基础单位十进制字符串（可超 int64）。
type SizeCapConfig struct {
	Base   string `yaml:"base"`
	Medium string `yaml:"medium"`
	High   string `yaml:"high"`
	Min    string `yaml:"min"`
}

type TWAPConfig struct {
	WindowSeconds int64 `yaml:"windowSeconds"`
	Capacity      int   `yaml:"capacity"`
}

type FeedConfig struct {
	Endpoint         string `yaml:"endpoint"`
	Pair             string `yaml:"pair"`
	FreshnessSeconds int64  `yaml:"freshnessSeconds"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type AlertConfig struct {
	ThrottleInterval string `yaml:"throttleInterval"`
}

type LoggerConfig struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	Outputs    []string `yaml:"outputs"`
	OutputFile string   `yaml:"outputFile"`
}

// Load reads YAML config from path and applies fail-fast validation.
func Load(path string) (GuardConfig, error) {
	var cfg GuardConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides the feed endpoint
// from env vars if present.
func LoadWithEnvOverrides(path string) (GuardConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("DG_FEED_ENDPOINT"); v != "" {
		cfg.Feed.Endpoint = v
	}
	if v := os.Getenv("DG_FEED_PAIR"); v != "" {
		cfg.Feed.Pair = v
	}
	return cfg, Validate(cfg)
}

// Validate 校验配置形状。任何错误直接失败，绝不静默修正。
func Validate(cfg GuardConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if err := cfg.Risk.thresholds().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := cfg.Fees.schedule().Validate(); err != nil {
		return fmt.Errorf("fees: %w", err)
	}
	caps, err := cfg.SizeCaps.caps()
	if err != nil {
		return fmt.Errorf("sizeCaps: %w", err)
	}
	if err := caps.Validate(); err != nil {
		return fmt.Errorf("sizeCaps: %w", err)
	}
	if cfg.TWAP.WindowSeconds <= 0 {
		return errors.New("twap.windowSeconds must be > 0")
	}
	if cfg.TWAP.Capacity <= 0 {
		return errors.New("twap.capacity must be > 0")
	}
	if cfg.Feed.FreshnessSeconds < 0 {
		return errors.New("feed.freshnessSeconds must be >= 0")
	}
	if cfg.Alerts.ThrottleInterval != "" {
		if _, err := time.ParseDuration(cfg.Alerts.ThrottleInterval); err != nil {
			return fmt.Errorf("alerts.throttleInterval: %w", err)
		}
	}
	return nil
}

// Thresholds 转换为分级阈值。
func (r RiskConfig) Thresholds() risk.Thresholds { return r.thresholds() }

func (r RiskConfig) thresholds() risk.Thresholds {
	return risk.Thresholds{
		LowBps:      r.LowBps,
		MediumBps:   r.MediumBps,
		HighBps:     r.HighBps,
		CriticalBps: r.CriticalBps,
	}
}

// Schedule 转换为费率表。
func (f FeeConfig) Schedule() risk.FeeSchedule { return f.schedule() }

func (f FeeConfig) schedule() risk.FeeSchedule {
	return risk.FeeSchedule{
		BaseBps:   f.BaseBps,
		MediumBps: f.MediumBps,
		HighBps:   f.HighBps,
		MaxBps:    f.MaxBps,
	}
}

// Caps 解析并转换规模上限。
func (s SizeCapConfig) Caps() (risk.SizeCaps, error) { return s.caps() }

func (s SizeCapConfig) caps() (risk.SizeCaps, error) {
	var caps risk.SizeCaps
	var err error
	if caps.Base, err = parseSize("base", s.Base); err != nil {
		return caps, err
	}
	if caps.Medium, err = parseSize("medium", s.Medium); err != nil {
		return caps, err
	}
	if caps.High, err = parseSize("high", s.High); err != nil {
		return caps, err
	}
	if caps.Min, err = parseSize("min", s.Min); err != nil {
		return caps, err
	}
	return caps, nil
}

// EngineConfig 转换为引擎配置。
func (cfg GuardConfig) EngineConfig() guard.Config {
	return guard.Config{
		WindowSeconds: cfg.TWAP.WindowSeconds,
		Capacity:      cfg.TWAP.Capacity,
		Freshness:     time.Duration(cfg.Feed.FreshnessSeconds) * time.Second,
	}
}

func parseSize(field, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid decimal size %q", field, raw)
	}
	return v, nil
}
