package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"depeg-guard-go/config"
	"depeg-guard-go/feed"
	"depeg-guard-go/guard"
	"depeg-guard-go/infrastructure/alert"
	"depeg-guard-go/infrastructure/logger"
	"depeg-guard-go/monitor"
	"depeg-guard-go/posttrade"
)

func main() {
	cfgPath := flag.String("config", "configs/guard.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，空则用配置值")
	dryRun := flag.Bool("dryRun", false, "不连接喂价端，仅启动引擎与指标")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Outputs:    cfg.Logger.Outputs,
		OutputFile: cfg.Logger.OutputFile,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	throttle := 5 * time.Minute
	if cfg.Alerts.ThrottleInterval != "" {
		throttle, _ = time.ParseDuration(cfg.Alerts.ThrottleInterval)
	}
	alerts := alert.NewManager([]alert.Channel{
		alert.NewLogChannel("stderr", os.Stderr),
	}, throttle)

	metrics := monitor.New(monitor.DefaultConfig())
	episodes := posttrade.NewAnalyzer()

	var priceFeed feed.ReferenceFeed
	var wsFeed *feed.WS
	if *dryRun {
		priceFeed = feed.NewStatic()
	} else {
		wsFeed = feed.NewWS(cfg.Feed.Endpoint, cfg.Feed.Pair)
		priceFeed = wsFeed
	}

	caps, err := cfg.SizeCaps.Caps()
	if err != nil {
		log.Fatalf("解析规模上限失败: %v", err)
	}
	engine, err := guard.New(cfg.EngineConfig(),
		cfg.Risk.Thresholds(), cfg.Fees.Schedule(), caps,
		priceFeed,
		guard.MultiSink{Sinks: []guard.EventSink{
			guard.LoggerSink{Log: zlog},
			metrics,
			episodes,
			guard.AlertSink{Manager: alerts},
		}})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		go serveHTTP(addr, &server{engine: engine, episodes: episodes}, metrics, zlog)
	}

	if wsFeed != nil {
		go feedLoop(ctx, wsFeed, zlog)
	}

	watcher, err := config.NewWatcher(*cfgPath, config.DefaultWatchConfig(),
		func(next config.GuardConfig) {
			zlog.Info("config_reloaded", zap.String("env", next.Env))
		},
		func(err error) {
			zlog.LogError(err, nil)
		})
	if err != nil {
		log.Fatalf("初始化配置监听失败: %v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		log.Fatalf("启动配置监听失败: %v", err)
	}
	defer watcher.Stop()

	// systemd 集成：就绪通知 + watchdog 保活（非 systemd 环境下为 no-op）
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go watchdogLoop(ctx, interval)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
}

// feedLoop 保持喂价连接，断开后退避重连。
func feedLoop(ctx context.Context, ws *feed.WS, zlog *logger.Logger) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		err := ws.Run()
		if err != nil {
			zlog.LogError(err, map[string]interface{}{"endpoint": ws.Endpoint})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func watchdogLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func serveHTTP(addr string, srv *server, m *monitor.Monitor, zlog *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv.register(mux)
	if err := http.ListenAndServe(addr, mux); err != nil {
		zlog.LogError(err, map[string]interface{}{"addr": addr})
	}
}
