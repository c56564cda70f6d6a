package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/flipbot/config"
	"github.com/alejandrodnm/flipbot/internal/adapters/csqaq"
	"github.com/alejandrodnm/flipbot/internal/adapters/notify"
	"github.com/alejandrodnm/flipbot/internal/adapters/steam"
	"github.com/alejandrodnm/flipbot/internal/adapters/storage"
	"github.com/alejandrodnm/flipbot/internal/domain"
	"github.com/alejandrodnm/flipbot/internal/ports"
	"github.com/alejandrodnm/flipbot/internal/ratelimit"
	"github.com/alejandrodnm/flipbot/internal/scanner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one scan cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full table (default: compact 1-line)")
	history := flag.Duration("history", 0, "print stored opportunities from the last duration (e.g. 24h) and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("flipbot starting",
		"config", *configPath,
		"catalog", cfg.Scanner.Catalog,
		"interval", cfg.ScanInterval(),
		"once", *once,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		printHistory(ctx, store, notifier, *history)
		return
	}

	// El guard de rate se comparte entre ambos fetch clients: un 429 de
	// cualquiera enfría todo el proceso.
	guard := ratelimit.NewGuard(ratelimit.Config{
		CallsPerSecond:  cfg.RateLimit.CallsPerSecond,
		Burst:           cfg.RateLimit.Burst,
		MinInterval:     time.Duration(cfg.RateLimit.MinIntervalMillis) * time.Millisecond,
		InitialCooldown: time.Duration(cfg.RateLimit.InitialCooldownSeconds) * time.Second,
		MaxCooldown:     time.Duration(cfg.RateLimit.MaxCooldownSeconds) * time.Second,
	})

	market := steam.NewClient(cfg.API.PrimaryBase, guard)
	reference := csqaq.NewClient(cfg.API.ReferenceBase, cfg.API.ReferenceKey, guard)

	scanCfg := scanner.DefaultConfig()
	scanCfg.ScanInterval = cfg.ScanInterval()
	scanCfg.Catalog = cfg.Scanner.Catalog
	scanCfg.PageSize = cfg.Scanner.PageSize
	scanCfg.MaxItems = cfg.Scanner.MaxItems
	scanCfg.MaxResults = cfg.Scanner.MaxResults
	scanCfg.Workers = cfg.Scanner.Workers
	scanCfg.Bounds = ports.PriceBounds{Min: cfg.Scanner.MinPriceCents, Max: cfg.Scanner.MaxPriceCents}
	scanCfg.PriceTTL = cfg.PriceTTL()
	scanCfg.HistoryTTL = cfg.HistoryTTL()
	scanCfg.Once = *once
	scanCfg.Filter = scanner.FilterConfig{
		DenyCategories:    cfg.Filter.DenyCategories,
		AllowCategories:   cfg.Filter.AllowCategories,
		PriceFloor:        cfg.Filter.PriceFloorCents,
		MinSalesVolume:    cfg.Filter.MinSalesVolume,
		MinAvgPrice:       cfg.Filter.MinAvgPriceCents,
		BoostPercent:      cfg.Filter.BoostPercent,
		GoodPointsPercent: cfg.Filter.GoodPointsPercent,
		OutlierThreshold:  cfg.Filter.OutlierThreshold,
		MinLiquidityScore: cfg.Filter.MinLiquidityScore,
		MaxTimeToSellDays: cfg.Filter.MaxTimeToSellDays,
	}
	scanCfg.Reference = scanner.ReferenceConfig{
		FeeRate:         cfg.Reference.FeeRate,
		MinProfitMargin: cfg.Reference.MinProfitMargin,
		MinDailyVolume:  cfg.Reference.MinDailyVolume,
	}

	s := scanner.New(scanCfg, market, market, reference, store, notifier)

	if err := s.Run(ctx); err != nil {
		slog.Error("scanner exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("flipbot stopped cleanly")
}

// printHistory imprime las oportunidades persistidas en la ventana dada.
func printHistory(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, window time.Duration) {
	to := time.Now().UTC()
	from := to.Add(-window)

	opps, err := store.GetHistory(ctx, from, to)
	if err != nil {
		slog.Error("failed to read history", "err", err)
		os.Exit(1)
	}

	stats := domain.NewScanStatistics()
	stats.TotalEvaluated = len(opps)
	stats.Passed = len(opps)

	slog.Info("stored opportunities", "window", window, "count", len(opps))
	if err := notifier.Notify(ctx, opps, stats); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
