package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stock_go/internal/app"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(*configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Pprof Server (for performance profiling)
	if cfg.Debug.PprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", cfg.Debug.PprofAddr))
			if err := http.ListenAndServe(cfg.Debug.PprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 4. Live trade feed
	var feedServer *http.Server
	if bootstrap.Feed != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Feed.Path, bootstrap.Feed)
		feedServer = &http.Server{Addr: cfg.Feed.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("📡 Trade feed listening", slog.String("addr", cfg.Feed.Addr), slog.String("path", cfg.Feed.Path))
			if err := feedServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Trade feed failed", slog.Any("error", err))
			}
		}()
	}

	bootstrap.Start(ctx)

	// 5. Run the simulated brokers
	slog.InfoContext(ctx, "✨ Starting trading simulation",
		slog.Int("brokers", cfg.Simulation.Brokers),
		slog.Int("orders", cfg.Simulation.Orders))

	report, err := bootstrap.NewDriver().Run(ctx)
	if err != nil {
		slog.Warn("Simulation interrupted", slog.Any("error", err))
	}

	// 6. Drain settlement and release sinks
	if feedServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := feedServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Trade feed shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
	if err := bootstrap.Close(); err != nil {
		slog.Error("Shutdown error", slog.Any("error", err))
	}

	stats := bootstrap.Settlement.Stats()
	metrics := bootstrap.Metrics.Snapshot()
	slog.Info("📊 Simulation complete",
		slog.Int64("submitted", report.Submitted),
		slog.Int64("accepted", report.Accepted),
		slog.Int64("rejected", report.Rejected),
		slog.Int64("contention", report.Contention),
		slog.Int64("trades", stats.TotalTrades),
		slog.Int64("traded_qty", stats.TotalQuantity),
		slog.Uint64("retries", metrics.Retries),
		slog.Duration("elapsed", report.Elapsed))
	if stats.TotalTrades > 0 {
		slog.Info("💹 Trade summary",
			slog.String("avg_price", stats.AveragePrice.StringFixed(2)),
			slog.String("vwap", stats.VWAP.StringFixed(2)),
			slog.String("most_active", stats.MostActiveSymbol),
			slog.Int64("most_active_qty", stats.MostActiveQty))
	}

	// 7. Post-mortem on consistency failure
	if report.Consistency != nil {
		slog.Error("❌ Engine consistency failure", slog.Any("error", report.Consistency))
		if err := dumpState(bootstrap, cfg.Debug.DumpPath); err != nil {
			slog.Error("State dump failed", slog.Any("error", err))
		}
		os.Exit(2)
	}
	if err := bootstrap.Engine.Verify(); err != nil {
		slog.Error("❌ Book verification failed", slog.Any("error", err))
		os.Exit(2)
	}

	slog.Info("👋 Shutdown complete")
}

func dumpState(b *app.Bootstrap, path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := b.Engine.DumpState(f); err != nil {
		return err
	}
	slog.Info("State dumped", slog.String("path", path))
	return nil
}
