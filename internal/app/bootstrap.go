package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/engine"
	"stock_go/internal/event"
	"stock_go/internal/infra"
	"stock_go/internal/infra/feed"
	"stock_go/internal/infra/kafka"
	"stock_go/internal/infra/storage"
	"stock_go/internal/service"
	"stock_go/internal/simulation"
	"stock_go/pkg/quant"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config     *infra.Config
	Logger     *slog.Logger
	Metrics    *infra.Metrics
	Engine     *engine.Engine
	Symbols    *engine.SymbolTable
	Storage    *storage.Storage
	Feed       *feed.Hub
	Producer   *kafka.Producer
	Settlement *service.Settlement
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize loads config and wires every component. Nothing runs yet.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if errors.Is(err, domain.ErrConfigNotFound) {
		cfg = infra.DefaultConfig()
		infra.ApplyEnv(cfg)
		err = cfg.Validate()
	}
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	slog.Info("🚀 Bootstrapping stock engine...", slog.String("config", b.ConfigPath), slog.String("version", cfg.App.Version))

	// 3. Engine + symbols
	b.Metrics = infra.GlobalMetrics
	sinks := event.MultiSink{b.Metrics}
	if cfg.Engine.Trace {
		sinks = append(sinks, infra.NewTracer(b.Logger))
	}
	event.Warmup()
	b.Engine = engine.NewEngine(engine.Options{
		MaxRetries: cfg.Engine.MaxRetries,
		Sink:       sinks,
	})
	b.Symbols = engine.NewSymbolTable(cfg.Engine.SymbolPrefix, cfg.Engine.PreloadSymbols)
	slog.Info("✅ Engine ready", slog.Int("books", engine.MaxInstruments), slog.Int("symbols", b.Symbols.Bound()))

	// 4. Trade sinks
	var tradeSinks []domain.TradeSink
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		tradeSinks = append(tradeSinks, store)
		slog.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))
	}
	if cfg.Feed.Enabled {
		b.Feed = feed.NewHub(b.Logger, b.Metrics)
		tradeSinks = append(tradeSinks, b.Feed)
	}
	if cfg.Kafka.Enabled {
		b.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic,
			time.Duration(cfg.Kafka.BatchTimeout)*time.Millisecond)
		tradeSinks = append(tradeSinks, b.Producer)
		slog.Info("✅ Kafka producer ready", slog.String("topic", cfg.Kafka.Topic))
	}

	// 5. Settlement
	b.Settlement = service.NewSettlement(b.Symbols, b.Logger, b.Metrics, cfg.Settlement.Buffer, tradeSinks...)
	return nil
}

// Start launches background processing.
func (b *Bootstrap) Start(ctx context.Context) {
	b.Settlement.Start(ctx)
}

// SimulationConfig converts the simulation section for the driver.
func (b *Bootstrap) SimulationConfig() simulation.Config {
	sim := b.Config.Simulation
	minThink, maxThink := b.Config.ThinkRange()
	return simulation.Config{
		Brokers:           sim.Brokers,
		Orders:            sim.Orders,
		ActiveInstruments: sim.ActiveInstruments,
		MinQty:            sim.MinQty,
		MaxQty:            sim.MaxQty,
		MinPrice:          quant.ToPriceTicks(sim.MinPrice),
		MaxPrice:          quant.ToPriceTicks(sim.MaxPrice),
		MinThink:          minThink,
		MaxThink:          maxThink,
		Seed:              uint64(sim.Seed),
	}
}

// NewDriver builds a simulation driver on the wired engine.
func (b *Bootstrap) NewDriver() *simulation.Driver {
	return simulation.NewDriver(b.Engine, b.Symbols, b.Settlement, b.SimulationConfig(), b.Logger)
}

// Close drains settlement and releases every sink.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Settlement != nil {
		b.Settlement.Close()
	}
	if b.Producer != nil {
		errs = append(errs, b.Producer.Close())
	}
	if b.Feed != nil {
		errs = append(errs, b.Feed.Close())
	}
	if b.Storage != nil {
		errs = append(errs, b.Storage.Close())
	}
	return errors.Join(errs...)
}
