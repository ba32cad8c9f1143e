package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"stock_go/internal/domain"
)

// Config holds every setting of the engine process.
// LoadConfig reads the YAML file, then applies environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Engine struct {
		MaxRetries     int    `yaml:"max_retries"` // 0 = unbounded
		SymbolPrefix   string `yaml:"symbol_prefix"`
		PreloadSymbols int    `yaml:"preload_symbols"`
		Trace          bool   `yaml:"trace"` // log every engine event at debug level
	} `yaml:"engine"`

	Simulation struct {
		Brokers           int             `yaml:"brokers"`
		Orders            int             `yaml:"orders"` // total, split across brokers
		ActiveInstruments int             `yaml:"active_instruments"`
		MinQty            int64           `yaml:"min_qty"`
		MaxQty            int64           `yaml:"max_qty"`
		MinPrice          decimal.Decimal `yaml:"min_price"`
		MaxPrice          decimal.Decimal `yaml:"max_price"`
		MinThinkMS        int             `yaml:"min_think_ms"`
		MaxThinkMS        int             `yaml:"max_think_ms"`
		Seed              int64           `yaml:"seed"` // 0 = time based
	} `yaml:"simulation"`

	Storage struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"storage"`

	Feed struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		Path    string `yaml:"path"`
	} `yaml:"feed"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		BatchTimeout int      `yaml:"batch_timeout_ms"`
	} `yaml:"kafka"`

	Settlement struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"settlement"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		File  string `yaml:"file"`
	} `yaml:"logging"`

	Debug struct {
		PprofAddr string `yaml:"pprof_addr"` // empty disables pprof
		DumpPath  string `yaml:"dump_path"`  // state dump on consistency failure
	} `yaml:"debug"`
}

// DefaultConfig mirrors configs/config.yaml. Storage, feed and kafka are off.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "stock-engine"
	cfg.App.Version = "0.1.0"

	cfg.Engine.MaxRetries = 100
	cfg.Engine.SymbolPrefix = "STOCK"
	cfg.Engine.PreloadSymbols = domain.MaxInstruments

	cfg.Simulation.Brokers = 8
	cfg.Simulation.Orders = 10000
	cfg.Simulation.ActiveInstruments = domain.MaxInstruments
	cfg.Simulation.MinQty = 1
	cfg.Simulation.MaxQty = 1000
	cfg.Simulation.MinPrice = decimal.NewFromInt(10)
	cfg.Simulation.MaxPrice = decimal.NewFromInt(1000)
	cfg.Simulation.MinThinkMS = 1
	cfg.Simulation.MaxThinkMS = 5

	cfg.Storage.Path = "data/trades.db"

	cfg.Feed.Addr = ":8080"
	cfg.Feed.Path = "/ws/trades"

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = "stock.trades"
	cfg.Kafka.BatchTimeout = 10

	cfg.Settlement.Buffer = 4096

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	cfg.Logging.File = "engine.log"

	cfg.Debug.DumpPath = "logs/engine_dump.json"
	return cfg
}

// LoadConfig reads path over DefaultConfig. A missing file yields an error
// matching domain.ErrConfigNotFound so callers can fall back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Engine.MaxRetries < 0 {
		return &domain.ConfigError{Field: "engine.max_retries", Err: fmt.Errorf("must be >= 0, got %d", c.Engine.MaxRetries)}
	}
	if c.Engine.PreloadSymbols < 0 || c.Engine.PreloadSymbols > domain.MaxInstruments {
		return &domain.ConfigError{Field: "engine.preload_symbols", Err: fmt.Errorf("must be in [0,%d]", domain.MaxInstruments)}
	}

	sim := c.Simulation
	if sim.Brokers <= 0 {
		return &domain.ConfigError{Field: "simulation.brokers", Err: errors.New("must be positive")}
	}
	if sim.Orders < 0 {
		return &domain.ConfigError{Field: "simulation.orders", Err: errors.New("must be >= 0")}
	}
	if sim.ActiveInstruments <= 0 || sim.ActiveInstruments > domain.MaxInstruments {
		return &domain.ConfigError{Field: "simulation.active_instruments", Err: fmt.Errorf("must be in [1,%d]", domain.MaxInstruments)}
	}
	if sim.ActiveInstruments > c.Engine.PreloadSymbols {
		// The driver only trades symbols that were registered at startup.
		return &domain.ConfigError{Field: "simulation.active_instruments", Err: fmt.Errorf("%d exceeds engine.preload_symbols %d", sim.ActiveInstruments, c.Engine.PreloadSymbols)}
	}
	if sim.MinQty <= 0 || sim.MaxQty < sim.MinQty {
		return &domain.ConfigError{Field: "simulation.qty", Err: fmt.Errorf("need 0 < min_qty <= max_qty, got %d..%d", sim.MinQty, sim.MaxQty)}
	}
	if !sim.MinPrice.IsPositive() || sim.MaxPrice.LessThan(sim.MinPrice) {
		return &domain.ConfigError{Field: "simulation.price", Err: fmt.Errorf("need 0 < min_price <= max_price, got %s..%s", sim.MinPrice, sim.MaxPrice)}
	}
	if sim.MinThinkMS < 0 || sim.MaxThinkMS < sim.MinThinkMS {
		return &domain.ConfigError{Field: "simulation.think_ms", Err: fmt.Errorf("need 0 <= min <= max, got %d..%d", sim.MinThinkMS, sim.MaxThinkMS)}
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("required when storage is enabled")}
	}
	if c.Feed.Enabled && (c.Feed.Addr == "" || !strings.HasPrefix(c.Feed.Path, "/")) {
		return &domain.ConfigError{Field: "feed", Err: fmt.Errorf("invalid addr %q or path %q", c.Feed.Addr, c.Feed.Path)}
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return &domain.ConfigError{Field: "kafka", Err: errors.New("brokers and topic are required when kafka is enabled")}
	}
	if c.Settlement.Buffer < 0 {
		return &domain.ConfigError{Field: "settlement.buffer", Err: errors.New("must be >= 0")}
	}
	return nil
}

// ThinkRange returns the simulated broker pause bounds.
func (c *Config) ThinkRange() (time.Duration, time.Duration) {
	return time.Duration(c.Simulation.MinThinkMS) * time.Millisecond,
		time.Duration(c.Simulation.MaxThinkMS) * time.Millisecond
}

// ApplyEnv overwrites settings from environment variables when present.
func ApplyEnv(cfg *Config) {
	if level := os.Getenv("STOCK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if brokers := os.Getenv("STOCK_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
		cfg.Kafka.Enabled = true
	}
	if addr := os.Getenv("STOCK_FEED_ADDR"); addr != "" {
		cfg.Feed.Addr = addr
		cfg.Feed.Enabled = true
	}
	if path := os.Getenv("STOCK_DB_PATH"); path != "" {
		cfg.Storage.Path = path
		cfg.Storage.Enabled = true
	}
}
