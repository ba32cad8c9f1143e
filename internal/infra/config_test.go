package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"stock_go/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  max_retries: 7
simulation:
  brokers: 2
  min_price: "12.50"
  max_price: "99.99"
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Engine.MaxRetries != 7 || cfg.Simulation.Brokers != 2 {
		t.Errorf("engine/simulation not applied: %+v %+v", cfg.Engine, cfg.Simulation)
	}
	if !cfg.Simulation.MinPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("min_price = %s", cfg.Simulation.MinPrice)
	}
	if cfg.Simulation.Orders != 10000 || cfg.Engine.SymbolPrefix != "STOCK" {
		t.Errorf("defaults lost: orders %d prefix %q", cfg.Simulation.Orders, cfg.Engine.SymbolPrefix)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfig_RejectsUnregisteredInstruments(t *testing.T) {
	path := writeConfig(t, `
engine:
  preload_symbols: 0
simulation:
  active_instruments: 4
`)

	_, err := LoadConfig(path)
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if cfgErr.Field != "simulation.active_instruments" {
		t.Errorf("field = %q, want simulation.active_instruments", cfgErr.Field)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STOCK_LOG_LEVEL", "warn")
	t.Setenv("STOCK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STOCK_DB_PATH", "/tmp/x.db")

	cfg, err := LoadConfig(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Path != "/tmp/x.db" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }, "engine.max_retries"},
		{"too many symbols", func(c *Config) { c.Engine.PreloadSymbols = domain.MaxInstruments + 1 }, "engine.preload_symbols"},
		{"no brokers", func(c *Config) { c.Simulation.Brokers = 0 }, "simulation.brokers"},
		{"instruments past capacity", func(c *Config) { c.Simulation.ActiveInstruments = domain.MaxInstruments + 1 }, "simulation.active_instruments"},
		{"instruments without symbols", func(c *Config) { c.Engine.PreloadSymbols = 10 }, "simulation.active_instruments"},
		{"inverted qty", func(c *Config) { c.Simulation.MinQty, c.Simulation.MaxQty = 10, 5 }, "simulation.qty"},
		{"zero price", func(c *Config) { c.Simulation.MinPrice = decimal.Zero }, "simulation.price"},
		{"inverted think", func(c *Config) { c.Simulation.MinThinkMS, c.Simulation.MaxThinkMS = 5, 1 }, "simulation.think_ms"},
		{"storage without path", func(c *Config) { c.Storage.Enabled, c.Storage.Path = true, "" }, "storage.path"},
		{"feed bad path", func(c *Config) { c.Feed.Enabled, c.Feed.Path = true, "ws" }, "feed"},
		{"kafka without topic", func(c *Config) { c.Kafka.Enabled, c.Kafka.Topic = true, "" }, "kafka"},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
