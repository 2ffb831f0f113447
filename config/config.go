package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime configuration for the lendledger daemon.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	SeedFile      string `toml:"SeedFile"`

	// GovernancePrincipals lists the principals allowed to mutate protocol
	// parameters. The shared secret authenticating governance requests is
	// read from LENDLEDGER_GOV_SECRET, never from this file.
	GovernancePrincipals []string `toml:"GovernancePrincipals"`

	RateLimitPerMin float64 `toml:"RateLimitPerMin"`
	RateLimitBurst  int     `toml:"RateLimitBurst"`

	Log  LogConfig  `toml:"log"`
	Otel OtelConfig `toml:"otel"`

	Params ParamsConfig `toml:"params"`
}

// LogConfig controls optional rotated file logging.
type LogConfig struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// OtelConfig wires the OTLP exporters.
type OtelConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}

// ParamsConfig sets the protocol parameters applied to a fresh ledger. A
// populated parameter store always wins over this section.
type ParamsConfig struct {
	InterestRateBps         uint64 `toml:"InterestRateBps"`
	CollateralRatioBps      uint64 `toml:"CollateralRatioBps"`
	LiquidationThresholdBps uint64 `toml:"LiquidationThresholdBps"`
	LiquidationBonusBps     uint64 `toml:"LiquidationBonusBps"`
}

const (
	defaultListenAddress   = "0.0.0.0:8645"
	defaultRateLimitPerMin = 600
	defaultRateLimitBurst  = 20
)

// Default returns the configuration applied when no file is supplied.
func Default() Config {
	return Config{
		ListenAddress:   defaultListenAddress,
		RateLimitPerMin: defaultRateLimitPerMin,
		RateLimitBurst:  defaultRateLimitBurst,
	}
}

// Load reads and validates a TOML configuration file, filling unset fields
// with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = defaultListenAddress
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = defaultRateLimitPerMin
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultRateLimitBurst
	}
}

// Validate ensures the configuration is internally consistent.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: listen address required")
	}
	for _, principal := range c.GovernancePrincipals {
		if strings.TrimSpace(principal) == "" {
			return fmt.Errorf("config: blank governance principal")
		}
	}
	if c.Params != (ParamsConfig{}) {
		if c.Params.CollateralRatioBps < 10_000 {
			return fmt.Errorf("config: collateral ratio below 10000 bps")
		}
		if c.Params.LiquidationThresholdBps >= c.Params.CollateralRatioBps {
			return fmt.Errorf("config: liquidation threshold must be below collateral ratio")
		}
		if c.Params.LiquidationBonusBps < 10_000 {
			return fmt.Errorf("config: liquidation bonus below 10000 bps")
		}
	}
	return nil
}

// HasParams reports whether the params section was configured.
func (c Config) HasParams() bool {
	return c.Params != (ParamsConfig{})
}
