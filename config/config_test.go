package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
DataDir = "/var/lib/lendledger"
GovernancePrincipals = ["ops@ledger"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:8645" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.RateLimitPerMin != 600 || cfg.RateLimitBurst != 20 {
		t.Fatalf("rate limit defaults = %v/%v", cfg.RateLimitPerMin, cfg.RateLimitBurst)
	}
	if cfg.DataDir != "/var/lib/lendledger" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.HasParams() {
		t.Fatal("params reported present without a params section")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
ListenAddress = "127.0.0.1:9000"
Environment = "staging"
SeedFile = "seed.yaml"
GovernancePrincipals = ["ops@ledger", "risk@ledger"]
RateLimitPerMin = 120.0
RateLimitBurst = 5

[log]
File = "/var/log/lendledger.log"
MaxSizeMB = 64

[otel]
Endpoint = "collector:4318"
Insecure = true
Metrics = true

[params]
InterestRateBps = 750
CollateralRatioBps = 16000
LiquidationThresholdBps = 13000
LiquidationBonusBps = 11000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.Environment != "staging" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.GovernancePrincipals) != 2 {
		t.Fatalf("principals = %v", cfg.GovernancePrincipals)
	}
	if cfg.Log.File != "/var/log/lendledger.log" || cfg.Log.MaxSizeMB != 64 {
		t.Fatalf("log section = %+v", cfg.Log)
	}
	if !cfg.Otel.Metrics || !cfg.Otel.Insecure || cfg.Otel.Endpoint != "collector:4318" {
		t.Fatalf("otel section = %+v", cfg.Otel)
	}
	if !cfg.HasParams() || cfg.Params.InterestRateBps != 750 {
		t.Fatalf("params section = %+v", cfg.Params)
	}
}

func TestLoadRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ratio below unity", `
[params]
InterestRateBps = 500
CollateralRatioBps = 9000
LiquidationThresholdBps = 8000
LiquidationBonusBps = 10500
`},
		{"threshold at ratio", `
[params]
InterestRateBps = 500
CollateralRatioBps = 15000
LiquidationThresholdBps = 15000
LiquidationBonusBps = 10500
`},
		{"bonus below unity", `
[params]
InterestRateBps = 500
CollateralRatioBps = 15000
LiquidationThresholdBps = 12500
LiquidationBonusBps = 9000
`},
		{"blank principal", `GovernancePrincipals = ["ops@ledger", "  "]`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("invalid config accepted")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("missing file accepted")
	}
}
