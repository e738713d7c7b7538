package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", cfg.Symbol)
	}
	if cfg.Timeframe != "1w" {
		t.Errorf("Timeframe = %q, want 1w", cfg.Timeframe)
	}
	if cfg.DataSource != "binance" {
		t.Errorf("DataSource = %q, want binance", cfg.DataSource)
	}
	if cfg.MinConfidence != 0.5 {
		t.Errorf("MinConfidence = %v, want 0.5", cfg.MinConfidence)
	}
	if cfg.SignalTimeoutHours != 168 {
		t.Errorf("SignalTimeoutHours = %v, want 168", cfg.SignalTimeoutHours)
	}
	if cfg.MinBodyRatio != 0.6 {
		t.Errorf("MinBodyRatio = %v, want 0.6", cfg.MinBodyRatio)
	}
	if cfg.MinEngulfmentRatio != 1.1 {
		t.Errorf("MinEngulfmentRatio = %v, want 1.1", cfg.MinEngulfmentRatio)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "ETHUSDT")
	t.Setenv("MIN_CONFIDENCE", "0.7")
	t.Setenv("SIGNAL_TIMEOUT_HOURS", "24")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Symbol != "ETHUSDT" {
		t.Errorf("Symbol = %q, want ETHUSDT", cfg.Symbol)
	}
	if cfg.MinConfidence != 0.7 {
		t.Errorf("MinConfidence = %v, want 0.7", cfg.MinConfidence)
	}
	if cfg.SignalTimeoutHours != 24 {
		t.Errorf("SignalTimeoutHours = %v, want 24", cfg.SignalTimeoutHours)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MIN_CONFIDENCE", "not-a-float")
	t.Setenv("CACHE_TTL", "not-an-int")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MinConfidence != 0.5 {
		t.Errorf("MinConfidence = %v, want 0.5 fallback", cfg.MinConfidence)
	}
	if cfg.CacheTTL != 3600 {
		t.Errorf("CacheTTL = %v, want 3600 fallback", cfg.CacheTTL)
	}
}

func TestDatabaseConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.DatabaseConfigured() {
		t.Error("empty config must not report a configured database")
	}

	cfg.DBHost = "localhost"
	cfg.DBUser = "btct"
	cfg.DBName = "btct"
	if !cfg.DatabaseConfigured() {
		t.Error("host+user+name must report a configured database")
	}
}
