package config

import (
	"os"
	"testing"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	os.Setenv("MAX_LATEX_RUNS", "7")
	os.Setenv("RATE_LIMIT_ENABLED", "true")
	os.Setenv("RATE_LIMIT_RPS", "9")
	os.Setenv("RATE_LIMIT_BURST", "30")
	defer func() {
		os.Unsetenv("MAX_LATEX_RUNS")
		os.Unsetenv("RATE_LIMIT_ENABLED")
		os.Unsetenv("RATE_LIMIT_RPS")
		os.Unsetenv("RATE_LIMIT_BURST")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Compile.MaxLatexRuns != 7 {
		t.Fatalf("expected MaxLatexRuns=7, got %d", cfg.Compile.MaxLatexRuns)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 9 || cfg.RateLimit.Burst != 30 {
		t.Fatalf("rate limit not loaded correctly: %+v", cfg.RateLimit)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("expected default storage backend 'memory', got %q", cfg.Storage.Backend)
	}
}
