package main

import (
	"testing"

	"meshmap-live/internal/config"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv(config.EnvAdminAddr, ":9000")
	t.Setenv(config.EnvLogLevel, "warn")
	flags := watchCmd.Flags()
	t.Cleanup(func() {
		for _, name := range []string{"endpoint", "log-level"} {
			f := flags.Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	if err := flags.Set("endpoint", "ws://127.0.0.1:8000/positions/"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := flags.Set("log-level", "debug"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	cfg, err := loadConfig(watchCmd)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Endpoint != "ws://127.0.0.1:8000/positions/" {
		t.Errorf("flag should override endpoint, got %q", cfg.Endpoint)
	}
	if cfg.Admin.Addr != ":9000" {
		t.Errorf("env should set admin addr, got %q", cfg.Admin.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("flag should win over env, got %q", cfg.Logging.Level)
	}
}
