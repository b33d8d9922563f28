package config

import (
	"testing"
	"time"
)

func TestConfigLoad_Defaults(t *testing.T) {
	t.Setenv("LOOKUP_BOT_DB_DRIVER", "")
	t.Setenv("LOOKUP_BOT_POSTGRES_DSN", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.SQLitePath != "data/lookup.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
	if cfg.LookupTimeout != 15*time.Second {
		t.Fatalf("unexpected lookup timeout: %s", cfg.LookupTimeout)
	}
	if cfg.OpsAddr != "" {
		t.Fatalf("ops listener should be disabled by default, got %q", cfg.OpsAddr)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	t.Setenv("LOOKUP_BOT_LOOKUP_TIMEOUT", "3s")
	t.Setenv("LOOKUP_BOT_BOT_USERNAME", "NumberBot")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.LookupTimeout != 3*time.Second {
		t.Fatalf("lookup timeout override failed, got %s", cfg.LookupTimeout)
	}
	if got := cfg.ReferralLink("REF42"); got != "https://t.me/NumberBot?start=REF42" {
		t.Fatalf("referral link = %s", got)
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg := NewForTesting()
	cfg.DBDriver = "auto"
	cfg.PostgresDSN = "postgres://localhost/lookup"
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("auto driver with DSN should resolve to postgres, got %s", cfg.DBDriver)
	}

	cfg = NewForTesting()
	cfg.DBDriver = "postgres"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for postgres without DSN")
	}

	cfg = NewForTesting()
	cfg.DBDriver = "mysql"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}

	cfg = NewForTesting()
	cfg.Shards = 0
	cfg.SendRate = -1
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Shards != 8 || cfg.SendRate != 25 {
		t.Fatalf("clamping failed: shards=%d rate=%v", cfg.Shards, cfg.SendRate)
	}
}
