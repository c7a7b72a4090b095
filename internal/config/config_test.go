package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOP_DOMAIN", "example.myshopify.com")
	t.Setenv("CATALOG_API_TOKEN", "shpat_test")
	t.Setenv("NOTIFY_API_KEY", "pk_test")
	t.Setenv("NOTIFY_LIST_ID", "LIST1")
	t.Setenv("STATE_TABLE", "sweep-state")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogAPIVersion != "2024-01" {
		t.Errorf("CatalogAPIVersion = %q", cfg.CatalogAPIVersion)
	}
	if cfg.MetricsNamespace != "RestockSweep" {
		t.Errorf("MetricsNamespace = %q", cfg.MetricsNamespace)
	}
	if cfg.MaxSweepDuration != 600*time.Second {
		t.Errorf("MaxSweepDuration = %v", cfg.MaxSweepDuration)
	}
	if cfg.LockTTL != 900*time.Second {
		t.Errorf("LockTTL = %v", cfg.LockTTL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.SweepSecret != "" || cfg.ReportQueueURL != "" {
		t.Errorf("optional values should default empty: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CATALOG_API_VERSION", "2024-07")
	t.Setenv("MAX_SWEEP_DURATION_SECONDS", "120")
	t.Setenv("LOCK_TTL_SECONDS", "300")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CatalogAPIVersion != "2024-07" {
		t.Errorf("CatalogAPIVersion = %q", cfg.CatalogAPIVersion)
	}
	if cfg.MaxSweepDuration != 2*time.Minute {
		t.Errorf("MaxSweepDuration = %v", cfg.MaxSweepDuration)
	}
	if cfg.LockTTL != 5*time.Minute {
		t.Errorf("LockTTL = %v", cfg.LockTTL)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestLoadBadDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_SWEEP_DURATION_SECONDS", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSweepDuration != 600*time.Second {
		t.Errorf("MaxSweepDuration = %v, want default", cfg.MaxSweepDuration)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	for _, missing := range []string{
		"SHOP_DOMAIN", "CATALOG_API_TOKEN", "NOTIFY_API_KEY", "NOTIFY_LIST_ID", "STATE_TABLE",
	} {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("error %q does not name %s", err, missing)
			}
		})
	}
}
