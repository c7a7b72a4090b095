// Package config provides runtime configuration values for the service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all knobs the sweep and its HTTP surface need. Missing
// required credentials abort startup before any work happens.
type Config struct {
	ShopDomain        string
	CatalogToken      string
	CatalogAPIVersion string

	NotifyAPIKey string
	NotifyListID string

	StateTable string

	ReportQueueURL   string // optional; no report publishing when empty
	MetricsNamespace string

	SweepSecret      string // optional; trigger auth disabled when empty
	MaxSweepDuration time.Duration
	LockTTL          time.Duration

	HTTPAddr string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durenvs(key string, defSec int) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return time.Duration(defSec) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(defSec) * time.Second
	}
	return time.Duration(n) * time.Second
}

// Load collects configuration from environment with defaults, erroring on
// any missing required value.
func Load() (*Config, error) {
	cfg := &Config{
		ShopDomain:        os.Getenv("SHOP_DOMAIN"),
		CatalogToken:      os.Getenv("CATALOG_API_TOKEN"),
		CatalogAPIVersion: getenv("CATALOG_API_VERSION", "2024-01"),
		NotifyAPIKey:      os.Getenv("NOTIFY_API_KEY"),
		NotifyListID:      os.Getenv("NOTIFY_LIST_ID"),
		StateTable:        os.Getenv("STATE_TABLE"),
		ReportQueueURL:    os.Getenv("REPORT_QUEUE_URL"),
		MetricsNamespace:  getenv("METRICS_NAMESPACE", "RestockSweep"),
		SweepSecret:       os.Getenv("SWEEP_SECRET"),
		MaxSweepDuration:  durenvs("MAX_SWEEP_DURATION_SECONDS", 600),
		LockTTL:           durenvs("LOCK_TTL_SECONDS", 900),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
	}

	required := map[string]string{
		"SHOP_DOMAIN":       cfg.ShopDomain,
		"CATALOG_API_TOKEN": cfg.CatalogToken,
		"NOTIFY_API_KEY":    cfg.NotifyAPIKey,
		"NOTIFY_LIST_ID":    cfg.NotifyListID,
		"STATE_TABLE":       cfg.StateTable,
	}
	for name, v := range required {
		if v == "" {
			return nil, fmt.Errorf("missing required environment variable %s", name)
		}
	}
	return cfg, nil
}
