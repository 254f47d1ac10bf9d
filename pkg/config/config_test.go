package config

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}

	if cfg.CheckInterval != 10*time.Minute {
		t.Errorf("CheckInterval = %v, want 10m", cfg.CheckInterval)
	}
	if cfg.MinCheckInterval != 5*time.Minute {
		t.Errorf("MinCheckInterval = %v, want 5m", cfg.MinCheckInterval)
	}
	if cfg.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.BatchSize)
	}
	if cfg.BatchPauseMin != 800*time.Millisecond || cfg.BatchPauseMax != 2800*time.Millisecond {
		t.Errorf("batch pause = [%v, %v], want [800ms, 2.8s]", cfg.BatchPauseMin, cfg.BatchPauseMax)
	}
	if cfg.DomainMinDelay != 2*time.Second {
		t.Errorf("DomainMinDelay = %v, want 2s", cfg.DomainMinDelay)
	}
	if cfg.StaticFetchTimeout != 10*time.Second {
		t.Errorf("StaticFetchTimeout = %v, want 10s", cfg.StaticFetchTimeout)
	}
	if !cfg.RenderEnabled {
		t.Error("RenderEnabled should default to true")
	}
	want := []string{"amazon.", "noon.com", "aliexpress.", "temu.com"}
	if !reflect.DeepEqual(cfg.RenderOnlyDomains, want) {
		t.Errorf("RenderOnlyDomains = %v, want %v", cfg.RenderOnlyDomains, want)
	}
	if cfg.ProxyURLs != nil {
		t.Errorf("ProxyURLs = %v, want none", cfg.ProxyURLs)
	}
	if cfg.EmailProvider != "mock" {
		t.Errorf("EmailProvider = %q, want mock", cfg.EmailProvider)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BATCH_SIZE", "5")
	t.Setenv("CHECK_INTERVAL", "90s")
	t.Setenv("PROXY_URLS", "http://p1:8080, http://p2:8080")
	t.Setenv("RENDER_ENABLED", "false")

	cfg, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load() error: %v", err)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.BatchSize)
	}
	if cfg.CheckInterval != 90*time.Second {
		t.Errorf("CheckInterval = %v, want 90s", cfg.CheckInterval)
	}
	if want := []string{"http://p1:8080", "http://p2:8080"}; !reflect.DeepEqual(cfg.ProxyURLs, want) {
		t.Errorf("ProxyURLs = %v, want %v", cfg.ProxyURLs, want)
	}
	if cfg.RenderEnabled {
		t.Error("RenderEnabled should be false")
	}
}

func TestLoadRejectsNonPositiveSettings(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CHECK_INTERVAL", "0s"},
		{"CHECK_INTERVAL", "-5m"},
		{"STATIC_FETCH_TIMEOUT", "0"},
		{"RENDER_TIMEOUT", "-1s"},
		{"BATCH_SIZE", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := load(viper.New(), filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Errorf("load() with %s=%s error = nil, want error", tt.key, tt.value)
			}
		})
	}
}
