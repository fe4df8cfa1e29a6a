package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
		},
		{
			name:  "single service - dispatcher",
			input: "dispatcher",
			expected: map[ServiceMode]bool{
				ServiceModeDispatcher: true,
			},
		},
		{
			name:  "single service - watchdog",
			input: "watchdog",
			expected: map[ServiceMode]bool{
				ServiceModeWatchdog: true,
			},
		},
		{
			name:  "all services",
			input: "http,dispatcher,watchdog",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeDispatcher: true,
				ServiceModeWatchdog:   true,
			},
		},
		{
			name:  "services with spaces",
			input: " http , dispatcher ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:       true,
				ServiceModeDispatcher: true,
			},
		},
		{
			name:  "duplicate services",
			input: "http,http,watchdog",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:     true,
				ServiceModeWatchdog: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "invalid service",
			input:       "http,scheduler",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,,",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("ParseServices(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServices(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseServices(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	t.Setenv("SERVICES", "http")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.Dispatcher.BatchSize != 20 {
		t.Errorf("Dispatcher.BatchSize = %d, want 20", cfg.Dispatcher.BatchSize)
	}
	if cfg.Watchdog.StaleAfter != 2*time.Minute {
		t.Errorf("Watchdog.StaleAfter = %v, want 2m", cfg.Watchdog.StaleAfter)
	}
	if cfg.GapFill.InsertBatchSize != 100 {
		t.Errorf("GapFill.InsertBatchSize = %d, want 100", cfg.GapFill.InsertBatchSize)
	}
	if !cfg.IsHTTPServerEnabled() {
		t.Error("expected HTTP server enabled")
	}
	if cfg.IsDispatcherEnabled() {
		t.Error("expected dispatcher disabled")
	}
}

func TestDispatcherConfigSanitize(t *testing.T) {
	cfg := DispatcherConfig{
		BatchSize:    0,
		RoundPause:   -time.Second,
		MaxWallClock: time.Second,
		Interval:     time.Second,
		MaxAttempts:  0,
		Schedule:     "not a cron spec",
	}
	cfg.Sanitize()

	if cfg.BatchSize != 1 {
		t.Errorf("BatchSize = %d, want 1", cfg.BatchSize)
	}
	if cfg.RoundPause != 0 {
		t.Errorf("RoundPause = %v, want 0", cfg.RoundPause)
	}
	if cfg.MaxWallClock != 10*time.Second {
		t.Errorf("MaxWallClock = %v, want 10s", cfg.MaxWallClock)
	}
	if cfg.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", cfg.MaxAttempts)
	}
	if cfg.Schedule != "" {
		t.Errorf("Schedule = %q, want cleared", cfg.Schedule)
	}
}

func TestWatchdogConfigSanitize(t *testing.T) {
	cfg := WatchdogConfig{
		Interval:        time.Second,
		StaleAfter:      time.Second,
		CompletedMaxAge: time.Hour,
		BatchSize:       50000,
		Schedule:        "*/5 * * * *",
	}
	cfg.Sanitize()

	if cfg.Interval != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", cfg.Interval)
	}
	if cfg.StaleAfter != 30*time.Second {
		t.Errorf("StaleAfter = %v, want 30s", cfg.StaleAfter)
	}
	if cfg.CompletedMaxAge != 24*time.Hour {
		t.Errorf("CompletedMaxAge = %v, want 24h", cfg.CompletedMaxAge)
	}
	if cfg.BatchSize != 10000 {
		t.Errorf("BatchSize = %d, want 10000", cfg.BatchSize)
	}
	if cfg.Schedule != "*/5 * * * *" {
		t.Errorf("Schedule = %q, want preserved", cfg.Schedule)
	}
}

func TestShopRegistryUnmarshalText(t *testing.T) {
	t.Run("valid registry", func(t *testing.T) {
		var r ShopRegistry
		err := r.UnmarshalText([]byte(`[
			{"name": "alpha", "base_url": "https://alpha.example.com/", "token": "tok-a"},
			{"name": "beta", "base_url": "https://beta.example.com", "token": "tok-b"}
		]`))
		if err != nil {
			t.Fatalf("UnmarshalText: %v", err)
		}
		if r.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", r.Len())
		}
		if got := r.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
			t.Errorf("Names() = %v", got)
		}
		shop, ok := r.Lookup("alpha")
		if !ok {
			t.Fatal("Lookup(alpha) not found")
		}
		if shop.BaseURL != "https://alpha.example.com" {
			t.Errorf("BaseURL = %q, want trailing slash trimmed", shop.BaseURL)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		var r ShopRegistry
		if err := r.UnmarshalText(nil); err != nil {
			t.Fatalf("UnmarshalText: %v", err)
		}
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})

	t.Run("duplicate shop", func(t *testing.T) {
		var r ShopRegistry
		err := r.UnmarshalText([]byte(`[{"name": "alpha"}, {"name": "alpha"}]`))
		if err == nil {
			t.Error("expected error for duplicate shop")
		}
	})

	t.Run("missing name", func(t *testing.T) {
		var r ShopRegistry
		err := r.UnmarshalText([]byte(`[{"base_url": "https://x.example.com"}]`))
		if err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("via env parse", func(t *testing.T) {
		t.Setenv("SHOPS", `[{"name": "gamma", "base_url": "https://gamma.example.com", "token": "t"}]`)
		var cfg AppConfig
		if err := env.Parse(&cfg); err != nil {
			t.Fatalf("env.Parse: %v", err)
		}
		if cfg.Shops.Len() != 1 {
			t.Errorf("Shops.Len() = %d, want 1", cfg.Shops.Len())
		}
	})
}
