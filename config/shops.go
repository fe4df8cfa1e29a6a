package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Shop describes one tenant shop and how to reach its upstream API.
type Shop struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Token   string `json:"token"`
}

// ShopRegistry is the set of tenant shops, loaded from the SHOPS environment
// variable as a JSON array:
//
//	SHOPS='[{"name":"alpha","base_url":"https://alpha.example.com","token":"..."}]'
type ShopRegistry struct {
	shops []Shop
}

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (r *ShopRegistry) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		r.shops = nil
		return nil
	}

	var shops []Shop
	if err := json.Unmarshal([]byte(raw), &shops); err != nil {
		return fmt.Errorf("parse SHOPS: %w", err)
	}

	seen := make(map[string]struct{}, len(shops))
	for i := range shops {
		name := strings.TrimSpace(shops[i].Name)
		if name == "" {
			return fmt.Errorf("parse SHOPS: shop %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("parse SHOPS: duplicate shop %q", name)
		}
		seen[name] = struct{}{}
		shops[i].Name = name
		shops[i].BaseURL = strings.TrimRight(strings.TrimSpace(shops[i].BaseURL), "/")
	}

	r.shops = shops
	return nil
}

// Names returns all shop names in registry order.
func (r *ShopRegistry) Names() []string {
	names := make([]string, 0, len(r.shops))
	for _, s := range r.shops {
		names = append(names, s.Name)
	}
	return names
}

// Lookup returns the shop with the given name.
func (r *ShopRegistry) Lookup(name string) (Shop, bool) {
	for _, s := range r.shops {
		if s.Name == name {
			return s, true
		}
	}
	return Shop{}, false
}

// Len returns the number of registered shops.
func (r *ShopRegistry) Len() int {
	return len(r.shops)
}

// UpstreamConfig contains the HTTP client configuration for the upstream
// shop APIs.
type UpstreamConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	// PageSize is the page size used when paginating upstream listings.
	PageSize int `env:"UPSTREAM_PAGE_SIZE" envDefault:"250"`

	// RetryInitialInterval is the first backoff delay for transient failures.
	RetryInitialInterval time.Duration `env:"UPSTREAM_RETRY_INITIAL_INTERVAL" envDefault:"1s"`

	// RetryMaxInterval caps the backoff delay.
	RetryMaxInterval time.Duration `env:"UPSTREAM_RETRY_MAX_INTERVAL" envDefault:"30s"`

	// RetryMaxTries bounds attempts per upstream request.
	RetryMaxTries uint `env:"UPSTREAM_RETRY_MAX_TRIES" envDefault:"5"`
}

// Sanitize applies guardrails to upstream configuration values.
func (u *UpstreamConfig) Sanitize() {
	if u.Timeout < time.Second {
		u.Timeout = time.Second
	}
	if u.PageSize < 1 {
		u.PageSize = 1
	}
	if u.PageSize > 250 {
		u.PageSize = 250
	}
	if u.RetryInitialInterval <= 0 {
		u.RetryInitialInterval = time.Second
	}
	if u.RetryMaxInterval < u.RetryInitialInterval {
		u.RetryMaxInterval = 30 * time.Second
	}
	if u.RetryMaxTries == 0 {
		u.RetryMaxTries = 1
	}
}
