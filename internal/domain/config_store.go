package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ProviderConfig is the runtime provider configuration supplied by the host
// through /initialize. Endpoint and Timeout always carry values; the plugin
// counts as initialized once APIKey is non-empty.
type ProviderConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// ConfigStore holds the single process-wide ProviderConfig. Apply writes it,
// every other operation reads it; the mutex guarantees readers always observe
// a complete snapshot, never a value mid-merge.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg ProviderConfig
}

// NewConfigStore creates a store seeded with defaults. The host overrides
// them field by field through Apply.
func NewConfigStore(defaults ProviderConfig) *ConfigStore {
	return &ConfigStore{cfg: defaults}
}

// Apply merges the supplied fields over the current configuration. Keys that
// are present override, keys that are absent keep their prior values.
// Re-applying while already initialized is permitted and overwrites fields.
func (s *ConfigStore) Apply(fields map[string]interface{}) *PluginError {
	if _, ok := fields["api_key"]; !ok {
		return NewPluginError(ErrInvalidRequest, "api_key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if v, ok := fields["api_key"].(string); ok {
		next.APIKey = v
	}
	if v, ok := fields["endpoint"].(string); ok && v != "" {
		next.Endpoint = strings.TrimSuffix(v, "/")
	}
	if v, ok := fields["timeout"]; ok {
		if d, err := parseTimeout(v); err == nil {
			next.Timeout = d
		} else {
			return NewPluginError(ErrInvalidRequest, err.Error())
		}
	}

	s.cfg = next
	return nil
}

// Snapshot returns a consistent copy of the current configuration.
func (s *ConfigStore) Snapshot() ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Initialized reports whether an api_key has been applied.
func (s *ConfigStore) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.APIKey != ""
}

// parseTimeout accepts the timeout field as the host sends it: a JSON number
// of seconds, or a Go duration string such as "30s".
func parseTimeout(v interface{}) (time.Duration, error) {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %v", t)
		}
		return time.Duration(t * float64(time.Second)), nil
	case int:
		if t <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", t)
		}
		return time.Duration(t) * time.Second, nil
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout %q", t)
		}
		if d <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %q", t)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("invalid timeout type %T", v)
	}
}
