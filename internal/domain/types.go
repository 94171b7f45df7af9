package domain

import "time"

// Metadata describes the plugin for host registration and discovery.
type Metadata struct {
	Name             string        `json:"name"`
	Version          string        `json:"version"`
	PluginAPIVersion string        `json:"plugin_api_version"`
	ProviderType     string        `json:"provider_type"`
	Description      string        `json:"description"`
	Author           string        `json:"author"`
	Homepage         string        `json:"homepage,omitempty"`
	License          string        `json:"license,omitempty"`
	Capabilities     Capabilities  `json:"capabilities"`
	ConfigSchema     []ConfigField `json:"config_schema,omitempty"`
}

// Capabilities declares which provider features the plugin supports.
type Capabilities struct {
	Streaming       bool `json:"streaming"`
	FunctionCalling bool `json:"function_calling"`
	Vision          bool `json:"vision"`
	Embeddings      bool `json:"embeddings"`
	FineTuning      bool `json:"fine_tuning"`
}

// ConfigField describes one configuration field accepted by /initialize.
type ConfigField struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Description string          `json:"description"`
	Default     interface{}     `json:"default,omitempty"`
	Sensitive   bool            `json:"sensitive,omitempty"`
	Validation  *ValidationRule `json:"validation,omitempty"`
}

// ValidationRule constrains a numeric config field.
type ValidationRule struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ModelCapabilities declares per-model features in the catalog.
type ModelCapabilities struct {
	Streaming       bool `json:"streaming"`
	FunctionCalling bool `json:"function_calling"`
	Vision          bool `json:"vision"`
}

// ModelInfo is one entry of the static model catalog served at /models.
type ModelInfo struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	ContextWindow   int               `json:"context_window,omitempty"`
	MaxOutputTokens int               `json:"max_output_tokens,omitempty"`
	CostPerMToken   float64           `json:"cost_per_mtoken,omitempty"`
	Capabilities    ModelCapabilities `json:"capabilities"`
}

// HealthReport is the body of every /health response. Health never fails as
// an HTTP error; an unhealthy plugin is a 200 with Healthy set to false.
type HealthReport struct {
	Healthy   bool                   `json:"healthy"`
	Message   string                 `json:"message"`
	LatencyMS int64                  `json:"latency_ms"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
