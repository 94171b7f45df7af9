package domain

// Static plugin metadata and model catalog, seeded at startup. The host reads
// both during registration; neither changes at runtime.

func float64Ptr(f float64) *float64 { return &f }

// PluginMetadata is the document served at GET /metadata.
var PluginMetadata = Metadata{
	Name:             "OpenAI Provider Plugin",
	Version:          "1.0.0",
	PluginAPIVersion: "1.0.0",
	ProviderType:     "openai",
	Description:      "Bridges the Loom plugin protocol to an OpenAI-compatible completions API",
	Author:           "Loom Team",
	Homepage:         "https://github.com/jordanhubbard/Loom",
	License:          "MIT",
	Capabilities: Capabilities{
		Streaming:       false,
		FunctionCalling: true,
		Vision:          false,
		Embeddings:      false,
		FineTuning:      false,
	},
	ConfigSchema: []ConfigField{
		{
			Name:        "api_key",
			Type:        "string",
			Required:    true,
			Description: "OpenAI API key",
			Sensitive:   true,
		},
		{
			Name:        "endpoint",
			Type:        "string",
			Required:    false,
			Description: "API endpoint URL",
			Default:     "https://api.openai.com/v1",
		},
		{
			Name:        "timeout",
			Type:        "int",
			Required:    false,
			Description: "Request timeout in seconds",
			Default:     30,
			Validation: &ValidationRule{
				Min: float64Ptr(1),
				Max: float64Ptr(300),
			},
		},
	},
}

// Models is the catalog served at GET /models.
var Models = []ModelInfo{
	{
		ID:              "gpt-4",
		Name:            "GPT-4",
		Description:     "Most capable model, best for complex tasks",
		ContextWindow:   8192,
		MaxOutputTokens: 4096,
		CostPerMToken:   0.03,
		Capabilities: ModelCapabilities{
			Streaming:       true,
			FunctionCalling: true,
			Vision:          false,
		},
	},
	{
		ID:              "gpt-3.5-turbo",
		Name:            "GPT-3.5 Turbo",
		Description:     "Fast and cost-effective model",
		ContextWindow:   4096,
		MaxOutputTokens: 4096,
		CostPerMToken:   0.001,
		Capabilities: ModelCapabilities{
			Streaming:       true,
			FunctionCalling: true,
			Vision:          false,
		},
	},
}
