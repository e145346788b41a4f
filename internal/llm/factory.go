package llm

import "fmt"

// ModelSet names the three model slots the generation pipeline selects from.
// Model identity is an opaque string passed through to the provider.
type ModelSet struct {
	// Default is the general-purpose completion model.
	Default string
	// Search is the web-search-augmented variant, used when the grounding
	// classifier decides a request needs live/external knowledge.
	Search string
	// Fast is the cheap model used for yes/no classification calls.
	Fast string
}

var defaultModels = map[Provider]ModelSet{
	ProviderOpenAI: {
		Default: "gpt-4o-mini",
		Search:  "gpt-4o-search-preview",
		Fast:    "gpt-4o-mini",
	},
	ProviderAnthropic: {
		Default: "claude-sonnet-4-20250514",
		Search:  "claude-sonnet-4-20250514",
		Fast:    "claude-3-5-haiku-20241022",
	},
}

// Factory builds completion clients for the configured provider.
type Factory struct {
	provider Provider
	apiKey   string
	models   ModelSet
}

// NewFactory creates a factory for the given provider. Empty model slots
// fall back to per-provider defaults.
func NewFactory(provider Provider, apiKey string, models ModelSet) (*Factory, error) {
	defaults, ok := defaultModels[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if models.Default == "" {
		models.Default = defaults.Default
	}
	if models.Search == "" {
		models.Search = defaults.Search
	}
	if models.Fast == "" {
		models.Fast = defaults.Fast
	}
	return &Factory{provider: provider, apiKey: apiKey, models: models}, nil
}

// Available returns true if an API key is configured.
func (f *Factory) Available() bool { return f.apiKey != "" }

// Models returns the configured model slots.
func (f *Factory) Models() ModelSet { return f.models }

// Client creates a completion client with the default model. Per-request
// model selection goes through Request.Model.
func (f *Factory) Client() (Client, error) {
	if !f.Available() {
		return nil, fmt.Errorf("no API key configured for provider %s", f.provider)
	}
	switch f.provider {
	case ProviderOpenAI:
		return NewOpenAIClient(f.apiKey, f.models.Default), nil
	case ProviderAnthropic:
		return NewAnthropicClient(f.apiKey, f.models.Default), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", f.provider)
	}
}
