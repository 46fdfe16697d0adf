package provider

import (
	"fmt"

	"github.com/Myykall/techhelper-ai/internal/config"
)

// Hosted backend endpoints.
const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	groqEndpoint       = "https://api.groq.com/openai/v1/chat/completions"
)

// Default models per backend.
const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenRouterModel = "meta-llama/llama-3.2-3b-instruct"
	defaultGroqModel       = "llama-3.3-70b-versatile"
)

// Registry constructs providers by name. Construction is cheap and
// deterministic per (name, config), so instances are not cached.
type Registry struct {
	cfg       *config.Config
	overrides Overrides
}

// NewRegistry creates a registry for the given configuration, loading the
// pricing override file if one is configured.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{cfg: cfg}

	if cfg.PricingFile != "" {
		overrides, err := LoadOverrides(cfg.PricingFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load pricing overrides: %w", err)
		}
		r.overrides = overrides
	}

	return r, nil
}

// Resolve returns the provider for the given name. An empty name selects the
// configured default. Unknown names fail with UnknownProviderError.
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.cfg.Provider
	}

	switch name {
	case "ollama":
		return NewOllama(r.cfg.Model, r.cfg.OllamaBaseURL, r.cfg.LocalTimeout), nil

	case "openai":
		c := newHostedClient(
			"openai", openAIEndpoint, r.cfg.OpenAIAPIKey,
			modelOr(r.cfg.Model, defaultOpenAIModel),
			r.pricing("openai", openAIPricing), defaultOpenAIModel,
			r.cfg.HostedTimeout,
		)
		temp := 0.7
		c.temperature = &temp
		return c, nil

	case "openrouter":
		c := newHostedClient(
			"openrouter", openRouterEndpoint, r.cfg.OpenRouterAPIKey,
			modelOr(r.cfg.Model, defaultOpenRouterModel),
			r.pricing("openrouter", openRouterPricing), defaultOpenRouterModel,
			r.cfg.HostedTimeout,
		)
		c.extraHeaders = map[string]string{
			"HTTP-Referer": "https://techhelper.ai",
			"X-Title":      "TechHelper AI",
		}
		return c, nil

	case "groq":
		return newHostedClient(
			"groq", groqEndpoint, r.cfg.GroqAPIKey,
			modelOr(r.cfg.Model, defaultGroqModel),
			r.pricing("groq", groqPricing), defaultGroqModel,
			r.cfg.HostedTimeout,
		), nil

	default:
		return nil, &UnknownProviderError{Name: name}
	}
}

func (r *Registry) pricing(name string, builtin Table) Table {
	if overrides, ok := r.overrides[name]; ok {
		return builtin.merge(overrides)
	}
	return builtin
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
