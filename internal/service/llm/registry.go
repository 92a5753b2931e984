package llm

import (
	"fmt"
	"log/slog"

	"inkwell/internal/config"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/service/llm/providers/anthropic"
	"inkwell/internal/service/llm/providers/lorem"
	"inkwell/internal/service/llm/providers/openai"
)

// Registry routes generation requests to the provider claiming the model.
type Registry struct {
	providers []domainllm.Provider
	logger    *slog.Logger
}

// NewRegistry creates a registry over the given providers, consulted in
// order.
func NewRegistry(providers []domainllm.Provider, logger *slog.Logger) *Registry {
	return &Registry{providers: providers, logger: logger}
}

// ForModel returns the first provider supporting the model.
func (r *Registry) ForModel(model string) (domainllm.Provider, error) {
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no provider supports model '%s'", model)
}

// SetupProviders builds the provider set from configuration. The lorem
// provider is always registered so dev and test runs work without keys.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	var providers []domainllm.Provider

	if cfg.AnthropicAPIKey != "" {
		p, err := anthropic.NewProvider(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("setup anthropic provider: %w", err)
		}
		providers = append(providers, p)
		logger.Info("generation provider registered", "provider", p.Name())
	}

	if cfg.OpenAIAPIKey != "" {
		p, err := openai.NewProvider(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("setup openai provider: %w", err)
		}
		providers = append(providers, p)
		logger.Info("generation provider registered", "provider", p.Name())
	}

	providers = append(providers, lorem.NewProvider())

	return NewRegistry(providers, logger), nil
}
