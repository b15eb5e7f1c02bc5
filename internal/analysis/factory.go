package analysis

import (
	"context"
	"fmt"

	"github.com/stellarlinkco/nutrisnap/internal/config"
)

// New builds the provider named by cfg.Type, bounded by cfg.Timeout and traced.
func New(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	var (
		p   Provider
		err error
	)
	switch cfg.Type {
	case config.ProviderGemini, "":
		p, err = NewGemini(ctx, GeminiOptions{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.ModelName(),
			MaxTokens: cfg.MaxTokens,
		})
	case config.ProviderAnthropic:
		p, err = NewAnthropic(AnthropicOptions{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.ModelName(),
			MaxTokens: cfg.MaxTokens,
		})
	case config.ProviderOpenAI:
		p, err = NewOpenAI(OpenAIOptions{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.ModelName(),
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	name := cfg.Type
	if name == "" {
		name = config.ProviderGemini
	}
	return Traced(WithTimeout(p, cfg.Timeout()), name, nil), nil
}
