package insight

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/pkg/config"
)

// NewGenerator builds the configured provider. A provider without an
// API key yields a generator whose calls fail, so enrichment fails per
// run instead of at startup.
func NewGenerator(cfg config.InsightConfig, log zerolog.Logger) (Generator, error) {
	switch cfg.Provider {
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			log.Warn().Msg("DEEPSEEK_API_KEY not set; enrichment will fail")
			return unconfigured{name: "deepseek"}, nil
		}
		return NewOpenAIGenerator(OpenAIOptions{
			Name:    "deepseek",
			APIKey:  cfg.DeepSeekAPIKey,
			BaseURL: cfg.DeepSeekBaseURL,
			Model:   cfg.DeepSeekModel,
			Timeout: cfg.Timeout,
		}, log), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Warn().Msg("OPENAI_API_KEY not set; enrichment will fail")
			return unconfigured{name: "openai"}, nil
		}
		return NewOpenAIGenerator(OpenAIOptions{
			Name:    "openai",
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, log), nil

	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Warn().Msg("ANTHROPIC_API_KEY not set; enrichment will fail")
			return unconfigured{name: "anthropic"}, nil
		}
		return NewAnthropicGenerator(AnthropicOptions{
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
			Timeout: cfg.Timeout,
		}, log), nil

	case "template":
		return NewTemplateGenerator(), nil

	default:
		return nil, fmt.Errorf("unknown insight provider %q", cfg.Provider)
	}
}

// NewEnricherFromConfig wires builder, provider and pacing from config
func NewEnricherFromConfig(cfg config.InsightConfig, log zerolog.Logger) (*Enricher, error) {
	gen, err := NewGenerator(cfg, log)
	if err != nil {
		return nil, err
	}
	builder, err := NewBuilder(cfg.Temperature)
	if err != nil {
		return nil, err
	}
	return NewEnricher(gen, builder, EnricherOptions{
		Concurrency:   cfg.Concurrency,
		RatePerSecond: cfg.RatePerSecond,
	}, log), nil
}
