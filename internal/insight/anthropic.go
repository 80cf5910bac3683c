package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/contracts"
)

// AnthropicGenerator uses the Messages API
type AnthropicGenerator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

// AnthropicOptions configures an AnthropicGenerator
type AnthropicOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewAnthropicGenerator creates a Messages API generator
func NewAnthropicGenerator(opts AnthropicOptions, log zerolog.Logger) *AnthropicGenerator {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-20250514"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	return &AnthropicGenerator{
		client:  anthropic.NewClient(reqOpts...),
		model:   opts.Model,
		timeout: opts.Timeout,
		log: log.With().
			Str("component", "insight.anthropic").
			Str("model", opts.Model).
			Logger(),
	}
}

// Name returns the provider label
func (g *AnthropicGenerator) Name() string {
	return "anthropic"
}

// Generate sends the prompt with the knowledge base as system text
func (g *AnthropicGenerator) Generate(ctx context.Context, p Prompt) (contracts.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = sectorMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(p.User)),
		},
		Temperature: anthropic.Float(p.Temperature),
	}
	if p.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: p.System}}
	}

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return contracts.Insight{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return contracts.Insight{}, fmt.Errorf("anthropic returned no text")
	}

	g.log.Debug().
		Str("kind", string(p.Kind)).
		Str("sector", p.Facts.Sector).
		Int("response_length", len(content)).
		Dur("duration", time.Since(start)).
		Msg("completion received")

	return contracts.ParseInsight(content), nil
}
