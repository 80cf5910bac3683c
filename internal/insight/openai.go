package insight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"github.com/wonny/astrostocks/internal/contracts"
)

// OpenAIGenerator talks to any OpenAI-compatible chat endpoint.
// DeepSeek is served through it with a different base URL.
type OpenAIGenerator struct {
	client  openai.Client
	model   string
	name    string
	timeout time.Duration
	log     zerolog.Logger
}

// OpenAIOptions configures an OpenAIGenerator
type OpenAIOptions struct {
	Name    string // provider label for logs and metrics
	APIKey  string
	BaseURL string // empty uses the SDK default
	Model   string
	Timeout time.Duration
}

// NewOpenAIGenerator creates a chat-completion generator
func NewOpenAIGenerator(opts OpenAIOptions, log zerolog.Logger) *OpenAIGenerator {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}

	if opts.Name == "" {
		opts.Name = "openai"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	return &OpenAIGenerator{
		client:  openai.NewClient(reqOpts...),
		model:   opts.Model,
		name:    opts.Name,
		timeout: opts.Timeout,
		log: log.With().
			Str("component", "insight."+opts.Name).
			Str("model", opts.Model).
			Logger(),
	}
}

// Name returns the provider label
func (g *OpenAIGenerator) Name() string {
	return g.name
}

// Generate sends the system and user prompt and parses the reply as
// JSON when possible, text otherwise.
func (g *OpenAIGenerator) Generate(ctx context.Context, p Prompt) (contracts.Insight, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		Temperature: openai.Float(p.Temperature),
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.MaxTokens))
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contracts.Insight{}, fmt.Errorf("%s chat completion: %w", g.name, err)
	}
	if len(resp.Choices) == 0 {
		return contracts.Insight{}, fmt.Errorf("%s returned no choices", g.name)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return contracts.Insight{}, fmt.Errorf("%s returned empty content", g.name)
	}

	g.log.Debug().
		Str("kind", string(p.Kind)).
		Str("sector", p.Facts.Sector).
		Int("response_length", len(content)).
		Dur("duration", time.Since(start)).
		Msg("completion received")

	return contracts.ParseInsight(content), nil
}
