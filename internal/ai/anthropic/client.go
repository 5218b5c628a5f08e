package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spigell/finn-ranker/internal/ai"
	"github.com/spigell/finn-ranker/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultModel      = "claude-sonnet-4-6"
	defaultMaxTokens  = 16000
	defaultMaxRetries = 2
	// The SDK refuses larger non-streaming requests.
	maxNonStreamingTokens = 20000
)

type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator talks to the Claude Messages API.
type Generator struct {
	messages  messageCreator
	model     string
	maxTokens int64
	logger    *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a Generator. Retries of rate limited and overloaded
// requests are left to the SDK.
func NewGenerator(apiKey, model string, maxTokens int64, maxRetries int, log *zap.Logger, opts ...option.RequestOption) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	log = logger.Named(log, "anthropic")

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if maxTokens > maxNonStreamingTokens {
		log.Warn("max tokens lowered to the non-streaming limit",
			zap.Int64("requested", maxTokens), zap.Int64("limit", maxNonStreamingTokens))
		maxTokens = maxNonStreamingTokens
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	}, opts...)
	client := anthropic.NewClient(opts...)

	return &Generator{
		messages:  &client.Messages,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.WithCommonFields(log, ai.ProviderAnthropic, model),
	}, nil
}

func (g *Generator) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	if g == nil || g.messages == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system = strings.TrimSpace(system); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := g.messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	if msg.StopReason == anthropic.StopReasonMaxTokens {
		g.logger.Warn("response hit the token limit and is truncated", zap.Int64("max_tokens", g.maxTokens))
	}

	var builder strings.Builder
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ai.ErrEmptyResponse
	}

	return output, nil
}

func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ai.ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("create message: %w", err)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
