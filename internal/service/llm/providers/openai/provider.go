package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	domainllm "inkwell/internal/domain/services/llm"
)

// Provider implements the generation Provider interface on the OpenAI
// chat-completions API. Used primarily for the low-latency inline
// completion path.
type Provider struct {
	client *openai.Client
}

// NewProvider creates a new OpenAI provider with the given API key.
func NewProvider(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return &Provider{
		client: openai.NewClient(apiKey),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// SupportsModel returns true if this provider supports the given model.
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "o3-")
}

// StreamText streams token deltas from the chat-completions API through fn.
func (p *Provider) StreamText(ctx context.Context, req *domainllm.StreamRequest, fn domainllm.DeltaFunc) error {
	if !p.SupportsModel(req.Model) {
		return fmt.Errorf("model '%s' is not supported by OpenAI provider", req.Model)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            messages,
		MaxCompletionTokens: req.GetMaxTokens(4096),
		Stream:              true,
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			if errors.Is(err, domainllm.ErrStop) {
				return nil
			}
			return err
		}
	}
}
