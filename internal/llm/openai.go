package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAIBackend serves OpenAI and OpenAI-compatible endpoints such as
// OpenRouter.
type openAIBackend struct {
	vendor string
	client *openai.Client
}

func newOpenAIBackend(vendor, apiKey, baseURL string) *openAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIBackend{vendor: vendor, client: openai.NewClientWithConfig(cfg)}
}

func (b *openAIBackend) send(ctx context.Context, model string, req Request) (*Response, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	chat := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxTokens,
		Temperature:         float32(req.Temperature),
	}
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return nil, fmt.Errorf("marshal schema %s: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      json.RawMessage(def),
				Strict:      true,
			},
		}
	}

	out, err := b.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return nil, b.classify(ctx, err)
	}
	if len(out.Choices) == 0 {
		return nil, &Error{Kind: KindInvalidOutput, Vendor: b.vendor, Err: fmt.Errorf("reply has no choices")}
	}

	choice := out.Choices[0]
	return &Response{
		Content: json.RawMessage(choice.Message.Content),
		Model:   out.Model,
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
		},
		Truncated: choice.FinishReason == openai.FinishReasonLength,
	}, nil
}

func (b *openAIBackend) classify(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(b.vendor, apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fromStatus(b.vendor, reqErr.HTTPStatusCode, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fromStatus(b.vendor, 0, err)
}
