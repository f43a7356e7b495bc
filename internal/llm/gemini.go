package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type geminiBackend struct {
	client *genai.Client
}

func newGeminiBackend(ctx context.Context, apiKey, baseURL string) (*geminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &geminiBackend{client: client}, nil
}

func (b *geminiBackend) send(ctx context.Context, model string, req Request) (*Response, error) {
	gc := &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	if req.Temperature > 0 {
		t := float32(req.Temperature)
		gc.Temperature = &t
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Schema != nil {
		gc.ResponseMIMEType = "application/json"
		gc.ResponseJsonSchema = req.Schema.Definition
	}

	out, err := b.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), gc)
	if err != nil {
		return nil, classifyGemini(ctx, err)
	}

	resp := &Response{
		Content: json.RawMessage(out.Text()),
		Model:   out.ModelVersion,
	}
	if u := out.UsageMetadata; u != nil {
		resp.Usage = Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	if len(out.Candidates) == 0 {
		return nil, &Error{Kind: KindInvalidOutput, Vendor: "gemini", Err: fmt.Errorf("reply has no candidates")}
	}
	resp.Truncated = out.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
	return resp, nil
}

func classifyGemini(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus("gemini", apiErr.Code, err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fromStatus("gemini", 0, err)
}
