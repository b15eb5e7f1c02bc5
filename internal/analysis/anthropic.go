package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cexll/agentsdk-go/pkg/model"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

// Anthropic sends the photo as an image content block to a Claude model.
type Anthropic struct {
	maxTokens int
	complete  func(ctx context.Context, req model.Request) (*model.Response, error)
}

type AnthropicOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

func NewAnthropic(opts AnthropicOptions) (*Anthropic, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	provider := &model.AnthropicProvider{
		APIKey:    opts.APIKey,
		BaseURL:   opts.BaseURL,
		ModelName: opts.Model,
		MaxTokens: opts.MaxTokens,
	}
	return &Anthropic{
		maxTokens: opts.MaxTokens,
		complete: func(ctx context.Context, req model.Request) (*model.Response, error) {
			m, err := provider.Model(ctx)
			if err != nil {
				return nil, fmt.Errorf("create anthropic model: %w", err)
			}
			return m.Complete(ctx, req)
		},
	}, nil
}

func (a *Anthropic) Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error) {
	// The prompt has to travel as a block: Content is ignored once blocks exist.
	req := model.Request{
		Messages: []model.Message{{
			Role: "user",
			ContentBlocks: []model.ContentBlock{
				{Type: model.ContentBlockText, Text: Prompt + "\n\n" + jsonInstruction},
				{Type: model.ContentBlockImage, MediaType: img.mimeType(), Data: img.Base64()},
			},
		}},
		MaxTokens: a.maxTokens,
	}

	resp, err := a.complete(ctx, req)
	if err != nil {
		return nutrition.NutritionAnalysis{}, fmt.Errorf("anthropic complete: %w", err)
	}
	if resp == nil {
		return nutrition.NutritionAnalysis{}, ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Message.TextContent())
	if text == "" {
		return nutrition.NutritionAnalysis{}, ErrEmptyResponse
	}
	return Decode(text)
}
