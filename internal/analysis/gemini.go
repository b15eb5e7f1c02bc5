package analysis

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

// Gemini asks a Gemini model for a schema-constrained JSON estimate.
type Gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

type GeminiOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   nutritionSchema(),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	return &Gemini{client: client, model: opts.Model, config: cfg}, nil
}

func (g *Gemini) Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(Prompt),
		genai.NewPartFromBytes(img.Data, img.mimeType()),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.config)
	if err != nil {
		return nutrition.NutritionAnalysis{}, fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nutrition.NutritionAnalysis{}, ErrEmptyResponse
	}
	return Decode(text)
}

func nutritionSchema() *genai.Schema {
	number := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"totalCalories": number("The total estimated calories in the meal."),
			"macros": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"protein": number("Total protein in grams."),
					"carbs":   number("Total carbohydrates in grams."),
					"fat":     number("Total fat in grams."),
				},
				Required: []string{"protein", "carbs", "fat"},
			},
			"foodItems": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":           {Type: genai.TypeString, Description: "Name of the food item."},
						"approxCalories": number("Approximate calories for this item."),
						"protein":        number("Protein in grams for this item."),
						"carbs":          number("Carbohydrates in grams for this item."),
						"fat":            number("Fat in grams for this item."),
					},
					Required: []string{"name", "approxCalories", "protein", "carbs", "fat"},
				},
			},
			"summary": {
				Type:        genai.TypeString,
				Description: "A short, friendly summary of the meal's nutritional value (1-2 sentences).",
			},
		},
		Required: []string{"totalCalories", "macros", "foodItems", "summary"},
	}
}
