// Package analysis turns a meal photo into a nutrition estimate through an
// image-understanding model.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

// Prompt is sent with every image.
const Prompt = "Analyze this image of food. Identify the items and provide a nutritional breakdown including total calories and macros (protein, carbs, fat). Be realistic with portion sizes based on the image."

// jsonInstruction is appended for models without a structured output mode.
const jsonInstruction = `Respond with only a JSON object of this shape, numbers as numbers:
{"totalCalories":0,"macros":{"protein":0,"carbs":0,"fat":0},"foodItems":[{"name":"","approxCalories":0,"protein":0,"carbs":0,"fat":0}],"summary":"A short, friendly summary of the meal's nutritional value (1-2 sentences)."}`

var (
	// ErrEmptyResponse is rendered verbatim on the failure card, so it keeps
	// sentence case and punctuation.
	ErrEmptyResponse = errors.New("No response received from the analysis service.") //nolint:staticcheck // ST1005
	ErrMissingAPIKey = errors.New("missing analysis api key")
)

// Provider estimates the nutrition of one image. Implementations keep no state
// between calls.
type Provider interface {
	Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error)

func (f ProviderFunc) Analyze(ctx context.Context, img Image) (nutrition.NutritionAnalysis, error) {
	return f(ctx, img)
}

// DecodeError reports a model response that is not a complete estimate.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode analysis: missing field %q", e.Field)
	}
	return fmt.Sprintf("decode analysis: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type rawMacros struct {
	Protein *float64 `json:"protein"`
	Carbs   *float64 `json:"carbs"`
	Fat     *float64 `json:"fat"`
}

type rawItem struct {
	Name           *string  `json:"name"`
	ApproxCalories *float64 `json:"approxCalories"`
	Protein        *float64 `json:"protein"`
	Carbs          *float64 `json:"carbs"`
	Fat            *float64 `json:"fat"`
}

type rawAnalysis struct {
	TotalCalories *float64   `json:"totalCalories"`
	Macros        *rawMacros `json:"macros"`
	FoodItems     *[]rawItem `json:"foodItems"`
	Summary       *string    `json:"summary"`
}

// Decode parses a model response. Surrounding Markdown code fences are
// stripped and every field of the estimate must be present.
func Decode(text string) (nutrition.NutritionAnalysis, error) {
	text = stripFences(text)
	if text == "" {
		return nutrition.NutritionAnalysis{}, ErrEmptyResponse
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nutrition.NutritionAnalysis{}, &DecodeError{Err: err}
	}

	missing := func(field string) (nutrition.NutritionAnalysis, error) {
		return nutrition.NutritionAnalysis{}, &DecodeError{Field: field}
	}
	switch {
	case raw.TotalCalories == nil:
		return missing("totalCalories")
	case raw.Macros == nil:
		return missing("macros")
	case raw.Macros.Protein == nil:
		return missing("macros.protein")
	case raw.Macros.Carbs == nil:
		return missing("macros.carbs")
	case raw.Macros.Fat == nil:
		return missing("macros.fat")
	case raw.FoodItems == nil:
		return missing("foodItems")
	case raw.Summary == nil:
		return missing("summary")
	}

	out := nutrition.NutritionAnalysis{
		TotalCalories: *raw.TotalCalories,
		Macros: nutrition.MacroNutrients{
			Protein: *raw.Macros.Protein,
			Carbs:   *raw.Macros.Carbs,
			Fat:     *raw.Macros.Fat,
		},
		FoodItems: make([]nutrition.FoodItem, 0, len(*raw.FoodItems)),
		Summary:   *raw.Summary,
	}
	for i, item := range *raw.FoodItems {
		prefix := fmt.Sprintf("foodItems[%d].", i)
		switch {
		case item.Name == nil:
			return missing(prefix + "name")
		case item.ApproxCalories == nil:
			return missing(prefix + "approxCalories")
		case item.Protein == nil:
			return missing(prefix + "protein")
		case item.Carbs == nil:
			return missing(prefix + "carbs")
		case item.Fat == nil:
			return missing(prefix + "fat")
		}
		out.FoodItems = append(out.FoodItems, nutrition.FoodItem{
			Name:           *item.Name,
			ApproxCalories: *item.ApproxCalories,
			Protein:        *item.Protein,
			Carbs:          *item.Carbs,
			Fat:            *item.Fat,
		})
	}
	return out, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json".
	if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
		text = text[nl+1:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
