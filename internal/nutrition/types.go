// Package nutrition defines the meal, estimate and log-entry values shared by
// the analysis, review, tracking and insight packages.
package nutrition

import "time"

// UnknownMealName names a committed meal whose estimate lists no items.
const UnknownMealName = "Unknown Meal"

// NewItemName is the placeholder name given to an item added during editing.
const NewItemName = "New Item"

// FoodItem is one detected or user-added constituent of a meal. It has no
// identity beyond its position in the parent list.
type FoodItem struct {
	Name           string  `json:"name"`
	ApproxCalories float64 `json:"approxCalories"`
	Protein        float64 `json:"protein"`
	Carbs          float64 `json:"carbs"`
	Fat            float64 `json:"fat"`
}

// MacroNutrients holds grams of protein, carbohydrate and fat, either for a
// whole meal or a single item.
type MacroNutrients struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// Add returns the component-wise sum of m and o.
func (m MacroNutrients) Add(o MacroNutrients) MacroNutrients {
	return MacroNutrients{
		Protein: m.Protein + o.Protein,
		Carbs:   m.Carbs + o.Carbs,
		Fat:     m.Fat + o.Fat,
	}
}

// Calories derives energy from the macros at 4 kcal/g for protein and
// carbohydrate and 9 kcal/g for fat.
func (m MacroNutrients) Calories() float64 {
	return m.Protein*4 + m.Carbs*4 + m.Fat*9
}

// NutritionAnalysis is the estimate for one meal. TotalCalories and Macros are
// edited independently of FoodItems; nothing keeps them consistent.
type NutritionAnalysis struct {
	TotalCalories float64        `json:"totalCalories"`
	Macros        MacroNutrients `json:"macros"`
	FoodItems     []FoodItem     `json:"foodItems"`
	Summary       string         `json:"summary"`
}

// Clone returns a deep copy that shares no memory with a.
func (a NutritionAnalysis) Clone() NutritionAnalysis {
	out := a
	if a.FoodItems != nil {
		out.FoodItems = make([]FoodItem, len(a.FoodItems))
		copy(out.FoodItems, a.FoodItems)
	}
	return out
}

// MealName is the log name for a committed estimate: its first item, or
// UnknownMealName when there are none.
func (a NutritionAnalysis) MealName() string {
	if len(a.FoodItems) > 0 {
		return a.FoodItems[0].Name
	}
	return UnknownMealName
}

// MealEntry is one committed, immutable record in the session log.
type MealEntry struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Calories  float64        `json:"calories"`
	Timestamp time.Time      `json:"timestamp"`
	ImageSrc  string         `json:"imageSrc,omitempty"` // empty for quick-add entries
	Macros    MacroNutrients `json:"macros"`
}

// HasImage reports whether the entry references its source photo.
func (e MealEntry) HasImage() bool {
	return e.ImageSrc != ""
}

// QuickAdd is the fixed estimate logged when a user accepts a suggestion.
type QuickAdd struct {
	Name     string         `json:"name"`
	Calories float64        `json:"calories"`
	Macros   MacroNutrients `json:"macros"`
}

// Insight is a suggestion derived from the day's macros. Body, Highlight and
// Suffix read as one sentence.
type Insight struct {
	Title     string   `json:"title"`
	Body      string   `json:"bodyText"`
	Highlight string   `json:"highlightedTerm"`
	Suffix    string   `json:"suffixText"`
	QuickAdd  QuickAdd `json:"quickAdd"`
}

// Sentence joins the insight text parts with single spaces.
func (i Insight) Sentence() string {
	return i.Body + " " + i.Highlight + " " + i.Suffix
}
