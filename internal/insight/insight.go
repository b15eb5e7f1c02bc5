// Package insight derives one suggestion from the day's macro totals.
package insight

import "github.com/stellarlinkco/nutrisnap/internal/nutrition"

const (
	ProteinFloor = 50
	CarbCeiling  = 200
)

// QuickAddPrefix starts the name of every quick-add log entry.
const QuickAddPrefix = "Quick Add: "

// Rule is one entry of the decision list. A nil Match always matches.
type Rule struct {
	Name    string
	Match   func(nutrition.MacroNutrients) bool
	Insight nutrition.Insight
}

// Engine evaluates its rules in order; the first match wins.
type Engine struct {
	rules []Rule
}

// New builds an engine over rules. The last rule should be a catch-all.
func New(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Default is the engine with the built-in protein, carbohydrate and on-track
// rules.
func Default() *Engine {
	return New(DefaultRules()...)
}

func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "protein-shortfall",
			Match: func(m nutrition.MacroNutrients) bool { return m.Protein < ProteinFloor },
			Insight: withQuickAdd(nutrition.Insight{
				Title:     "AI Suggestion",
				Body:      "You are low on protein today. Try adding",
				Highlight: "Greek yogurt",
				Suffix:    "to your snack.",
			}, 90, nutrition.MacroNutrients{Protein: 15, Carbs: 6, Fat: 0}),
		},
		{
			Name:  "carb-excess",
			Match: func(m nutrition.MacroNutrients) bool { return m.Carbs > CarbCeiling },
			Insight: withQuickAdd(nutrition.Insight{
				Title:     "Diet Balance",
				Body:      "Carb intake is high. Consider a",
				Highlight: "low-carb dinner",
				Suffix:    "like grilled chicken.",
			}, 250, nutrition.MacroNutrients{Protein: 30, Carbs: 5, Fat: 10}),
		},
		{
			Name: "on-track",
			Insight: withQuickAdd(nutrition.Insight{
				Title:     "On Track",
				Body:      "Great job! You're hitting your goals. Stay",
				Highlight: "hydrated",
				Suffix:    "for better recovery.",
			}, 100, nutrition.MacroNutrients{Protein: 5, Carbs: 5, Fat: 5}),
		},
	}
}

func withQuickAdd(i nutrition.Insight, calories float64, m nutrition.MacroNutrients) nutrition.Insight {
	i.QuickAdd = nutrition.QuickAdd{
		Name:     QuickAddPrefix + i.Highlight,
		Calories: calories,
		Macros:   m,
	}
	return i
}

// Derive returns the insight of the first matching rule. With no match it
// returns the last rule's insight, or the zero Insight for an empty engine.
func (e *Engine) Derive(today nutrition.MacroNutrients) nutrition.Insight {
	r, ok := e.match(today)
	if !ok {
		return nutrition.Insight{}
	}
	return r.Insight
}

// RuleName reports which rule Derive would use.
func (e *Engine) RuleName(today nutrition.MacroNutrients) string {
	r, _ := e.match(today)
	return r.Name
}

// Lookup returns the insight of the rule called name, independent of today's
// totals, so an accepted suggestion keeps its payload.
func (e *Engine) Lookup(name string) (nutrition.Insight, bool) {
	for _, r := range e.rules {
		if r.Name == name {
			return r.Insight, true
		}
	}
	return nutrition.Insight{}, false
}

func (e *Engine) match(today nutrition.MacroNutrients) (Rule, bool) {
	for _, r := range e.rules {
		if r.Match == nil || r.Match(today) {
			return r, true
		}
	}
	if len(e.rules) == 0 {
		return Rule{}, false
	}
	return e.rules[len(e.rules)-1], true
}
