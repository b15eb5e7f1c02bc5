package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/lifecycle"
	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
	"github.com/stellarlinkco/nutrisnap/internal/tracker"
)

const helpText = `**NutriSnap** estimates the nutrition of a meal from a photo.

Send a photo (or /scan first), then:
/commit: add the estimate to today's log
/edit: correct it, then /set, /item, /additem, /delitem, /save or /cancel
/reanalyze: ask again for the same photo
/discard: drop it

/today: progress against your goals
/suggest: a tip for the rest of the day, /quickadd logs it
/log [oldest|highest|lowest]: meals logged this session
/share: the estimate as shareable text`

const editUsage = `/set calories 450 · /set protein 30
/item 1 name Brown rice · /item 2 calories 120
/additem · /delitem 2 · /save · /cancel`

var (
	actionScan      = bus.Action{Label: "📷 Scan meal", Command: "/scan"}
	actionToday     = bus.Action{Label: "Today", Command: "/today"}
	actionSuggest   = bus.Action{Label: "Suggest", Command: "/suggest"}
	actionLog       = bus.Action{Label: "Log", Command: "/log"}
	actionCancel    = bus.Action{Label: "Cancel", Command: "/cancel"}
	actionCommit    = bus.Action{Label: "✅ Add to log", Command: "/commit"}
	actionEdit      = bus.Action{Label: "✏️ Edit", Command: "/edit"}
	actionReanalyze = bus.Action{Label: "🔄 Re-analyze", Command: "/reanalyze"}
	actionDiscard   = bus.Action{Label: "🗑 Discard", Command: "/discard"}
	actionShare     = bus.Action{Label: "Share", Command: "/share"}
	actionSave      = bus.Action{Label: "💾 Save", Command: "/save"}
	actionAddItem   = bus.Action{Label: "➕ Add item", Command: "/additem"}
	actionRetry     = bus.Action{Label: "Try again", Command: "/retry"}
)

// stateActions lists the buttons offered in m's current state.
func stateActions(m *lifecycle.Machine) []bus.Action {
	switch m.State() {
	case lifecycle.Capturing:
		return []bus.Action{actionCancel}
	case lifecycle.Reviewing:
		if m.Slot().Editing() {
			return []bus.Action{actionSave, actionCancel, actionAddItem}
		}
		return []bus.Action{actionCommit, actionEdit, actionReanalyze, actionDiscard, actionShare}
	case lifecycle.Failed:
		return []bus.Action{actionRetry}
	case lifecycle.Analyzing:
		return nil
	}
	return []bus.Action{actionScan, actionToday, actionSuggest, actionLog}
}

func num(v float64) string {
	return nutrition.FormatNumber(v)
}

func renderMacros(m nutrition.MacroNutrients) string {
	return fmt.Sprintf("P %sg · C %sg · F %sg", num(m.Protein), num(m.Carbs), num(m.Fat))
}

func renderAnalysis(a nutrition.NutritionAnalysis, editing bool) string {
	var sb strings.Builder
	if editing {
		sb.WriteString("✏️ Editing (unsaved)\n\n")
	}
	fmt.Fprintf(&sb, "🍽️ **%s**\n", a.MealName())
	fmt.Fprintf(&sb, "🔥 %s kcal · %s\n", num(a.TotalCalories), renderMacros(a.Macros))

	if len(a.FoodItems) > 0 {
		sb.WriteString("\n")
		for i, item := range a.FoodItems {
			fmt.Fprintf(&sb, "%d. %s: %s kcal (%s)\n", i+1, item.Name, num(item.ApproxCalories),
				renderMacros(nutrition.MacroNutrients{Protein: item.Protein, Carbs: item.Carbs, Fat: item.Fat}))
		}
	}
	if s := strings.TrimSpace(a.Summary); s != "" {
		fmt.Fprintf(&sb, "\n📝 %s\n", s)
	}
	if editing {
		sb.WriteString("\n" + editUsage)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderSummary(s tracker.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **Today**: %s / %s kcal (%s%%)\n", num(s.Calories), num(s.Goals.Calories), num(s.Progress.CaloriePercent))
	fmt.Fprintf(&sb, "Protein %s / %sg · Carbs %s / %sg · Fat %s / %sg\n",
		num(s.Macros.Protein), num(s.Goals.Protein),
		num(s.Macros.Carbs), num(s.Goals.Carbs),
		num(s.Macros.Fat), num(s.Goals.Fat))

	meals := "meals"
	if s.Entries == 1 {
		meals = "meal"
	}
	fmt.Fprintf(&sb, "%s kcal remaining · %d %s logged", num(s.Progress.RemainingCalories), s.Entries, meals)
	return sb.String()
}

func renderInsight(in nutrition.Insight) string {
	q := in.QuickAdd
	return fmt.Sprintf("💡 **%s**\n%s **%s** %s\n\nQuick add: %s (%s kcal, %s)",
		in.Title, in.Body, in.Highlight, in.Suffix,
		q.Name, num(q.Calories), renderMacros(q.Macros))
}

func renderLog(entries []nutrition.MealEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return "No meals logged yet. Send a photo to start."
	}
	var sb strings.Builder
	sb.WriteString("📒 **Meal log**\n")
	for _, e := range entries {
		icon := "📷"
		if !e.HasImage() {
			icon = "⚡"
		}
		fmt.Fprintf(&sb, "\n%s %s %s: %s kcal (%s)",
			e.Timestamp.In(loc).Format("Jan 2 15:04"), icon, e.Name, num(e.Calories), renderMacros(e.Macros))
	}
	return sb.String()
}

// RenderAnalysis formats an estimate the way chat replies show it.
func RenderAnalysis(a nutrition.NutritionAnalysis) string {
	return renderAnalysis(a, false)
}
