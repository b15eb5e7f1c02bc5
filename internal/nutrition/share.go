package nutrition

import (
	"fmt"
	"strings"
)

// ShareText formats an estimate for sharing outside the app.
func ShareText(a NutritionAnalysis) string {
	var sb strings.Builder
	sb.WriteString("🍽️ NutriSnap Analysis\n\n")
	fmt.Fprintf(&sb, "🔥 Calories: %s kcal\n", FormatNumber(a.TotalCalories))
	fmt.Fprintf(&sb, "💪 Protein: %sg\n", FormatNumber(a.Macros.Protein))
	fmt.Fprintf(&sb, "🍞 Carbs: %sg\n", FormatNumber(a.Macros.Carbs))
	fmt.Fprintf(&sb, "🥑 Fat: %sg\n", FormatNumber(a.Macros.Fat))
	if s := strings.TrimSpace(a.Summary); s != "" {
		fmt.Fprintf(&sb, "\n📝 %s", s)
	}
	return sb.String()
}
