package nutrition

const (
	DefaultCalorieGoal = 2200
	DefaultProteinGoal = 150
	DefaultCarbsGoal   = 200
	DefaultFatGoal     = 70
)

// Goals are the daily targets progress is measured against.
type Goals struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
}

func DefaultGoals() Goals {
	return Goals{
		Calories: DefaultCalorieGoal,
		Protein:  DefaultProteinGoal,
		Carbs:    DefaultCarbsGoal,
		Fat:      DefaultFatGoal,
	}
}

// WithDefaults fills every non-positive target from DefaultGoals.
func (g Goals) WithDefaults() Goals {
	d := DefaultGoals()
	if g.Calories <= 0 {
		g.Calories = d.Calories
	}
	if g.Protein <= 0 {
		g.Protein = d.Protein
	}
	if g.Carbs <= 0 {
		g.Carbs = d.Carbs
	}
	if g.Fat <= 0 {
		g.Fat = d.Fat
	}
	return g
}

// Macros returns the macro targets.
func (g Goals) Macros() MacroNutrients {
	return MacroNutrients{Protein: g.Protein, Carbs: g.Carbs, Fat: g.Fat}
}
