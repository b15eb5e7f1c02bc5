package review

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

func sampleAnalysis() nutrition.NutritionAnalysis {
	return nutrition.NutritionAnalysis{
		TotalCalories: 720,
		Macros:        nutrition.MacroNutrients{Protein: 42, Carbs: 80, Fat: 22},
		FoodItems: []nutrition.FoodItem{
			{Name: "a", ApproxCalories: 300, Protein: 20, Carbs: 30, Fat: 10},
			{Name: "b", ApproxCalories: 220, Protein: 12, Carbs: 40, Fat: 2},
			{Name: "c", ApproxCalories: 200, Protein: 10, Carbs: 10, Fat: 10},
		},
		Summary: "Grilled plate with rice.",
	}
}

func TestBeginEditThenCancel_LeavesCommittedUnchanged(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	before := slot.Committed()

	d := slot.BeginEdit()
	d.SetTotalCalories("1000")
	d.SetMacro(Protein, "1")
	d.SetFoodItemField(0, FieldName, "zzz")
	d.SetFoodItemField(1, FieldFat, "99")
	d.DeleteFoodItem(2)
	d.AddFoodItem()
	slot.Cancel(d)

	if diff := cmp.Diff(before, slot.Committed()); diff != "" {
		t.Fatalf("committed value changed after cancel (-want +got):\n%s", diff)
	}
	assert.False(t, slot.Editing())
	assert.True(t, d.Closed())
}

func TestNewSlot_DoesNotAliasInput(t *testing.T) {
	a := sampleAnalysis()
	slot := NewSlot(a)
	a.FoodItems[0].Name = "mutated"

	assert.Equal(t, "a", slot.Committed().FoodItems[0].Name)

	got := slot.Committed()
	got.FoodItems[1].Name = "mutated too"
	assert.Equal(t, "b", slot.Committed().FoodItems[1].Name)
}

func TestDraft_DoesNotAliasCommitted(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	d := slot.BeginEdit()
	d.SetFoodItemField(0, FieldName, "edited")

	assert.Equal(t, "a", slot.Committed().FoodItems[0].Name)
	assert.Equal(t, "edited", d.Analysis().FoodItems[0].Name)
	assert.Equal(t, "edited", slot.Current().FoodItems[0].Name)
}

func TestCommit_ReplacesCommittedOnce(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	d := slot.BeginEdit()
	d.SetTotalCalories("650")
	d.SetMacro(Carbs, "70.5")

	got, err := slot.Commit(d)
	require.NoError(t, err)
	assert.Equal(t, 650.0, got.TotalCalories)
	assert.Equal(t, 70.5, got.Macros.Carbs)
	assert.Equal(t, 650.0, slot.Committed().TotalCalories)
	assert.False(t, slot.Editing())

	_, err = slot.Commit(d)
	assert.ErrorIs(t, err, ErrStaleDraft)
	assert.Equal(t, 650.0, slot.Committed().TotalCalories)
}

func TestCommit_ReturnedValueIsDetached(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	d := slot.BeginEdit()
	got, err := slot.Commit(d)
	require.NoError(t, err)

	got.FoodItems[0].Name = "outside"
	assert.Equal(t, "a", slot.Committed().FoodItems[0].Name)
}

func TestCommit_StaleDraftAfterRestart(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	first := slot.BeginEdit()
	first.SetTotalCalories("1")
	second := slot.BeginEdit()

	_, err := slot.Commit(first)
	assert.ErrorIs(t, err, ErrStaleDraft)
	assert.Equal(t, 720.0, slot.Committed().TotalCalories)
	assert.True(t, first.Closed())

	_, err = slot.Commit(second)
	assert.NoError(t, err)

	_, err = slot.Commit(nil)
	assert.ErrorIs(t, err, ErrStaleDraft)
}

func TestSetTotalCalories_InvalidIsZero(t *testing.T) {
	d := NewSlot(sampleAnalysis()).BeginEdit()
	d.SetTotalCalories("not-a-number")
	assert.Equal(t, 0.0, d.Analysis().TotalCalories)
}

func TestSetMacro(t *testing.T) {
	d := NewSlot(sampleAnalysis()).BeginEdit()
	d.SetMacro(Protein, "55")
	d.SetMacro(Carbs, "abc")
	d.SetMacro(Fat, "12.5g")

	assert.Equal(t, nutrition.MacroNutrients{Protein: 55, Carbs: 0, Fat: 12.5}, d.Analysis().Macros)
}

func TestSetFoodItemField(t *testing.T) {
	d := NewSlot(sampleAnalysis()).BeginEdit()
	d.SetFoodItemField(1, FieldName, "")
	d.SetFoodItemField(1, FieldCalories, "150")
	d.SetFoodItemField(1, FieldProtein, "x")
	d.SetFoodItemField(1, FieldCarbs, "33")
	d.SetFoodItemField(1, FieldFat, "4")

	want := nutrition.FoodItem{Name: "", ApproxCalories: 150, Protein: 0, Carbs: 33, Fat: 4}
	assert.Equal(t, want, d.Analysis().FoodItems[1])
}

func TestDeleteFoodItem_PreservesOrder(t *testing.T) {
	d := NewSlot(sampleAnalysis()).BeginEdit()
	d.DeleteFoodItem(1)

	items := d.Analysis().FoodItems
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "c", items[1].Name)
}

func TestAddFoodItem(t *testing.T) {
	d := NewSlot(nutrition.NutritionAnalysis{}).BeginEdit()
	d.AddFoodItem()

	require.Equal(t, 1, d.Len())
	assert.Equal(t, nutrition.FoodItem{Name: nutrition.NewItemName}, d.Analysis().FoodItems[0])
}

func TestOutOfRangeIndexPanics(t *testing.T) {
	d := NewSlot(sampleAnalysis()).BeginEdit()
	assert.Panics(t, func() { d.SetFoodItemField(3, FieldName, "x") })
	assert.Panics(t, func() { d.SetFoodItemField(-1, FieldName, "x") })
	assert.Panics(t, func() { d.DeleteFoodItem(5) })
	assert.Equal(t, 3, d.Len())
}

func TestClosedDraftPanics(t *testing.T) {
	slot := NewSlot(sampleAnalysis())
	d := slot.BeginEdit()
	slot.Cancel(d)
	assert.Panics(t, func() { d.SetTotalCalories("1") })
	assert.Panics(t, func() { d.AddFoodItem() })
}

func TestParseFieldAndMacro(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"name", FieldName},
		{"kcal", FieldCalories},
		{"Calories", FieldCalories},
		{"protein", FieldProtein},
		{"carbs", FieldCarbs},
		{"fat", FieldFat},
	}
	for _, tt := range tests {
		got, ok := ParseField(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, ok := ParseField("sugar")
	assert.False(t, ok)

	m, ok := ParseMacro(" Protein ")
	require.True(t, ok)
	assert.Equal(t, Protein, m)
	_, ok = ParseMacro("fiber")
	assert.False(t, ok)

	assert.Equal(t, "approxCalories", FieldCalories.String())
	assert.Equal(t, "carbs", Carbs.String())
}
