// Package review lets a user correct an estimate through a private draft that
// replaces the committed value only when saved.
package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

// ErrStaleDraft is returned when a draft that is not the slot's open draft is
// committed.
var ErrStaleDraft = errors.New("review: draft is not open on this slot")

// Macro selects a meal-level macro.
type Macro int

const (
	Protein Macro = iota
	Carbs
	Fat
)

func (m Macro) String() string {
	switch m {
	case Protein:
		return "protein"
	case Carbs:
		return "carbs"
	case Fat:
		return "fat"
	}
	return fmt.Sprintf("macro(%d)", int(m))
}

// ParseMacro maps a user word to a Macro.
func ParseMacro(s string) (Macro, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "protein", "prot", "p":
		return Protein, true
	case "carbs", "carb", "carbohydrates", "c":
		return Carbs, true
	case "fat", "fats", "f":
		return Fat, true
	}
	return 0, false
}

// Field selects a food item field.
type Field int

const (
	FieldName Field = iota
	FieldCalories
	FieldProtein
	FieldCarbs
	FieldFat
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldCalories:
		return "approxCalories"
	case FieldProtein:
		return "protein"
	case FieldCarbs:
		return "carbs"
	case FieldFat:
		return "fat"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps a user word to a Field.
func ParseField(s string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return FieldName, true
	case "calories", "approxcalories", "kcal", "cal":
		return FieldCalories, true
	}
	if m, ok := ParseMacro(s); ok {
		switch m {
		case Protein:
			return FieldProtein, true
		case Carbs:
			return FieldCarbs, true
		case Fat:
			return FieldFat, true
		}
	}
	return 0, false
}

// Slot holds the committed estimate under review and at most one open draft.
type Slot struct {
	committed nutrition.NutritionAnalysis
	draft     *Draft
}

// NewSlot takes a private copy of a as the committed value.
func NewSlot(a nutrition.NutritionAnalysis) *Slot {
	return &Slot{committed: a.Clone()}
}

// Committed returns a copy of the committed estimate.
func (s *Slot) Committed() nutrition.NutritionAnalysis {
	return s.committed.Clone()
}

// Draft returns the open draft, or nil.
func (s *Slot) Draft() *Draft {
	return s.draft
}

// Editing reports whether a draft is open.
func (s *Slot) Editing() bool {
	return s.draft != nil
}

// Current is the draft's value while editing, otherwise the committed value.
func (s *Slot) Current() nutrition.NutritionAnalysis {
	if s.draft != nil {
		return s.draft.Analysis()
	}
	return s.Committed()
}

// BeginEdit opens a draft holding a deep copy of the committed value. An
// already open draft is discarded.
func (s *Slot) BeginEdit() *Draft {
	if s.draft != nil {
		s.draft.closed = true
	}
	s.draft = &Draft{value: s.committed.Clone()}
	return s.draft
}

// Commit makes the draft the committed value and closes it.
func (s *Slot) Commit(d *Draft) (nutrition.NutritionAnalysis, error) {
	if d == nil || d != s.draft || d.closed {
		return nutrition.NutritionAnalysis{}, ErrStaleDraft
	}
	s.committed = d.value
	d.value = nutrition.NutritionAnalysis{}
	d.closed = true
	s.draft = nil
	return s.committed.Clone(), nil
}

// Cancel discards the draft. The committed value is untouched.
func (s *Slot) Cancel(d *Draft) {
	if d == nil {
		return
	}
	d.closed = true
	if d == s.draft {
		s.draft = nil
	}
}

// Draft is a mutable working copy of an estimate. Mutating a closed draft, or
// addressing an item outside [0, Len()), is a programming error and panics.
type Draft struct {
	value  nutrition.NutritionAnalysis
	closed bool
}

// Analysis returns a copy of the draft's current value.
func (d *Draft) Analysis() nutrition.NutritionAnalysis {
	return d.value.Clone()
}

// Len is the number of food items in the draft.
func (d *Draft) Len() int {
	return len(d.value.FoodItems)
}

// Closed reports whether the draft was committed or cancelled.
func (d *Draft) Closed() bool {
	return d.closed
}

func (d *Draft) SetTotalCalories(text string) {
	d.mustBeOpen()
	d.value.TotalCalories = nutrition.ParseNumber(text)
}

func (d *Draft) SetMacro(which Macro, text string) {
	d.mustBeOpen()
	v := nutrition.ParseNumber(text)
	switch which {
	case Protein:
		d.value.Macros.Protein = v
	case Carbs:
		d.value.Macros.Carbs = v
	case Fat:
		d.value.Macros.Fat = v
	default:
		panic(fmt.Sprintf("review: unknown %s", which))
	}
}

// SetFoodItemField stores name text verbatim (empty allowed) and parses
// numeric fields leniently.
func (d *Draft) SetFoodItemField(index int, field Field, text string) {
	d.mustBeOpen()
	d.mustIndex(index)
	item := &d.value.FoodItems[index]
	switch field {
	case FieldName:
		item.Name = text
	case FieldCalories:
		item.ApproxCalories = nutrition.ParseNumber(text)
	case FieldProtein:
		item.Protein = nutrition.ParseNumber(text)
	case FieldCarbs:
		item.Carbs = nutrition.ParseNumber(text)
	case FieldFat:
		item.Fat = nutrition.ParseNumber(text)
	default:
		panic(fmt.Sprintf("review: unknown %s", field))
	}
}

// DeleteFoodItem removes one item, keeping the others in order.
func (d *Draft) DeleteFoodItem(index int) {
	d.mustBeOpen()
	d.mustIndex(index)
	items := make([]nutrition.FoodItem, 0, len(d.value.FoodItems)-1)
	items = append(items, d.value.FoodItems[:index]...)
	items = append(items, d.value.FoodItems[index+1:]...)
	d.value.FoodItems = items
}

// AddFoodItem appends a placeholder item with zero nutrition.
func (d *Draft) AddFoodItem() {
	d.mustBeOpen()
	d.value.FoodItems = append(d.value.FoodItems, nutrition.FoodItem{Name: nutrition.NewItemName})
}

func (d *Draft) mustBeOpen() {
	if d.closed {
		panic("review: draft is closed")
	}
}

func (d *Draft) mustIndex(index int) {
	if index < 0 || index >= len(d.value.FoodItems) {
		panic(fmt.Sprintf("review: food item index %d out of range [0, %d)", index, len(d.value.FoodItems)))
	}
}
