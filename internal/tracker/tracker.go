// Package tracker holds the session meal log and folds it into daily totals
// and goal progress.
package tracker

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

// Log is the session-scoped meal history, newest first by insertion.
type Log struct {
	entries []nutrition.MealEntry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Prepend(e nutrition.MealEntry) {
	l.entries = append([]nutrition.MealEntry{e}, l.entries...)
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []nutrition.MealEntry {
	out := make([]nutrition.MealEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	return len(l.entries)
}

// DayMatcher decides whether an entry timestamp falls on the reference day.
type DayMatcher func(ts, ref time.Time) bool

// SameCalendarDay compares year, month and day in ref's location.
func SameCalendarDay(ts, ref time.Time) bool {
	ts = ts.In(ref.Location())
	ty, tm, td := ts.Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

// SameDayOfMonth compares only the day of month in ref's location, ignoring
// month and year.
func SameDayOfMonth(ts, ref time.Time) bool {
	return ts.In(ref.Location()).Day() == ref.Day()
}

// Filter keeps the entries match accepts, in their original order.
func Filter(entries []nutrition.MealEntry, ref time.Time, match DayMatcher) []nutrition.MealEntry {
	out := make([]nutrition.MealEntry, 0, len(entries))
	for _, e := range entries {
		if match(e.Timestamp, ref) {
			out = append(out, e)
		}
	}
	return out
}

// FilterToday keeps entries logged on ref's calendar date.
func FilterToday(entries []nutrition.MealEntry, ref time.Time) []nutrition.MealEntry {
	return Filter(entries, ref, SameCalendarDay)
}

// FilterDayOfMonth keeps entries sharing ref's day of month.
func FilterDayOfMonth(entries []nutrition.MealEntry, ref time.Time) []nutrition.MealEntry {
	return Filter(entries, ref, SameDayOfMonth)
}

func SumCalories(entries []nutrition.MealEntry) float64 {
	var total float64
	for _, e := range entries {
		total += e.Calories
	}
	return total
}

func SumMacros(entries []nutrition.MealEntry) nutrition.MacroNutrients {
	var total nutrition.MacroNutrients
	for _, e := range entries {
		total = total.Add(e.Macros)
	}
	return total
}

// Progress compares a day's totals with the goals.
type Progress struct {
	CaloriePercent    float64                  `json:"caloriePercent"`
	RemainingCalories float64                  `json:"remainingCalories"`
	RemainingMacros   nutrition.MacroNutrients `json:"remainingMacros"`
}

// Summary is the folded view of one day.
type Summary struct {
	Day      time.Time                `json:"day"`
	Entries  int                      `json:"entries"`
	Calories float64                  `json:"calories"`
	Macros   nutrition.MacroNutrients `json:"macros"`
	Goals    nutrition.Goals          `json:"goals"`
	Progress Progress                 `json:"progress"`
}

// Summarize filters entries to ref's day with match and totals them against
// goals. A nil match means SameCalendarDay.
func Summarize(entries []nutrition.MealEntry, ref time.Time, goals nutrition.Goals, match DayMatcher) Summary {
	if match == nil {
		match = SameCalendarDay
	}
	today := Filter(entries, ref, match)
	s := Summary{
		Day:      ref,
		Entries:  len(today),
		Calories: SumCalories(today),
		Macros:   SumMacros(today),
		Goals:    goals,
	}
	s.Progress = progress(s.Calories, s.Macros, goals)
	return s
}

func progress(calories float64, macros nutrition.MacroNutrients, goals nutrition.Goals) Progress {
	var p Progress
	if goals.Calories > 0 {
		p.CaloriePercent = math.Min(calories/goals.Calories*100, 100)
	}
	p.RemainingCalories = math.Max(goals.Calories-calories, 0)
	p.RemainingMacros = nutrition.MacroNutrients{
		Protein: math.Max(goals.Protein-macros.Protein, 0),
		Carbs:   math.Max(goals.Carbs-macros.Carbs, 0),
		Fat:     math.Max(goals.Fat-macros.Fat, 0),
	}
	return p
}

// Order is a log listing order.
type Order string

const (
	OrderTimeDesc     Order = "time_desc"
	OrderTimeAsc      Order = "time_asc"
	OrderCaloriesDesc Order = "cals_desc"
	OrderCaloriesAsc  Order = "cals_asc"
)

// ParseOrder accepts the order names and a few short forms; anything else is
// OrderTimeDesc.
func ParseOrder(s string) Order {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(OrderTimeAsc), "oldest":
		return OrderTimeAsc
	case string(OrderCaloriesDesc), "highest":
		return OrderCaloriesDesc
	case string(OrderCaloriesAsc), "lowest":
		return OrderCaloriesAsc
	}
	return OrderTimeDesc
}

// Sort returns a sorted copy of entries. Ties keep their log order.
func Sort(entries []nutrition.MealEntry, order Order) []nutrition.MealEntry {
	out := make([]nutrition.MealEntry, len(entries))
	copy(out, entries)

	var less func(a, b nutrition.MealEntry) bool
	switch order {
	case OrderTimeAsc:
		less = func(a, b nutrition.MealEntry) bool { return a.Timestamp.Before(b.Timestamp) }
	case OrderCaloriesDesc:
		less = func(a, b nutrition.MealEntry) bool { return a.Calories > b.Calories }
	case OrderCaloriesAsc:
		less = func(a, b nutrition.MealEntry) bool { return a.Calories < b.Calories }
	default:
		less = func(a, b nutrition.MealEntry) bool { return a.Timestamp.After(b.Timestamp) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
