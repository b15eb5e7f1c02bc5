// Package session ties the analysis lifecycle, the meal log, the goals and the
// insight rules of one user together.
package session

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/insight"
	"github.com/stellarlinkco/nutrisnap/internal/lifecycle"
	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
	"github.com/stellarlinkco/nutrisnap/internal/tracker"
)

type Options struct {
	Goals          nutrition.Goals
	Location       *time.Location
	LegacyDayMatch bool
	Insights       *insight.Engine
	Now            func() time.Time
	NewID          func() string
	Observer       func(lifecycle.Transition)
}

// Session is owned by a single goroutine; nothing in it is locked.
type Session struct {
	id       string
	machine  *lifecycle.Machine
	log      *tracker.Log
	goals    nutrition.Goals
	loc      *time.Location
	match    tracker.DayMatcher
	insights *insight.Engine
	now      func() time.Time
	newID    func() string
}

// New starts a session with an empty log in the Idle state.
func New(id string, p analysis.Provider, opts Options) *Session {
	s := &Session{
		id:       id,
		log:      tracker.NewLog(),
		goals:    opts.Goals.WithDefaults(),
		loc:      opts.Location,
		match:    tracker.SameCalendarDay,
		insights: opts.Insights,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	var mopts []lifecycle.Option
	if opts.Observer != nil {
		mopts = append(mopts, lifecycle.WithObserver(opts.Observer))
	}
	s.machine = lifecycle.New(p, mopts...)

	if s.loc == nil {
		s.loc = time.Local
	}
	if opts.LegacyDayMatch {
		s.match = tracker.SameDayOfMonth
	}
	if s.insights == nil {
		s.insights = insight.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = s.defaultID
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Machine() *lifecycle.Machine { return s.machine }

func (s *Session) Goals() nutrition.Goals { return s.goals }

// Now is the session clock in the session's location.
func (s *Session) Now() time.Time { return s.now().In(s.loc) }

// CurrentLog returns the meal log, newest first.
func (s *Session) CurrentLog() []nutrition.MealEntry {
	return s.log.Entries()
}

// SortedLog returns the meal log in the given order.
func (s *Session) SortedLog(order tracker.Order) []nutrition.MealEntry {
	return tracker.Sort(s.log.Entries(), order)
}

// CommitAnalysis appends a committed estimate to the log.
func (s *Session) CommitAnalysis(a nutrition.NutritionAnalysis, img analysis.Image) nutrition.MealEntry {
	e := nutrition.MealEntry{
		ID:        s.newID(),
		Name:      a.MealName(),
		Calories:  a.TotalCalories,
		Timestamp: s.Now(),
		Macros:    a.Macros,
	}
	if len(img.Data) > 0 {
		e.ImageSrc = img.DataURL()
	}
	s.log.Prepend(e)
	return e
}

// Commit ends the review in progress and logs its committed estimate.
func (s *Session) Commit() (nutrition.MealEntry, error) {
	a, img, err := s.machine.Commit()
	if err != nil {
		return nutrition.MealEntry{}, err
	}
	return s.CommitAnalysis(a, img), nil
}

// QuickAdd logs the insight's fixed payload without an image.
func (s *Session) QuickAdd(in nutrition.Insight) nutrition.MealEntry {
	e := nutrition.MealEntry{
		ID:        s.newID(),
		Name:      in.QuickAdd.Name,
		Calories:  in.QuickAdd.Calories,
		Timestamp: s.Now(),
		Macros:    in.QuickAdd.Macros,
	}
	s.log.Prepend(e)
	return e
}

// Today summarises the log for the current day.
func (s *Session) Today() tracker.Summary {
	return tracker.Summarize(s.log.Entries(), s.Now(), s.goals, s.match)
}

// Insight derives the suggestion for today's macros.
func (s *Session) Insight() nutrition.Insight {
	return s.insights.Derive(s.Today().Macros)
}

// Suggestion is Insight together with the name of the rule that produced it.
func (s *Session) Suggestion() (string, nutrition.Insight) {
	today := s.Today().Macros
	return s.insights.RuleName(today), s.insights.Derive(today)
}

// InsightByRule returns the named rule's insight whatever today's totals are.
func (s *Session) InsightByRule(name string) (nutrition.Insight, bool) {
	return s.insights.Lookup(name)
}

func (s *Session) defaultID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return strconv.FormatInt(s.now().UnixNano(), 10)
	}
	return id.String()
}
