// Package lifecycle drives one meal analysis from capture through review to
// commit or discard.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
	"github.com/stellarlinkco/nutrisnap/internal/review"
)

// DefaultErrorText is shown when a provider fails without a message.
const DefaultErrorText = "Failed to analyze image. Please try again with a clearer photo."

var (
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrAnalysisInFlight  = errors.New("an analysis is already in progress")
)

type State int

const (
	Idle State = iota
	Capturing
	Analyzing
	Reviewing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Analyzing:
		return "analyzing"
	case Reviewing:
		return "reviewing"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Event int

const (
	EventStartCapture Event = iota
	EventCancelCapture
	EventCapture
	EventSucceed
	EventFail
	EventCommit
	EventDiscard
	EventReanalyze
	EventRetry
)

func (e Event) String() string {
	switch e {
	case EventStartCapture:
		return "start-capture"
	case EventCancelCapture:
		return "cancel-capture"
	case EventCapture:
		return "capture"
	case EventSucceed:
		return "succeed"
	case EventFail:
		return "fail"
	case EventCommit:
		return "commit"
	case EventDiscard:
		return "discard"
	case EventReanalyze:
		return "reanalyze"
	case EventRetry:
		return "retry"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var transitions = map[State]map[Event]State{
	Idle: {
		EventStartCapture: Capturing,
	},
	Capturing: {
		EventCapture:       Analyzing,
		EventCancelCapture: Idle,
	},
	Analyzing: {
		EventSucceed: Reviewing,
		EventFail:    Failed,
	},
	Reviewing: {
		EventCommit:    Idle,
		EventDiscard:   Idle,
		EventReanalyze: Analyzing,
	},
	Failed: {
		EventRetry: Idle,
	},
}

// TransitionError is returned for an event the current state does not accept.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Transition describes one state change, reported to observers.
type Transition struct {
	From  State
	To    State
	Event Event
}

// Machine is not safe for concurrent use.
type Machine struct {
	provider analysis.Provider
	observer func(Transition)

	state State
	image analysis.Image
	slot  *review.Slot
	err   error
}

type Option func(*Machine)

// WithObserver registers fn to be called after every transition.
func WithObserver(fn func(Transition)) Option {
	return func(m *Machine) { m.observer = fn }
}

func New(p analysis.Provider, opts ...Option) *Machine {
	m := &Machine{provider: p, state: Idle}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State { return m.state }

// Err is the provider error of the last failed analysis.
func (m *Machine) Err() error { return m.err }

// ErrorText is the message to show while Failed.
func (m *Machine) ErrorText() string {
	if m.err == nil {
		return ""
	}
	if msg := strings.TrimSpace(m.err.Error()); msg != "" {
		return msg
	}
	return DefaultErrorText
}

// Image is the captured photo, held from Capture until the machine is Idle.
func (m *Machine) Image() (analysis.Image, bool) {
	return m.image, len(m.image.Data) > 0
}

// Slot holds the estimate under review; nil outside Reviewing.
func (m *Machine) Slot() *review.Slot { return m.slot }

// Analysis is the estimate to display: the open draft if any, else the
// committed value.
func (m *Machine) Analysis() (nutrition.NutritionAnalysis, bool) {
	if m.slot == nil {
		return nutrition.NutritionAnalysis{}, false
	}
	return m.slot.Current(), true
}

func (m *Machine) StartCapture() error {
	return m.fire(EventStartCapture)
}

func (m *Machine) CancelCapture() error {
	return m.fire(EventCancelCapture)
}

// Capture submits img for analysis and blocks for the provider call. The
// machine ends in Reviewing or Failed; a provider error is returned as is.
func (m *Machine) Capture(ctx context.Context, img analysis.Image) error {
	if m.state == Analyzing {
		return ErrAnalysisInFlight
	}
	if err := m.check(EventCapture); err != nil {
		return err
	}
	m.image = img
	return m.analyze(ctx, EventCapture)
}

// Reanalyze discards the estimate under review and analyzes the same image
// again.
func (m *Machine) Reanalyze(ctx context.Context) error {
	if m.state == Analyzing {
		return ErrAnalysisInFlight
	}
	if err := m.check(EventReanalyze); err != nil {
		return err
	}
	return m.analyze(ctx, EventReanalyze)
}

// Commit ends the review and returns the committed estimate with its image.
// An open draft is not part of the result. The caller appends the log entry.
func (m *Machine) Commit() (nutrition.NutritionAnalysis, analysis.Image, error) {
	if err := m.check(EventCommit); err != nil {
		return nutrition.NutritionAnalysis{}, analysis.Image{}, err
	}
	a, img := m.slot.Committed(), m.image
	m.move(EventCommit)
	return a, img, nil
}

func (m *Machine) Discard() error {
	return m.fire(EventDiscard)
}

func (m *Machine) Retry() error {
	return m.fire(EventRetry)
}

// analyze runs the provider call. A panicking provider counts as a failure so
// the machine never stays in Analyzing.
func (m *Machine) analyze(ctx context.Context, ev Event) (err error) {
	m.move(ev)
	defer func() {
		if r := recover(); r != nil {
			if m.state != Analyzing {
				panic(r)
			}
			err = fmt.Errorf("analysis provider panicked: %v", r)
			m.err = err
			m.move(EventFail)
		}
	}()

	a, err := m.provider.Analyze(ctx, m.image)
	if err != nil {
		m.err = err
		m.move(EventFail)
		return err
	}
	m.slot = review.NewSlot(a)
	m.move(EventSucceed)
	return nil
}

func (m *Machine) fire(ev Event) error {
	if err := m.check(ev); err != nil {
		return err
	}
	m.move(ev)
	return nil
}

func (m *Machine) check(ev Event) error {
	if _, ok := transitions[m.state][ev]; !ok {
		return &TransitionError{From: m.state, Event: ev}
	}
	return nil
}

// move applies a checked transition and its entry actions.
func (m *Machine) move(ev Event) {
	from := m.state
	to := transitions[from][ev]

	switch to {
	case Idle:
		m.image = analysis.Image{}
		m.slot = nil
		m.err = nil
	case Analyzing:
		m.err = nil
		m.slot = nil
	case Reviewing:
		if m.slot == nil {
			panic("lifecycle: entering reviewing without an analysis")
		}
	}
	m.state = to

	if m.observer != nil {
		m.observer(Transition{From: from, To: to, Event: ev})
	}
}
