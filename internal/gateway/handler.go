package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/insight"
	"github.com/stellarlinkco/nutrisnap/internal/lifecycle"
	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
	"github.com/stellarlinkco/nutrisnap/internal/review"
	"github.com/stellarlinkco/nutrisnap/internal/session"
	"github.com/stellarlinkco/nutrisnap/internal/tracker"
)

// Reply is the answer to one inbound message. Actions are the follow-up
// commands that make sense in the session's new state.
type Reply struct {
	Text    string
	Actions []bus.Action
}

type HandlerOptions struct {
	Goals          nutrition.Goals
	Location       *time.Location
	LegacyDayMatch bool
	Insights       *insight.Engine
	Now            func() time.Time
	NewID          func() string
	Logger         *zap.Logger
}

type command func(ctx context.Context, s *session.Session, args []string) Reply

// Handler maps chat input onto session operations. It keeps one session per
// channel:chat key and is not safe for concurrent use.
type Handler struct {
	provider analysis.Provider
	opts     HandlerOptions
	logger   *zap.Logger
	sessions map[string]*session.Session
	commands map[string]command
}

func NewHandler(p analysis.Provider, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		provider: p,
		opts:     opts,
		logger:   logger.Named("handler"),
		sessions: make(map[string]*session.Session),
	}
	h.commands = map[string]command{
		"/start":     h.help,
		"/help":      h.help,
		"/scan":      h.scan,
		"/cancel":    h.cancel,
		"/commit":    h.commit,
		"/add":       h.commit,
		"/discard":   h.discard,
		"/back":      h.discard,
		"/reanalyze": h.reanalyze,
		"/retry":     h.retry,
		"/edit":      h.edit,
		"/set":       h.set,
		"/item":      h.item,
		"/additem":   h.addItem,
		"/delitem":   h.deleteItem,
		"/save":      h.save,
		"/today":     h.today,
		"/suggest":   h.suggest,
		"/quickadd":  h.quickAdd,
		"/log":       h.log,
		"/share":     h.share,
	}
	return h
}

// Session returns the session for key, creating it on first use.
func (h *Handler) Session(key string) *session.Session {
	if s, ok := h.sessions[key]; ok {
		return s
	}
	logger := h.logger.With(zap.String("session", key))
	s := session.New(key, h.provider, session.Options{
		Goals:          h.opts.Goals,
		Location:       h.opts.Location,
		LegacyDayMatch: h.opts.LegacyDayMatch,
		Insights:       h.opts.Insights,
		Now:            h.opts.Now,
		NewID:          h.opts.NewID,
		Observer: func(t lifecycle.Transition) {
			logger.Debug("transition",
				zap.Stringer("from", t.From),
				zap.Stringer("to", t.To),
				zap.Stringer("event", t.Event))
		},
	})
	h.sessions[key] = s
	return s
}

// Handle runs msg against its session. An image attachment takes precedence
// over any text sent with it.
func (h *Handler) Handle(ctx context.Context, msg bus.InboundMessage) Reply {
	s := h.Session(msg.SessionKey())
	if att, ok := msg.Image(); ok {
		return h.photo(ctx, s, att)
	}

	name, args := parseCommand(msg.Content)
	if name == "" {
		return Reply{
			Text:    "Send me a photo of your meal for an estimate, or /help for commands.",
			Actions: stateActions(s.Machine()),
		}
	}
	cmd, ok := h.commands[name]
	if !ok {
		return Reply{
			Text:    fmt.Sprintf("Unknown command %s. Try /help.", name),
			Actions: stateActions(s.Machine()),
		}
	}
	return cmd(ctx, s, args)
}

// parseCommand splits "/cmd@bot a b" into "/cmd" and [a b]. Text that is not
// a command yields an empty name.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	name := strings.ToLower(fields[0])
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	return name, fields[1:]
}

func (h *Handler) photo(ctx context.Context, s *session.Session, att bus.Attachment) Reply {
	m := s.Machine()
	switch m.State() {
	case lifecycle.Reviewing, lifecycle.Analyzing:
		return h.invalid(s)
	case lifecycle.Failed:
		if err := m.Retry(); err != nil {
			return h.invalid(s)
		}
	}

	img, err := analysis.NewImage(att.Data, att.MediaType)
	if err != nil {
		h.logger.Warn("unreadable photo", zap.String("session", s.ID()), zap.Error(err))
		return Reply{
			Text:    "Could not read that image. Please try another photo.",
			Actions: stateActions(m),
		}
	}
	if m.State() == lifecycle.Idle {
		if err := m.StartCapture(); err != nil {
			return h.invalid(s)
		}
	}
	return h.analyzed(s, m.Capture(ctx, img))
}

// analyzed renders the outcome of Capture or Reanalyze.
func (h *Handler) analyzed(s *session.Session, err error) Reply {
	m := s.Machine()
	switch {
	case err == nil:
		a, _ := m.Analysis()
		return Reply{Text: renderAnalysis(a, false), Actions: stateActions(m)}
	case m.State() == lifecycle.Failed:
		h.logger.Warn("analysis failed", zap.String("session", s.ID()), zap.Error(err))
		return Reply{Text: "⚠️ " + m.ErrorText(), Actions: stateActions(m)}
	default:
		return h.invalid(s)
	}
}

// invalid answers an operation the current state does not allow.
func (h *Handler) invalid(s *session.Session) Reply {
	m := s.Machine()
	var text string
	switch m.State() {
	case lifecycle.Idle:
		text = "There is no meal under review. Send a photo to start."
	case lifecycle.Capturing:
		text = "Waiting for a photo. Send one, or /cancel."
	case lifecycle.Analyzing:
		text = "An analysis is already in progress."
	case lifecycle.Reviewing:
		text = "Finish the meal under review first: /commit or /discard it."
	case lifecycle.Failed:
		text = "The last analysis failed. Use /retry to start over."
	}
	return Reply{Text: text, Actions: stateActions(m)}
}

func (h *Handler) help(_ context.Context, s *session.Session, _ []string) Reply {
	return Reply{Text: helpText, Actions: stateActions(s.Machine())}
}

func (h *Handler) scan(_ context.Context, s *session.Session, _ []string) Reply {
	m := s.Machine()
	if err := m.StartCapture(); err != nil {
		return h.invalid(s)
	}
	return Reply{Text: "📷 Send a photo of your meal.", Actions: stateActions(m)}
}

// cancel leaves capture mode, or throws away the open edit.
func (h *Handler) cancel(_ context.Context, s *session.Session, _ []string) Reply {
	m := s.Machine()
	switch m.State() {
	case lifecycle.Capturing:
		if err := m.CancelCapture(); err != nil {
			return h.invalid(s)
		}
		return Reply{Text: "Cancelled.", Actions: stateActions(m)}
	case lifecycle.Reviewing:
		if d := m.Slot().Draft(); d != nil {
			m.Slot().Cancel(d)
			a, _ := m.Analysis()
			return Reply{Text: "Edit discarded.\n\n" + renderAnalysis(a, false), Actions: stateActions(m)}
		}
	}
	return Reply{Text: "Nothing to cancel.", Actions: stateActions(m)}
}

func (h *Handler) commit(_ context.Context, s *session.Session, _ []string) Reply {
	e, err := s.Commit()
	if err != nil {
		return h.invalid(s)
	}
	h.logger.Info("meal logged", zap.String("session", s.ID()), zap.String("meal", e.Name), zap.Float64("calories", e.Calories))
	text := fmt.Sprintf("✅ Logged **%s** (%s kcal).\n\n%s", e.Name, nutrition.FormatNumber(e.Calories), renderSummary(s.Today()))
	return Reply{Text: text, Actions: stateActions(s.Machine())}
}

func (h *Handler) discard(_ context.Context, s *session.Session, _ []string) Reply {
	m := s.Machine()
	if err := m.Discard(); err != nil {
		return h.invalid(s)
	}
	return Reply{Text: "Discarded. Nothing was logged.", Actions: stateActions(m)}
}

func (h *Handler) reanalyze(ctx context.Context, s *session.Session, _ []string) Reply {
	return h.analyzed(s, s.Machine().Reanalyze(ctx))
}

func (h *Handler) retry(_ context.Context, s *session.Session, _ []string) Reply {
	m := s.Machine()
	if err := m.Retry(); err != nil {
		return h.invalid(s)
	}
	return Reply{Text: "Ready. Send another photo when you are.", Actions: stateActions(m)}
}

func (h *Handler) edit(_ context.Context, s *session.Session, _ []string) Reply {
	m := s.Machine()
	if m.State() != lifecycle.Reviewing {
		return h.invalid(s)
	}
	d := m.Slot().BeginEdit()
	return Reply{Text: renderAnalysis(d.Analysis(), true), Actions: stateActions(m)}
}

// draft returns the open draft, or the reply explaining why there is none.
func (h *Handler) draft(s *session.Session) (*review.Draft, Reply, bool) {
	m := s.Machine()
	if m.State() != lifecycle.Reviewing {
		return nil, h.invalid(s), false
	}
	d := m.Slot().Draft()
	if d == nil {
		return nil, Reply{Text: "No edit in progress. Use /edit first.", Actions: stateActions(m)}, false
	}
	return d, Reply{}, true
}

// edited renders the draft after a change.
func (h *Handler) edited(s *session.Session, d *review.Draft) Reply {
	return Reply{Text: renderAnalysis(d.Analysis(), true), Actions: stateActions(s.Machine())}
}

func (h *Handler) set(_ context.Context, s *session.Session, args []string) Reply {
	d, reply, ok := h.draft(s)
	if !ok {
		return reply
	}
	const usage = "Usage: /set <calories|protein|carbs|fat> <value>"
	if len(args) < 2 {
		return Reply{Text: usage, Actions: stateActions(s.Machine())}
	}
	value := strings.Join(args[1:], " ")
	if f, ok := review.ParseField(args[0]); ok && f == review.FieldCalories {
		d.SetTotalCalories(value)
		return h.edited(s, d)
	}
	macro, ok := review.ParseMacro(args[0])
	if !ok {
		return Reply{Text: usage, Actions: stateActions(s.Machine())}
	}
	d.SetMacro(macro, value)
	return h.edited(s, d)
}

// itemIndex converts a 1-based user index into a draft index.
func itemIndex(d *review.Draft, arg string) (int, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > d.Len() {
		return 0, false
	}
	return n - 1, true
}

func (h *Handler) item(_ context.Context, s *session.Session, args []string) Reply {
	d, reply, ok := h.draft(s)
	if !ok {
		return reply
	}
	usage := Reply{
		Text:    fmt.Sprintf("Usage: /item <1-%d> <name|calories|protein|carbs|fat> <value>", d.Len()),
		Actions: stateActions(s.Machine()),
	}
	if len(args) < 2 {
		return usage
	}
	idx, ok := itemIndex(d, args[0])
	if !ok {
		return usage
	}
	field, ok := review.ParseField(args[1])
	if !ok {
		return usage
	}
	d.SetFoodItemField(idx, field, strings.Join(args[2:], " "))
	return h.edited(s, d)
}

func (h *Handler) addItem(_ context.Context, s *session.Session, _ []string) Reply {
	d, reply, ok := h.draft(s)
	if !ok {
		return reply
	}
	d.AddFoodItem()
	return h.edited(s, d)
}

func (h *Handler) deleteItem(_ context.Context, s *session.Session, args []string) Reply {
	d, reply, ok := h.draft(s)
	if !ok {
		return reply
	}
	if len(args) != 1 {
		return Reply{Text: "Usage: /delitem <n>", Actions: stateActions(s.Machine())}
	}
	idx, ok := itemIndex(d, args[0])
	if !ok {
		return Reply{Text: fmt.Sprintf("No item %s. Items are numbered 1 to %d.", args[0], d.Len()), Actions: stateActions(s.Machine())}
	}
	d.DeleteFoodItem(idx)
	return h.edited(s, d)
}

func (h *Handler) save(_ context.Context, s *session.Session, _ []string) Reply {
	d, reply, ok := h.draft(s)
	if !ok {
		return reply
	}
	a, err := s.Machine().Slot().Commit(d)
	if err != nil {
		if errors.Is(err, review.ErrStaleDraft) {
			return Reply{Text: "That edit is no longer open. Use /edit again.", Actions: stateActions(s.Machine())}
		}
		return h.invalid(s)
	}
	return Reply{Text: "Saved.\n\n" + renderAnalysis(a, false), Actions: stateActions(s.Machine())}
}

func (h *Handler) today(_ context.Context, s *session.Session, _ []string) Reply {
	return Reply{Text: renderSummary(s.Today()), Actions: stateActions(s.Machine())}
}

func (h *Handler) suggest(_ context.Context, s *session.Session, _ []string) Reply {
	rule, in := s.Suggestion()
	return Reply{
		Text: renderInsight(in),
		Actions: append([]bus.Action{
			{Label: "Quick add " + in.Highlight, Command: "/quickadd " + rule},
		}, stateActions(s.Machine())...),
	}
}

// quickAdd logs a suggestion's payload. With a rule name it logs that rule's
// payload, as offered by /suggest; without one it uses today's suggestion.
func (h *Handler) quickAdd(_ context.Context, s *session.Session, args []string) Reply {
	in := s.Insight()
	if len(args) > 0 {
		var ok bool
		if in, ok = s.InsightByRule(args[0]); !ok {
			return Reply{
				Text:    fmt.Sprintf("Unknown suggestion %q. Use /suggest for a fresh one.", args[0]),
				Actions: stateActions(s.Machine()),
			}
		}
	}
	e := s.QuickAdd(in)
	text := fmt.Sprintf("✅ Logged **%s** (%s kcal).\n\n%s", e.Name, nutrition.FormatNumber(e.Calories), renderSummary(s.Today()))
	return Reply{Text: text, Actions: stateActions(s.Machine())}
}

func (h *Handler) log(_ context.Context, s *session.Session, args []string) Reply {
	order := tracker.OrderTimeDesc
	if len(args) > 0 {
		order = tracker.ParseOrder(args[0])
	}
	return Reply{Text: renderLog(s.SortedLog(order), s.Now().Location()), Actions: stateActions(s.Machine())}
}

// share formats the estimate under review, draft included.
func (h *Handler) share(_ context.Context, s *session.Session, _ []string) Reply {
	a, ok := s.Machine().Analysis()
	if !ok {
		return Reply{Text: "Nothing to share yet. Send a photo first.", Actions: stateActions(s.Machine())}
	}
	return Reply{Text: nutrition.ShareText(a), Actions: stateActions(s.Machine())}
}
