package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/channel"
	"github.com/stellarlinkco/nutrisnap/internal/config"
	"github.com/stellarlinkco/nutrisnap/internal/cron"
)

// SummaryJobName is the cron job that posts the daily summary.
const SummaryJobName = "__internal:daily-summary"

const (
	errorReply   = "Sorry, something went wrong handling that message."
	enqueueLimit = 5 * time.Second
)

// ProviderFactory builds the analysis provider (allows mocking in tests)
type ProviderFactory func(ctx context.Context, cfg config.ProviderConfig) (analysis.Provider, error)

// Options for creating a Gateway
type Options struct {
	ProviderFactory ProviderFactory
	Logger          *zap.Logger
	// Channels are registered next to the configured ones.
	Channels      []channel.Channel
	CronStorePath string
	SignalChan    chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	handler    *Handler
	channels   *channel.ChannelManager
	cron       *cron.Service
	logger     *zap.Logger
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	return NewWithOptions(ctx, cfg, Options{Logger: logger})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(ctx context.Context, cfg *config.Config, opts Options) (*Gateway, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cfg:        cfg,
		bus:        bus.NewMessageBus(config.DefaultBufSize),
		logger:     logger.Named("gateway"),
		signalChan: opts.SignalChan,
	}

	factory := opts.ProviderFactory
	if factory == nil {
		factory = analysis.New
	}
	provider, err := factory(ctx, cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("create analysis provider: %w", err)
	}

	loc, err := cfg.Tracker.Location()
	if err != nil {
		return nil, err
	}
	g.handler = NewHandler(provider, HandlerOptions{
		Goals:          cfg.Goals,
		Location:       loc,
		LegacyDayMatch: cfg.Tracker.LegacyDayMatch,
		Logger:         logger,
	})

	storePath := opts.CronStorePath
	if storePath == "" {
		storePath = cron.StorePath()
	}
	g.cron = cron.NewService(storePath)
	g.cron.SetLogger(logger)
	g.cron.OnJob = g.runJob

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Gateway, g.bus, logger)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	for _, ch := range opts.Channels {
		chMgr.Register(ch)
	}
	g.channels = chMgr

	return g, nil
}

// Handler exposes the message handler, e.g. for a local REPL.
func (g *Gateway) Handler() *Handler { return g.handler }

// runJob turns a due job into bus traffic. Commands are enqueued as inbound
// messages so that only the process loop touches sessions; any other text is
// delivered as a reminder.
func (g *Gateway) runJob(job cron.Job) (string, error) {
	p := job.Payload
	if !p.Deliver || p.Channel == "" || p.To == "" {
		return "", fmt.Errorf("job %s has no delivery target", job.Name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueLimit)
	defer cancel()

	if strings.HasPrefix(strings.TrimSpace(p.Message), "/") {
		err := g.bus.Publish(ctx, bus.InboundMessage{
			Channel:   p.Channel,
			SenderID:  "cron",
			ChatID:    p.To,
			Content:   p.Message,
			Timestamp: time.Now(),
			Metadata:  map[string]any{"job": job.ID},
		})
		if err != nil {
			return "", fmt.Errorf("enqueue %s: %w", p.Message, err)
		}
		return "queued " + p.Message, nil
	}

	select {
	case g.bus.Outbound <- bus.OutboundMessage{Channel: p.Channel, ChatID: p.To, Content: "⏰ " + p.Message}:
		return "delivered", nil
	case <-ctx.Done():
		return "", fmt.Errorf("deliver reminder: %w", ctx.Err())
	}
}

// ensureSummaryJob keeps the daily summary job in line with the config.
func (g *Gateway) ensureSummaryJob() error {
	sc := g.cfg.Summary
	if !sc.Enabled || sc.Channel == "" || sc.To == "" {
		for _, job := range g.cron.ListJobs() {
			if job.Name == SummaryJobName {
				g.cron.RemoveJob(job.ID)
			}
		}
		return nil
	}

	expr := sc.Schedule
	if expr == "" {
		expr = config.DefaultSummarySchedule
	}
	_, err := g.cron.EnsureJob(SummaryJobName,
		cron.Schedule{Kind: cron.KindCron, Expr: expr},
		cron.Payload{Message: "/today", Deliver: true, Channel: sc.Channel, To: sc.To})
	return err
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		_ = g.channels.StopAll()
		return fmt.Errorf("start channels: %w", err)
	}
	g.logger.Info("channels started", zap.Strings("channels", g.channels.EnabledChannels()))

	if err := g.cron.Start(ctx); err != nil {
		g.logger.Warn("cron start", zap.Error(err))
	}
	if err := g.ensureSummaryJob(); err != nil {
		g.logger.Warn("ensure summary job", zap.Error(err))
	}

	go g.processLoop(ctx)

	g.logger.Info("running", zap.String("host", g.cfg.Gateway.Host), zap.Int("port", g.cfg.Gateway.Port))

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	g.logger.Info("shutting down")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.logger.Info("inbound",
				zap.String("channel", msg.Channel),
				zap.String("sender", msg.SenderID),
				zap.String("content", truncate(msg.Content, 80)),
				zap.Int("attachments", len(msg.Attachments)))

			reply := g.handle(ctx, msg)
			if reply.Text == "" {
				continue
			}
			select {
			case g.bus.Outbound <- bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: reply.Text,
				Actions: reply.Actions,
			}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// handle keeps a failing message from taking the loop down.
func (g *Gateway) handle(ctx context.Context, msg bus.InboundMessage) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("handler panic", zap.String("session", msg.SessionKey()), zap.Any("panic", r))
			reply = Reply{Text: errorReply}
		}
	}()
	return g.handler.Handle(ctx, msg)
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	g.logger.Info("shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
