package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stellarlinkco/nutrisnap/internal/analysis"
	"github.com/stellarlinkco/nutrisnap/internal/bus"
	"github.com/stellarlinkco/nutrisnap/internal/config"
	"github.com/stellarlinkco/nutrisnap/internal/cron"
	"github.com/stellarlinkco/nutrisnap/internal/gateway"
	"github.com/stellarlinkco/nutrisnap/internal/logging"
)

const replChatID = "local"

// Options carries the injectable pieces of every command (allows mocking in tests)
type Options struct {
	ProviderFactory gateway.ProviderFactory
	Stdin           io.Reader
	Stdout          io.Writer
	Stderr          io.Writer
}

// DefaultProviderFactory refuses to build a provider without an API key.
func DefaultProviderFactory(ctx context.Context, cfg config.ProviderConfig) (analysis.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not set. Run 'nutrisnap onboard' or set NUTRISNAP_API_KEY / GEMINI_API_KEY")
	}
	return analysis.New(ctx, cfg)
}

func (o Options) withDefaults() Options {
	if o.ProviderFactory == nil {
		o.ProviderFactory = DefaultProviderFactory
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}

func commandOptions(cmd *cobra.Command) Options {
	return Options{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

var (
	jsonFlag bool

	cronExprFlag    string
	cronEveryFlag   time.Duration
	cronAtFlag      string
	cronMessageFlag string
	cronChannelFlag string
	cronToFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "nutrisnap",
	Short: "nutrisnap - meal photo nutrition estimates",
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Estimate the nutrition of one photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(commandContext(cmd), commandOptions(cmd), args[0])
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run a local chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(commandContext(cmd), commandOptions(cmd))
	},
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the gateway (channels + cron)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGateway(commandContext(cmd), commandOptions(cmd))
	},
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnboard(commandOptions(cmd))
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nutrisnap status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(commandOptions(cmd))
	},
}

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage scheduled jobs",
}

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCronList(commandOptions(cmd), cron.StorePath())
	},
}

var cronAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCronAdd(commandOptions(cmd), cron.StorePath(), args[0])
	},
}

var cronRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCronRemove(commandOptions(cmd), cron.StorePath(), args[0])
	},
}

var cronEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCronEnable(commandOptions(cmd), cron.StorePath(), args[0], true)
	},
}

var cronDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a scheduled job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCronEnable(commandOptions(cmd), cron.StorePath(), args[0], false)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the estimate as JSON")

	cronAddCmd.Flags().StringVar(&cronExprFlag, "cron", "", "Cron expression with seconds, e.g. \"0 0 21 * * *\"")
	cronAddCmd.Flags().DurationVar(&cronEveryFlag, "every", 0, "Fixed interval, e.g. 2h")
	cronAddCmd.Flags().StringVar(&cronAtFlag, "at", "", "One-shot time (RFC3339)")
	cronAddCmd.Flags().StringVarP(&cronMessageFlag, "message", "m", "", "Command (e.g. /today) or reminder text")
	cronAddCmd.Flags().StringVar(&cronChannelFlag, "channel", "", "Delivery channel (telegram, webui)")
	cronAddCmd.Flags().StringVar(&cronToFlag, "to", "", "Delivery chat ID")
	cronCmd.AddCommand(cronListCmd, cronAddCmd, cronRemoveCmd, cronEnableCmd, cronDisableCmd)

	rootCmd.AddCommand(analyzeCmd, replCmd, gatewayCmd, onboardCmd, statusCmd, cronCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(ctx context.Context, opts Options, path string) error {
	opts = opts.withDefaults()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	img, err := analysis.LoadFile(path)
	if err != nil {
		return err
	}
	provider, err := opts.ProviderFactory(ctx, cfg.Provider)
	if err != nil {
		return err
	}

	a, err := provider.Analyze(ctx, img)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	if jsonFlag {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}
	fmt.Fprintln(opts.Stdout, gateway.RenderAnalysis(a))
	return nil
}

func runREPL(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	provider, err := opts.ProviderFactory(ctx, cfg.Provider)
	if err != nil {
		return err
	}
	loc, err := cfg.Tracker.Location()
	if err != nil {
		return err
	}
	handler := gateway.NewHandler(provider, gateway.HandlerOptions{
		Goals:          cfg.Goals,
		Location:       loc,
		LegacyDayMatch: cfg.Tracker.LegacyDayMatch,
		Logger:         zap.NewNop(),
	})

	fmt.Fprintln(opts.Stdout, "nutrisnap repl (type 'exit' to quit, '/photo <path>' to send an image)")
	scanner := bufio.NewScanner(opts.Stdin)
	for {
		fmt.Fprint(opts.Stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		msg := bus.InboundMessage{
			Channel:   "cli",
			SenderID:  "cli",
			ChatID:    replChatID,
			Content:   input,
			Timestamp: time.Now(),
		}
		if path, ok := strings.CutPrefix(input, "/photo "); ok {
			img, err := analysis.LoadFile(strings.TrimSpace(path))
			if err != nil {
				fmt.Fprintf(opts.Stderr, "Error: %v\n", err)
				continue
			}
			msg.Content = ""
			msg.Attachments = []bus.Attachment{{MediaType: img.MIMEType, Data: img.Data, Name: path}}
		}

		reply := handler.Handle(ctx, msg)
		fmt.Fprintln(opts.Stdout, reply.Text)
		if line := renderActions(reply.Actions); line != "" {
			fmt.Fprintln(opts.Stdout, line)
		}
	}
	return scanner.Err()
}

func renderActions(actions []bus.Action) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, "["+a.Command+"]")
	}
	return strings.Join(parts, " ")
}

func runGateway(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gw, err := gateway.NewWithOptions(ctx, cfg, gateway.Options{
		ProviderFactory: opts.ProviderFactory,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(ctx)
}

func runOnboard(opts Options) error {
	opts = opts.withDefaults()
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(opts.Stdout, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(opts.Stdout, "Config already exists: %s\n", cfgPath)
	}

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fmt.Fprintf(opts.Stdout, "Data dir ready: %s\n", config.DataDir())

	fmt.Fprintln(opts.Stdout, "\nNext steps:")
	fmt.Fprintf(opts.Stdout, "  1. Edit %s to set your API key\n", cfgPath)
	fmt.Fprintln(opts.Stdout, "  2. Or set NUTRISNAP_API_KEY environment variable")
	fmt.Fprintln(opts.Stdout, "  3. Run 'nutrisnap analyze meal.jpg' to test")
	return nil
}

func runStatus(opts Options) error {
	opts = opts.withDefaults()
	out := opts.Stdout

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(out, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Config: %s\n", config.ConfigPath())
	fmt.Fprintf(out, "Provider: %s\n", cfg.Provider.Type)
	fmt.Fprintf(out, "Model: %s\n", cfg.Provider.ModelName())
	fmt.Fprintf(out, "API Key: %s\n", maskKey(cfg.Provider.APIKey))
	fmt.Fprintf(out, "Goals: %s kcal · P %sg · C %sg · F %sg\n",
		formatNum(cfg.Goals.Calories), formatNum(cfg.Goals.Protein),
		formatNum(cfg.Goals.Carbs), formatNum(cfg.Goals.Fat))

	tz := cfg.Tracker.Timezone
	if tz == "" {
		tz = "Local"
	}
	fmt.Fprintf(out, "Timezone: %s\n", tz)
	fmt.Fprintf(out, "Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Fprintf(out, "WebUI: enabled=%v\n", cfg.Channels.WebUI.Enabled)
	if cfg.Summary.Enabled {
		fmt.Fprintf(out, "Daily summary: %s to %s:%s\n", cfg.Summary.Schedule, cfg.Summary.Channel, cfg.Summary.To)
	} else {
		fmt.Fprintln(out, "Daily summary: off")
	}
	return nil
}

func maskKey(key string) string {
	switch {
	case key == "":
		return "not set"
	case len(key) > 8:
		return key[:4] + "..." + key[len(key)-4:]
	default:
		return "set"
	}
}

func formatNum(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func loadCron(path string) (*cron.Service, error) {
	svc := cron.NewService(path)
	if err := svc.Load(); err != nil {
		return nil, err
	}
	return svc, nil
}

func runCronList(opts Options, storePath string) error {
	opts = opts.withDefaults()
	svc, err := loadCron(storePath)
	if err != nil {
		return err
	}
	jobs := svc.ListJobs()
	if len(jobs) == 0 {
		fmt.Fprintln(opts.Stdout, "No jobs.")
		return nil
	}
	for _, job := range jobs {
		state := "on"
		if !job.Enabled {
			state = "off"
		}
		fmt.Fprintf(opts.Stdout, "%s  %-3s  %-24s  %s  %q", job.ID, state, job.Name, job.Schedule, job.Payload.Message)
		if job.Payload.Deliver {
			fmt.Fprintf(opts.Stdout, " -> %s:%s", job.Payload.Channel, job.Payload.To)
		}
		fmt.Fprintln(opts.Stdout)
	}
	return nil
}

// scheduleFromFlags takes exactly one of --cron, --every and --at.
func scheduleFromFlags() (cron.Schedule, error) {
	var schedules []cron.Schedule
	if cronExprFlag != "" {
		schedules = append(schedules, cron.Schedule{Kind: cron.KindCron, Expr: cronExprFlag})
	}
	if cronEveryFlag != 0 {
		schedules = append(schedules, cron.Schedule{Kind: cron.KindEvery, EveryMs: cronEveryFlag.Milliseconds()})
	}
	if cronAtFlag != "" {
		at, err := time.Parse(time.RFC3339, cronAtFlag)
		if err != nil {
			return cron.Schedule{}, fmt.Errorf("parse --at: %w", err)
		}
		schedules = append(schedules, cron.Schedule{Kind: cron.KindAt, AtMs: at.UnixMilli()})
	}
	if len(schedules) != 1 {
		return cron.Schedule{}, fmt.Errorf("set exactly one of --cron, --every or --at")
	}
	return schedules[0], nil
}

func runCronAdd(opts Options, storePath, name string) error {
	opts = opts.withDefaults()
	schedule, err := scheduleFromFlags()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cronMessageFlag) == "" {
		return fmt.Errorf("--message is required")
	}

	svc, err := loadCron(storePath)
	if err != nil {
		return err
	}
	job, err := svc.AddJob(name, schedule, cron.Payload{
		Message: cronMessageFlag,
		Deliver: cronChannelFlag != "" && cronToFlag != "",
		Channel: cronChannelFlag,
		To:      cronToFlag,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(opts.Stdout, "Added job %s (%s)\n", job.ID, job.Schedule)
	return nil
}

func runCronRemove(opts Options, storePath, id string) error {
	opts = opts.withDefaults()
	svc, err := loadCron(storePath)
	if err != nil {
		return err
	}
	if !svc.RemoveJob(id) {
		return fmt.Errorf("job %s not found", id)
	}
	fmt.Fprintf(opts.Stdout, "Removed job %s\n", id)
	return nil
}

func runCronEnable(opts Options, storePath, id string, enabled bool) error {
	opts = opts.withDefaults()
	svc, err := loadCron(storePath)
	if err != nil {
		return err
	}
	job, err := svc.EnableJob(id, enabled)
	if err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Fprintf(opts.Stdout, "Job %s %s\n", job.ID, state)
	return nil
}
