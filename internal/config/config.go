package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/nutrisnap/internal/nutrition"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultProvider        = ProviderGemini
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultAnthropicModel  = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultMaxTokens       = 2048
	DefaultTimeoutSeconds  = 60
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 18791
	DefaultBufSize         = 100
	DefaultSummarySchedule = "0 0 21 * * *"
	DefaultLogLevel        = "info"
)

type Config struct {
	Provider ProviderConfig  `json:"provider" yaml:"provider"`
	Channels ChannelsConfig  `json:"channels" yaml:"channels"`
	Gateway  GatewayConfig   `json:"gateway" yaml:"gateway"`
	Goals    nutrition.Goals `json:"goals" yaml:"goals"`
	Tracker  TrackerConfig   `json:"tracker" yaml:"tracker"`
	Summary  SummaryConfig   `json:"summary" yaml:"summary"`
	Log      LogConfig       `json:"log" yaml:"log"`
}

type ProviderConfig struct {
	Type           string `json:"type,omitempty" yaml:"type,omitempty"` // "gemini" (default), "anthropic" or "openai"
	APIKey         string `json:"apiKey" yaml:"apiKey"`
	BaseURL        string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens      int    `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// Timeout bounds one analysis call.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ModelName is the configured model or the default for the provider type.
func (p ProviderConfig) ModelName() string {
	if m := strings.TrimSpace(p.Model); m != "" {
		return m
	}
	switch p.Type {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	}
	return DefaultGeminiModel
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	WebUI    WebUIConfig    `json:"webui" yaml:"webui"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Token     string   `json:"token" yaml:"token"`
	AllowFrom []string `json:"allowFrom" yaml:"allowFrom"`
	Proxy     string   `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	AllowFrom []string `json:"allowFrom" yaml:"allowFrom"`
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type TrackerConfig struct {
	Timezone       string `json:"timezone,omitempty" yaml:"timezone,omitempty"` // IANA name; empty means local time
	LegacyDayMatch bool   `json:"legacyDayMatch" yaml:"legacyDayMatch"`
}

// Location resolves Timezone, falling back to time.Local.
func (t TrackerConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(t.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", t.Timezone, err)
	}
	return loc, nil
}

type SummaryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Channel  string `json:"channel,omitempty" yaml:"channel,omitempty"`
	To       string `json:"to,omitempty" yaml:"to,omitempty"`
}

type LogConfig struct {
	Level       string `json:"level,omitempty" yaml:"level,omitempty"`
	Development bool   `json:"development" yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:           DefaultProvider,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Channels: ChannelsConfig{},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Goals: nutrition.DefaultGoals(),
		Summary: SummaryConfig{
			Schedule: DefaultSummarySchedule,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".nutrisnap")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// YAMLConfigPath is read instead of ConfigPath when it exists.
func YAMLConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func DataDir() string {
	return filepath.Join(ConfigDir(), "data")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(YAMLConfigPath()); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read yaml config: %w", err)
	} else {
		data, err := os.ReadFile(ConfigPath())
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	// Defaults pass
	cfg.Provider.Type = strings.ToLower(strings.TrimSpace(cfg.Provider.Type))
	if cfg.Provider.Type == "" {
		cfg.Provider.Type = DefaultProvider
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}
	if cfg.Summary.Schedule == "" {
		cfg.Summary.Schedule = DefaultSummarySchedule
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	cfg.Goals = cfg.Goals.WithDefaults()

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if t := os.Getenv("NUTRISNAP_PROVIDER"); t != "" {
		cfg.Provider.Type = t
	}
	if key := os.Getenv("NUTRISNAP_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	// Vendor keys only fill an empty key, and only for their own provider.
	vendorKeys := map[string][]string{
		ProviderGemini:    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		ProviderAnthropic: {"ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN"},
		ProviderOpenAI:    {"OPENAI_API_KEY"},
	}
	providerType := strings.ToLower(strings.TrimSpace(cfg.Provider.Type))
	if providerType == "" {
		providerType = DefaultProvider
	}
	for _, name := range vendorKeys[providerType] {
		if key := os.Getenv(name); key != "" && cfg.Provider.APIKey == "" {
			cfg.Provider.APIKey = key
		}
	}
	if model := os.Getenv("NUTRISNAP_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if url := os.Getenv("NUTRISNAP_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if token := os.Getenv("NUTRISNAP_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if tz := os.Getenv("NUTRISNAP_TIMEZONE"); tz != "" {
		cfg.Tracker.Timezone = tz
	}
	if legacy := os.Getenv("NUTRISNAP_LEGACY_DAY_MATCH"); legacy != "" {
		if parsed, err := strconv.ParseBool(legacy); err == nil {
			cfg.Tracker.LegacyDayMatch = parsed
		}
	}
	if level := os.Getenv("NUTRISNAP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
