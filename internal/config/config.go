package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/orion/internal/core"
	"github.com/spf13/viper"
)

// Feed types
const (
	FeedAuto      = ""
	FeedWebsocket = "websocket"
	FeedRedis     = "redis"
	FeedSimulator = "simulator"
)

// Environment variables understood for compatibility with the dashboard deployment.
const (
	EnvLineToken       = "VITE_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineUserID      = "VITE_LINE_USER_ID"
	EnvSignalWSURL     = "VITE_SIGNAL_WS_URL"
	EnvTelegramWebhook = "VITE_TELEGRAM_WEBHOOK"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Log        LogConfig                 `mapstructure:"log"`
	Store      StoreConfig               `mapstructure:"store"`
	Feed       FeedConfig                `mapstructure:"feed"`
	Simulator  SimulatorConfig           `mapstructure:"simulator"`
	Dispatcher DispatcherConfig          `mapstructure:"dispatcher"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	DashboardURL string `mapstructure:"dashboard_url"`
	// IngestToken guards the POST endpoints when set
	IngestToken string `mapstructure:"ingest_token"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StoreConfig bounds the signal board.
type StoreConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Expiry   time.Duration `mapstructure:"expiry"`
}

// FeedConfig selects the signal source. An empty type picks websocket when
// a URL is set, redis when an address is set, and the simulator otherwise.
type FeedConfig struct {
	Type          string        `mapstructure:"type"`
	URL           string        `mapstructure:"url"`
	Token         string        `mapstructure:"token"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisChannel  string        `mapstructure:"redis_channel"`
	BackoffMin    time.Duration `mapstructure:"backoff_min"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
}

// SimulatorConfig holds the demo data ranges.
type SimulatorConfig struct {
	IntervalMin        time.Duration `mapstructure:"interval_min"`
	IntervalMax        time.Duration `mapstructure:"interval_max"`
	ResolveMin         time.Duration `mapstructure:"resolve_min"`
	ResolveMax         time.Duration `mapstructure:"resolve_max"`
	ConfirmProbability float64       `mapstructure:"confirm_probability"`
	InitialSignals     int           `mapstructure:"initial_signals"`
	MaxTakeProfits     int           `mapstructure:"max_take_profits"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	Symbols            []string      `mapstructure:"symbols"`
}

type DispatcherConfig struct {
	MinConfidence float64       `mapstructure:"min_confidence"`
	Symbols       []string      `mapstructure:"symbols"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type NotifierConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// LINE fields
	Token   string `mapstructure:"token"`
	UserID  string `mapstructure:"user_id"`
	BaseURL string `mapstructure:"base_url"`
	// Telegram fields
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	URL      string `mapstructure:"url"`
	// Email notifier fields
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
	// Webhook notifier fields
	Headers map[string]string `mapstructure:"headers"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file, layered over Defaults. A .env file in
// the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// FromEnv returns Defaults with the dashboard environment variables applied.
func FromEnv() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := Defaults()
	applyEnv(cfg)
	return cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// applyEnv fills settings still unset from the dashboard variables.
func applyEnv(cfg *Config) {
	if cfg.Notifiers == nil {
		cfg.Notifiers = make(map[string]NotifierConfig)
	}

	if token := os.Getenv(EnvLineToken); token != "" {
		line := cfg.Notifiers["line"]
		if line.Token == "" {
			line.Token = token
			line.Enabled = true
		}
		if line.UserID == "" {
			line.UserID = os.Getenv(EnvLineUserID)
		}
		cfg.Notifiers["line"] = line
	}

	if hook := os.Getenv(EnvTelegramWebhook); hook != "" {
		tg := cfg.Notifiers["telegram"]
		if tg.URL == "" && tg.BotToken == "" {
			tg.URL = hook
			tg.Enabled = true
		}
		cfg.Notifiers["telegram"] = tg
	}

	if url := os.Getenv(EnvSignalWSURL); url != "" && cfg.Feed.URL == "" {
		cfg.Feed.URL = url
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			DashboardURL: "https://orion-signal-dashboard.vercel.app",
		},
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Capacity: 20,
			Expiry:   5 * time.Minute,
		},
		Feed: FeedConfig{
			RedisChannel: "orion:signals",
			BackoffMin:   1 * time.Second,
			BackoffMax:   30 * time.Second,
			PingInterval: 30 * time.Second,
		},
		Simulator: SimulatorConfig{
			IntervalMin:        5 * time.Second,
			IntervalMax:        15 * time.Second,
			ResolveMin:         15 * time.Second,
			ResolveMax:         45 * time.Second,
			ConfirmProbability: 0.7,
			InitialSignals:     3,
			MaxTakeProfits:     4,
			TickInterval:       2 * time.Second,
			Symbols:            []string{"MNQ", "NQ", "MES"},
		},
		Dispatcher: DispatcherConfig{
			Timeout: 10 * time.Second,
		},
		Notifiers: map[string]NotifierConfig{},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// FeedType resolves the effective feed type.
func (c *Config) FeedType() string {
	if c.Feed.Type != FeedAuto {
		return c.Feed.Type
	}
	switch {
	case c.Feed.URL != "":
		return FeedWebsocket
	case c.Feed.RedisAddr != "":
		return FeedRedis
	default:
		return FeedSimulator
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Store.Capacity < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("store capacity must be positive, got %d", c.Store.Capacity))
	}
	if c.Store.Expiry <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("store expiry must be positive, got %s", c.Store.Expiry))
	}

	if c.Dispatcher.MinConfidence < 0 || c.Dispatcher.MinConfidence > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_confidence must be between 0 and 1, got %f", c.Dispatcher.MinConfidence))
	}

	switch c.FeedType() {
	case FeedWebsocket:
		if c.Feed.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("feed url required when feed type is websocket"))
		}
	case FeedRedis:
		if c.Feed.RedisAddr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("feed redis_addr required when feed type is redis"))
		}
	case FeedSimulator:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown feed type %q", c.Feed.Type))
	}

	sim := c.Simulator
	if sim.IntervalMin <= 0 || sim.IntervalMax < sim.IntervalMin {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulator interval range invalid: [%s, %s)", sim.IntervalMin, sim.IntervalMax))
	}
	if sim.ResolveMin <= 0 || sim.ResolveMax < sim.ResolveMin {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("simulator resolve range invalid: [%s, %s)", sim.ResolveMin, sim.ResolveMax))
	}
	if sim.ConfirmProbability < 0 || sim.ConfirmProbability > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("confirm_probability must be between 0 and 1, got %f", sim.ConfirmProbability))
	}

	if line, ok := c.Notifiers["line"]; ok && line.Enabled && line.Token == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("line token required when line notifier is enabled"))
	}

	return nil
}
