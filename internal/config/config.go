package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/storage"
	"github.com/spf13/viper"
)

// Config holds all Ad Spend Guardian configuration.
type Config struct {
	Storage    StorageConfig      `mapstructure:"storage"`
	History    HistoryConfig      `mapstructure:"history"`
	Cooldown   CooldownConfig     `mapstructure:"cooldown"`
	Alerts     AlertsConfig       `mapstructure:"alerts"`
	Thresholds monitor.Thresholds `mapstructure:"thresholds"`
	Calendar   CalendarConfig     `mapstructure:"calendar"`
	Schedule   ScheduleConfig     `mapstructure:"schedule"`
	Plan       PlanConfig         `mapstructure:"plan"`
	Channels   []ChannelConfig    `mapstructure:"channels"`
	Server     ServerConfig       `mapstructure:"server"`
	Logging    LoggingConfig      `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig selects where the alert cooldown history lives.
type HistoryConfig struct {
	Backend string              `mapstructure:"backend"` // sqlite, memory or redis
	KeyMode string              `mapstructure:"key_mode"`
	Redis   storage.RedisConfig `mapstructure:"redis"`
}

// CooldownConfig sets the minimum interval between notifications per severity.
type CooldownConfig struct {
	Info     string `mapstructure:"info"`
	Warning  string `mapstructure:"warning"`
	Critical string `mapstructure:"critical"`
	Exceeded string `mapstructure:"exceeded"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Desktop DesktopConfig `mapstructure:"desktop"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// DesktopConfig defines local desktop notification settings.
type DesktopConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	MinLevel string `mapstructure:"min_level"`
}

// CalendarConfig defines expected spend on low-traffic days.
type CalendarConfig struct {
	WeekendSpendMultiplier float64  `mapstructure:"weekend_spend_multiplier"`
	HolidaySpendMultiplier float64  `mapstructure:"holiday_spend_multiplier"`
	Holidays               []string `mapstructure:"holidays"`
}

// ScheduleConfig defines how often the daemon evaluates.
type ScheduleConfig struct {
	CheckIntervalHours float64 `mapstructure:"check_interval_hours"`
}

// PlanConfig points at an optional YAML budget plan.
type PlanConfig struct {
	Path string `mapstructure:"path"`
}

// ChannelConfig is one ad channel. Channels without a URL are read from
// the metrics recorded in storage.
type ChannelConfig struct {
	ID    string `mapstructure:"id"`
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables. A .env
// file in the working directory is applied to the environment first.
func Load(cfgFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".asg"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	th := monitor.DefaultThresholds()
	v.SetDefault("storage.path", filepath.Join(home, ".asg", "guardian.db"))
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.key_mode", string(monitor.KeyByLevel))
	v.SetDefault("history.redis.addr", "localhost:6379")
	v.SetDefault("history.redis.password", "")
	v.SetDefault("history.redis.db", 0)
	v.SetDefault("cooldown.info", "24h")
	v.SetDefault("cooldown.warning", "60m")
	v.SetDefault("cooldown.critical", "15m")
	v.SetDefault("cooldown.exceeded", "0s")
	v.SetDefault("alerts.slack.channel", "#ad-spend")
	v.SetDefault("alerts.desktop.min_level", string(model.LevelCritical))
	v.SetDefault("thresholds.budget_warning_pct", th.BudgetWarningPct)
	v.SetDefault("thresholds.budget_critical_pct", th.BudgetCriticalPct)
	v.SetDefault("thresholds.target_cac", th.TargetCAC)
	v.SetDefault("thresholds.cac_warning", th.CACWarning)
	v.SetDefault("thresholds.cac_critical", th.CACCritical)
	v.SetDefault("thresholds.daily_warning_pct", th.DailyWarningPct)
	v.SetDefault("thresholds.daily_critical_pct", th.DailyCriticalPct)
	v.SetDefault("thresholds.target_roas", th.TargetROAS)
	v.SetDefault("thresholds.low_roas", th.LowROAS)
	v.SetDefault("thresholds.min_roas", th.MinROAS)
	v.SetDefault("calendar.weekend_spend_multiplier", 0.70)
	v.SetDefault("calendar.holiday_spend_multiplier", 0.50)
	v.SetDefault("calendar.holidays", []string{})
	v.SetDefault("schedule.check_interval_hours", 4)
	v.SetDefault("plan.path", "")
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("ASG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a cycle.
func (c *Config) Validate() error {
	switch c.History.Backend {
	case "sqlite", "memory", "redis":
	default:
		return fmt.Errorf("history.backend: unknown backend %q", c.History.Backend)
	}
	switch monitor.KeyMode(c.History.KeyMode) {
	case monitor.KeyByLevel, monitor.KeyByDimension:
	default:
		return fmt.Errorf("history.key_mode: unknown mode %q", c.History.KeyMode)
	}
	if c.Schedule.CheckIntervalHours <= 0 {
		return fmt.Errorf("schedule.check_interval_hours must be positive")
	}
	if c.Calendar.WeekendSpendMultiplier < 0 || c.Calendar.HolidaySpendMultiplier < 0 {
		return fmt.Errorf("calendar spend multipliers must not be negative")
	}
	if _, err := c.Windows(); err != nil {
		return err
	}
	if _, err := model.ParseHolidays(c.Calendar.Holidays); err != nil {
		return fmt.Errorf("calendar.holidays: %w", err)
	}

	seen := make(map[string]bool, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.ID == "" {
			return fmt.Errorf("channels[%d]: empty id", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("channels[%d]: duplicate id %q", i, ch.ID)
		}
		seen[ch.ID] = true
	}
	return nil
}

// Windows parses the cooldown durations.
func (c *Config) Windows() (monitor.Windows, error) {
	w := make(monitor.Windows, 4)
	for level, raw := range map[model.Level]string{
		model.LevelInfo:     c.Cooldown.Info,
		model.LevelWarning:  c.Cooldown.Warning,
		model.LevelCritical: c.Cooldown.Critical,
		model.LevelExceeded: c.Cooldown.Exceeded,
	} {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("cooldown.%s: %w", strings.ToLower(string(level)), err)
		}
		if d < 0 {
			return nil, fmt.Errorf("cooldown.%s: negative duration", strings.ToLower(string(level)))
		}
		w[level] = d
	}
	return w, nil
}

// Multipliers returns the weekend and holiday spend factors.
func (c *Config) Multipliers() monitor.Multipliers {
	return monitor.Multipliers{
		Weekend: c.Calendar.WeekendSpendMultiplier,
		Holiday: c.Calendar.HolidaySpendMultiplier,
	}
}

// CheckInterval returns the scheduler interval.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.Schedule.CheckIntervalHours * float64(time.Hour))
}

// ChannelIDs returns the configured channel ids in file order.
func (c *Config) ChannelIDs() []string {
	ids := make([]string, 0, len(c.Channels))
	for _, ch := range c.Channels {
		ids = append(ids, ch.ID)
	}
	return ids
}
