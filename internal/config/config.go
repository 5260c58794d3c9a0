package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// EnvPrefix namespaces nested keys in the environment, e.g.
// REMINDBOT_SCAN__LOOKAHEAD=90m sets scan.lookahead.
const EnvPrefix = "REMINDBOT_"

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Telegram TelegramConfig `koanf:"telegram"`
	AI       AIConfig       `koanf:"ai"`
	Timezone string         `koanf:"timezone"`
	HTTP     HTTPConfig     `koanf:"http"`
	Scan     ScanConfig     `koanf:"scan"`
	Notify   NotifyConfig   `koanf:"notify"`
	Log      LogConfig      `koanf:"log"`
}

type DatabaseConfig struct {
	Driver      string        `koanf:"driver"`
	URI         string        `koanf:"uri"` // connection string, or file path for sqlite
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

type TelegramConfig struct {
	Token string `koanf:"token"`
}

type AIConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type ScanConfig struct {
	APIKey           string        `koanf:"api_key"`
	Enabled          bool          `koanf:"enabled"`
	Schedule         string        `koanf:"schedule"`
	Lookahead        time.Duration `koanf:"lookahead"`
	CandidateTimeout time.Duration `koanf:"candidate_timeout"`
	Concurrency      int           `koanf:"concurrency"`
}

type NotifyConfig struct {
	RatePerSec float64 `koanf:"rate_per_sec"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// legacyEnv maps the flat variable names used by earlier deployments to
// config keys. Prefixed variables still win over these.
var legacyEnv = map[string]string{
	"DATABASE_URI":   "database.uri",
	"TELEGRAM_TOKEN": "telegram.token",
	"AI_API_KEY":     "ai.api_key",
	"AI_BASE_URL":    "ai.base_url",
	"AI_MODEL":       "ai.model",
	"API_KEY":        "scan.api_key",
	"TIMEZONE":       "timezone",
}

// Load reads defaults, then the optional YAML file at configPath, then the
// environment. A .env file in the working directory is loaded first if present.
func Load(configPath string) (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "CONFIG")
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	legacy := map[string]interface{}{}
	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			legacy[key] = v
		}
	}
	if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
		if c.Database.URI == "" {
			return fmt.Errorf("database.uri is required for driver %s (set DATABASE_URI)", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver: %s (supported: %s, %s, %s)",
			c.Database.Driver, DriverPostgres, DriverSQLite, DriverMemory)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Scan.Lookahead <= 0 {
		return errors.New("scan.lookahead must be positive")
	}
	if c.Scan.CandidateTimeout <= 0 {
		return errors.New("scan.candidate_timeout must be positive")
	}
	if c.Scan.Concurrency <= 0 {
		return errors.New("scan.concurrency must be positive")
	}
	if c.Scan.Enabled {
		interval, err := c.Scan.Interval()
		if err != nil {
			return err
		}
		if interval >= c.Scan.Lookahead {
			return fmt.Errorf("scan.schedule fires every %s, which must be shorter than scan.lookahead %s", interval, c.Scan.Lookahead)
		}
	}

	if c.Notify.RatePerSec < 0 {
		return errors.New("notify.rate_per_sec must not be negative")
	}
	return nil
}

// RequireTelegram checks the settings needed to talk to Telegram.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required (set TELEGRAM_TOKEN)")
	}
	return nil
}

// Location resolves the display and parsing zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Interval returns the longest gap between two consecutive firings of the
// scan schedule.
func (s ScanConfig) Interval() (time.Duration, error) {
	sched, err := cron.ParseStandard(s.Schedule)
	if err != nil {
		return 0, fmt.Errorf("invalid scan.schedule %q: %w", s.Schedule, err)
	}

	prev := sched.Next(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if prev.IsZero() {
		return 0, fmt.Errorf("scan.schedule %q never fires", s.Schedule)
	}
	var longest time.Duration
	for i := 0; i < 512; i++ {
		next := sched.Next(prev)
		if next.IsZero() {
			break
		}
		if d := next.Sub(prev); d > longest {
			longest = d
		}
		prev = next
	}
	return longest, nil
}
