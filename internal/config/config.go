package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/timesgrid/internal/facts"
	"github.com/abhisek/timesgrid/internal/llm"
	"github.com/abhisek/timesgrid/internal/problemgen"
	"github.com/abhisek/timesgrid/internal/session"
)

// EnvPrefix is prepended to every environment override, e.g.
// TIMESGRID_SERVER_ADDR.
const EnvPrefix = "TIMESGRID"

type Config struct {
	Env       string          `mapstructure:"env"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Session   SessionConfig   `mapstructure:"session"`
	Timing    TimingConfig    `mapstructure:"timing"`
	Practice  PracticeConfig  `mapstructure:"practice"`
	Placement PlacementConfig `mapstructure:"placement"`
	LLM       LLMConfig       `mapstructure:"llm"`

	// Provider keys, bound to their conventional unprefixed names.
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type SessionConfig struct {
	Subject          string        `mapstructure:"subject"`
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout"`
}

type TimingConfig struct {
	FastSeconds   float64 `mapstructure:"fast_seconds"`
	MediumSeconds float64 `mapstructure:"medium_seconds"`
}

type PracticeConfig struct {
	MaxProblems         int           `mapstructure:"max_problems"`
	RecentFailureWindow time.Duration `mapstructure:"recent_failure_window"`
}

type PlacementConfig struct {
	DefaultCount int            `mapstructure:"default_count"`
	GradeCounts  map[string]int `mapstructure:"grade_counts"`
}

type LLMConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Options locate the configuration sources.
type Options struct {
	// File is an explicit config file. When empty, timesgrid.yaml is looked
	// up in the working directory and the user config directory.
	File string

	// EnvFile is loaded into the environment before reading. A missing
	// file is ignored.
	EnvFile string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("session.subject", "math")
	v.SetDefault("session.autosave_interval", "30s")
	v.SetDefault("session.persist_timeout", "10s")

	v.SetDefault("timing.fast_seconds", facts.DefaultThresholds.Fast)
	v.SetDefault("timing.medium_seconds", facts.DefaultThresholds.Medium)

	v.SetDefault("practice.max_problems", 30)
	v.SetDefault("practice.recent_failure_window", "168h")

	v.SetDefault("placement.default_count", 20)
	v.SetDefault("placement.grade_counts", map[string]int{
		"1": 20, "2": 20, "3": 20, "4": 20, "5": 20,
	})

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openrouter_api_key", "")
	v.SetDefault("gemini_api_key", "")
}

// Load reads defaults, the optional config file and the environment, in
// increasing order of precedence.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("timesgrid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "timesgrid"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range map[string]string{
		"anthropic_api_key":  "ANTHROPIC_API_KEY",
		"openai_api_key":     "OPENAI_API_KEY",
		"openrouter_api_key": "OPENROUTER_API_KEY",
		"gemini_api_key":     "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.File != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	if c.Practice.MaxProblems <= 0 {
		return fmt.Errorf("practice.max_problems must be positive, got %d", c.Practice.MaxProblems)
	}
	if c.Placement.DefaultCount <= 0 {
		return fmt.Errorf("placement.default_count must be positive, got %d", c.Placement.DefaultCount)
	}
	if c.Session.AutosaveInterval < 0 {
		return fmt.Errorf("session.autosave_interval must not be negative")
	}
	return nil
}

// IsProduction reports whether the production logger should be used.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Thresholds returns the configured speed thresholds.
func (c *Config) Thresholds() facts.Thresholds {
	return facts.Thresholds{Fast: c.Timing.FastSeconds, Medium: c.Timing.MediumSeconds}
}

// EngineConfig builds the session engine settings.
func (c *Config) EngineConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.Session.Subject != "" {
		cfg.Subject = c.Session.Subject
	}
	cfg.AutosaveInterval = c.Session.AutosaveInterval
	if c.Session.PersistTimeout > 0 {
		cfg.PersistTimeout = c.Session.PersistTimeout
	}
	cfg.Thresholds = c.Thresholds()
	return cfg
}

// GeneratorConfig builds the problem generator settings.
func (c *Config) GeneratorConfig() problemgen.Config {
	cfg := problemgen.DefaultConfig()
	cfg.MaxPracticeProblems = c.Practice.MaxProblems
	cfg.DefaultPlacementCount = c.Placement.DefaultCount
	if len(c.Placement.GradeCounts) > 0 {
		cfg.GradeCounts = c.Placement.GradeCounts
	}
	return cfg
}

// ProviderConfig builds the LLM provider settings. The second result is
// false when no provider is configured and no API key could be discovered.
func (c *Config) ProviderConfig() (llm.Config, bool) {
	keys := map[string]string{
		"anthropic":  c.AnthropicAPIKey,
		"openai":     c.OpenAIAPIKey,
		"openrouter": c.OpenRouterAPIKey,
		"gemini":     c.GeminiAPIKey,
	}

	cfg := llm.DefaultConfig()
	cfg.Provider = c.LLM.Provider
	if cfg.Provider == "" {
		for _, name := range discoveryOrder {
			if keys[name] != "" {
				cfg.Provider = name
				break
			}
		}
		if cfg.Provider == "" {
			return llm.Config{}, false
		}
	}

	cfg.APIKey = keys[cfg.Provider]
	if c.LLM.APIKey != "" {
		cfg.APIKey = c.LLM.APIKey
	}
	cfg.Model = c.LLM.Model
	if c.LLM.MaxRetries > 0 {
		cfg.Retry.MaxAttempts = c.LLM.MaxRetries
	}
	if c.LLM.Timeout > 0 {
		cfg.Timeout = c.LLM.Timeout
	}
	return cfg, true
}

// discoveryOrder is the order provider keys are probed when llm.provider
// is unset.
var discoveryOrder = []string{"gemini", "openai", "anthropic", "openrouter"}
