package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Browser     BrowserConfig   `toml:"browser"`
	Runner      RunnerConfig    `toml:"runner"`
	Scenarios   ScenariosConfig `toml:"scenarios"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Watch       WatchConfig     `toml:"watch"`
	Reports     ReportsConfig   `toml:"reports"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BrowserConfig controls the chromedp browser pool
type BrowserConfig struct {
	Headless        bool   `toml:"headless"`
	DisableGPU      bool   `toml:"disable_gpu"`
	NoSandbox       bool   `toml:"no_sandbox"`
	UserAgent       string `toml:"user_agent"`
	PoolSize        int    `toml:"pool_size"`
	NavigateTimeout string `toml:"navigate_timeout"` // e.g., "30s"
	WindowWidth     int    `toml:"window_width"`
	WindowHeight    int    `toml:"window_height"`
}

// RunnerConfig controls verified-action execution
type RunnerConfig struct {
	SettleInterval   string  `toml:"settle_interval"`    // poll interval, e.g., "250ms"
	SettleBudget     string  `toml:"settle_budget"`      // per-action budget, e.g., "10s"
	ResolveAttempts  int     `toml:"resolve_attempts"`   // presence retry budget
	ResolveInterval  string  `toml:"resolve_interval"`   // delay between resolve retries
	ActionsPerSecond float64 `toml:"actions_per_second"` // rate limit against the target app, 0 = unlimited
}

// ScenariosConfig contains configuration for scenario definitions
type ScenariosConfig struct {
	Dir string `toml:"dir"` // Directory containing scenario files (TOML)
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// WatchConfig contains configuration for scheduled scenario runs
type WatchConfig struct {
	Schedule string `toml:"schedule"` // Cron schedule format (5 fields)
}

// ReportsConfig contains configuration for markdown run reports
type ReportsConfig struct {
	Dir string `toml:"dir"` // Directory run reports are written to
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Browser: BrowserConfig{
			Headless:        true,
			DisableGPU:      true,
			NoSandbox:       false,
			UserAgent:       "Verity/1.0",
			PoolSize:        2,
			NavigateTimeout: "30s",
			WindowWidth:     1920,
			WindowHeight:    1080,
		},
		Runner: RunnerConfig{
			// Settle budgets sized to a developer machine on a good day are
			// where flaky verdicts come from. Default to a generous ceiling;
			// polling returns early on quiet pages.
			SettleInterval:   "250ms",
			SettleBudget:     "15s",
			ResolveAttempts:  4,
			ResolveInterval:  "500ms",
			ActionsPerSecond: 0,
		},
		Scenarios: ScenariosConfig{
			Dir: "./scenarios",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Watch: WatchConfig{
			Schedule: "*/15 * * * *",
		},
		Reports: ReportsConfig{
			Dir: "./reports",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files in order; later files
// override earlier files, environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VERITY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VERITY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VERITY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if headless := os.Getenv("VERITY_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if userAgent := os.Getenv("VERITY_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if poolSize := os.Getenv("VERITY_BROWSER_POOL_SIZE"); poolSize != "" {
		if ps, err := strconv.Atoi(poolSize); err == nil {
			config.Browser.PoolSize = ps
		}
	}

	if budget := os.Getenv("VERITY_SETTLE_BUDGET"); budget != "" {
		if _, err := time.ParseDuration(budget); err == nil {
			config.Runner.SettleBudget = budget
		}
	}
	if interval := os.Getenv("VERITY_SETTLE_INTERVAL"); interval != "" {
		if _, err := time.ParseDuration(interval); err == nil {
			config.Runner.SettleInterval = interval
		}
	}
	if attempts := os.Getenv("VERITY_RESOLVE_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			config.Runner.ResolveAttempts = a
		}
	}
	if rps := os.Getenv("VERITY_ACTIONS_PER_SECOND"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Runner.ActionsPerSecond = r
		}
	}

	if dir := os.Getenv("VERITY_SCENARIOS_DIR"); dir != "" {
		config.Scenarios.Dir = dir
	}
	if dir := os.Getenv("VERITY_REPORTS_DIR"); dir != "" {
		config.Reports.Dir = dir
	}
	if badgerPath := os.Getenv("VERITY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("VERITY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("VERITY_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("VERITY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if schedule := os.Getenv("VERITY_WATCH_SCHEDULE"); schedule != "" {
		config.Watch.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Duration parses a duration field, falling back to def on empty or
// unparsable values.
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// ValidateWatchSchedule validates a standard 5-field cron schedule expression.
func ValidateWatchSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	if len(strings.Fields(schedule)) != 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
