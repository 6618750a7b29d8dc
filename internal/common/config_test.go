package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.Equal(t, "250ms", cfg.Runner.SettleInterval)
	assert.Equal(t, "15s", cfg.Runner.SettleBudget)
	assert.Equal(t, 4, cfg.Runner.ResolveAttempts)
	assert.Equal(t, float64(0), cfg.Runner.ActionsPerSecond)
	assert.Equal(t, "./scenarios", cfg.Scenarios.Dir)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verity.toml")

	content := `
environment = "production"

[server]
port = 9000

[runner]
settle_budget = "20s"
actions_per_second = 2.5

[browser]
headless = false
pool_size = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "20s", cfg.Runner.SettleBudget)
	assert.Equal(t, 2.5, cfg.Runner.ActionsPerSecond)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 4, cfg.Browser.PoolSize)

	// fields the file does not mention keep defaults
	assert.Equal(t, "250ms", cfg.Runner.SettleInterval)
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoadFromFiles_LaterOverrides(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")

	require.NoError(t, os.WriteFile(base, []byte("[server]\nport = 9000\nhost = \"base\"\n"), 0644))
	require.NoError(t, os.WriteFile(local, []byte("[server]\nport = 9100\n"), 0644))

	cfg, err := LoadFromFiles(base, local)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "base", cfg.Server.Host)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/verity.toml")
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VERITY_ENV", "production")
	t.Setenv("VERITY_SERVER_PORT", "9999")
	t.Setenv("VERITY_SETTLE_BUDGET", "30s")
	t.Setenv("VERITY_RESOLVE_ATTEMPTS", "7")
	t.Setenv("VERITY_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "30s", cfg.Runner.SettleBudget)
	assert.Equal(t, 7, cfg.Runner.ResolveAttempts)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestEnvOverrides_InvalidSettleBudgetIgnored(t *testing.T) {
	t.Setenv("VERITY_SETTLE_BUDGET", "not-a-duration")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, "15s", cfg.Runner.SettleBudget)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 7070, "0.0.0.0")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	ApplyFlagOverrides(cfg, 0, "")
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, Duration("250ms", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("garbage", time.Second))
}

func TestValidateWatchSchedule(t *testing.T) {
	assert.NoError(t, ValidateWatchSchedule("*/15 * * * *"))
	assert.NoError(t, ValidateWatchSchedule("0 6 * * 1-5"))
	assert.Error(t, ValidateWatchSchedule("*/15 * * *"))
	assert.Error(t, ValidateWatchSchedule("not a schedule"))
}

func TestIsProduction(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.False(t, cfg.IsProduction())

	cfg.Environment = "Production"
	assert.True(t, cfg.IsProduction())

	cfg.Environment = "prod"
	assert.True(t, cfg.IsProduction())
}
