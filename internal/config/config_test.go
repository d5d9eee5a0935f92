package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"railctl/internal/config"
	"railctl/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

const (
	validYAML = `
api:
  base_url: "https://rail.example.com/api"
  timeout: 3s
console:
  debounce_ms: 250
  dependency_concurrency: 2
session:
  token_file: "/tmp/railctl-token"
  watch: false
theme:
  name: dark
sql:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/rail"
`
	invalidSyntaxYAML = `
api:
  base_url: "http://x
  timeout: [
`
	invalidURLYAML = `
api:
  base_url: "localhost:8080"
`
	invalidDriverYAML = `
sql:
  driver: sqlite
`
)

func TestLoadConfigFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
		require.NoError(t, err)

		assert.Equal(t, "https://rail.example.com/api", cfg.API.BaseURL)
		assert.Equal(t, 3*time.Second, cfg.API.Timeout)
		assert.Equal(t, "railctl", cfg.API.UserAgent, "unset fields keep defaults")
		assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
		assert.Equal(t, 2, cfg.Console.DependencyConcurrency)
		assert.Equal(t, "/tmp/railctl-token", cfg.Session.TokenFile)
		assert.False(t, cfg.Session.Watch)
		assert.Equal(t, "dark", cfg.Theme.Name)
		assert.Equal(t, config.GetTheme("dark")["primary"], cfg.Theme.Primary)
		assert.Equal(t, "mysql", cfg.SQL.Driver)
	})

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
		assert.Equal(t, 15*time.Second, cfg.API.Timeout)
		assert.Equal(t, time.Duration(0), cfg.Debounce())
		assert.Equal(t, "default", cfg.Theme.Name)
	})

	t.Run("invalid syntax", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidSyntaxYAML))
		require.Error(t, err)
		assert.True(t, errors.IsInvalidConfig(err))
	})

	t.Run("relative base url", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidURLYAML))
		require.Error(t, err)
		var cfgErr *errors.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "api.base_url", cfgErr.Param())
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidDriverYAML))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sql.driver")
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("RAILCTL_API_BASE_URL", "http://10.0.0.5:9000/api")
	t.Setenv("RAILCTL_DEBOUNCE_MS", "75")
	t.Setenv("RAILCTL_THEME", "light")

	cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:9000/api", cfg.API.BaseURL, "env wins over file")
	assert.Equal(t, 75*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "light", cfg.Theme.Name)
}

func TestEnvironmentOverrideValidated(t *testing.T) {
	t.Setenv("RAILCTL_DEBOUNCE_MS", "-1")
	_, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "console.debounce_ms")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RAILCTL_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("RAILCTL_TEST_DOTENV") })

	n, err := config.LoadEnvFiles(envFile, filepath.Join(dir, ".env.local"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "loaded", os.Getenv("RAILCTL_TEST_DOTENV"))
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.New()
	cfg.API.BaseURL = "https://saved.example.com/api"

	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example.com/api", loaded.API.BaseURL)
	assert.Equal(t, cfg.API.Timeout, loaded.API.Timeout)
}

func TestThemes(t *testing.T) {
	for _, name := range config.ListThemes() {
		t.Run(name, func(t *testing.T) {
			cfg := config.New()
			cfg.ApplyTheme(name)
			assert.Equal(t, name, cfg.Theme.Name)
			assert.NotEmpty(t, cfg.Theme.Primary)
			assert.NoError(t, cfg.Validate())
		})
	}

	assert.Equal(t, config.GetTheme("default"), config.GetTheme("no-such-theme"))
}
