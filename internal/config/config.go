package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"railctl/internal/errors"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure.
// Values come from defaults, then the YAML file, then RAILCTL_* variables.
type Config struct {
	API struct {
		BaseURL   string        `yaml:"base_url" env:"RAILCTL_API_BASE_URL"`     // Backend root, e.g. http://localhost:8080
		Timeout   time.Duration `yaml:"timeout" env:"RAILCTL_API_TIMEOUT"`       // Per-request timeout
		UserAgent string        `yaml:"user_agent" env:"RAILCTL_API_USER_AGENT"` // Sent with every request
	} `yaml:"api"`
	Console struct {
		DebounceMS            int `yaml:"debounce_ms" env:"RAILCTL_DEBOUNCE_MS"`                       // Filter refresh debounce, 0 = immediate
		DependencyConcurrency int `yaml:"dependency_concurrency" env:"RAILCTL_DEPENDENCY_CONCURRENCY"` // Parallel reference fetches
	} `yaml:"console"`
	Session struct {
		TokenFile string `yaml:"token_file" env:"RAILCTL_TOKEN_FILE"` // Where the bearer token is persisted
		Watch     bool   `yaml:"watch" env:"RAILCTL_SESSION_WATCH"`   // Follow token file changes made by other processes
	} `yaml:"session"`
	Log struct {
		Debug bool   `yaml:"debug" env:"RAILCTL_DEBUG"`
		JSON  bool   `yaml:"json" env:"RAILCTL_LOG_JSON"`
		File  string `yaml:"file" env:"RAILCTL_LOG_FILE"` // Used by the console UI, which owns the terminal
	} `yaml:"log"`
	Theme struct {
		Name     string `yaml:"name" env:"RAILCTL_THEME"` // Theme name (default, dark, light, etc.)
		Primary  string `yaml:"primary"`
		Success  string `yaml:"success"`
		Warning  string `yaml:"warning"`
		Error    string `yaml:"error"`
		Info     string `yaml:"info"`
		Emphasis string `yaml:"emphasis"`
		Border   string `yaml:"border"`
	} `yaml:"theme"`
	SQL struct {
		Driver string `yaml:"driver" env:"RAILCTL_SQL_DRIVER"` // postgres or mysql
		DSN    string `yaml:"dsn" env:"RAILCTL_SQL_DSN"`
	} `yaml:"sql"`
	Mock struct {
		Addr         string        `yaml:"addr" env:"RAILMOCK_ADDR"`     // Listen address of the mock backend
		Secret       string        `yaml:"secret" env:"RAILMOCK_SECRET"` // HS256 signing key for issued tokens
		TokenTTL     time.Duration `yaml:"token_ttl" env:"RAILMOCK_TOKEN_TTL"`
		AllowOrigins []string      `yaml:"allow_origins" env:"RAILMOCK_ALLOW_ORIGINS" envSeparator:","`
	} `yaml:"mock"`
}

// SQLDrivers lists the database/sql drivers the SQL console registers.
var SQLDrivers = []string{"postgres", "mysql"}

// Dir returns the configuration directory (~/.config/railctl).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "railctl"), nil
}

// DefaultPath returns the configuration file location. RAILCTL_CONFIG overrides it.
func DefaultPath() (string, error) {
	if p := os.Getenv("RAILCTL_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadEnvFiles loads the given dotenv files that exist and reports how many were read.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// LoadConfig loads .env files from the working directory and then the
// configuration from the default location (~/.config/railctl/config.yaml).
func LoadConfig() (*Config, error) {
	if _, err := LoadEnvFiles(".env", ".env.local"); err != nil {
		return nil, errors.NewConfigError("error loading env files", "", errors.InvalidConfig, err)
	}
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, defaults are used. Environment overrides apply either way.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Unmarshal over the defaults so unset fields keep them
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.NewConfigError("error parsing environment", "", errors.InvalidConfig, err)
	}

	if cfg.Theme.Primary == "" {
		cfg.ApplyTheme(cfg.Theme.Name)
	}
	cfg.Session.TokenFile = expandHome(cfg.Session.TokenFile)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// defaultConfig returns the default configuration.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.Timeout = 15 * time.Second
	cfg.API.UserAgent = "railctl"

	cfg.Console.DebounceMS = 0
	cfg.Console.DependencyConcurrency = 4

	if dir, err := Dir(); err == nil {
		cfg.Session.TokenFile = filepath.Join(dir, "token")
	}
	cfg.Session.Watch = true

	cfg.Theme.Name = "default"
	cfg.SQL.Driver = "postgres"

	cfg.Mock.Addr = "127.0.0.1:8080"
	cfg.Mock.Secret = "railmock-dev-secret"
	cfg.Mock.TokenTTL = 24 * time.Hour
	cfg.Mock.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

	return cfg
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// DSNs may carry credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigError("api base url must be an absolute http(s) url", "api.base_url", errors.InvalidConfig, err)
	}
	if c.API.Timeout <= 0 {
		return errors.NewConfigError("timeout must be positive", "api.timeout", errors.InvalidConfig, nil)
	}
	if c.Console.DebounceMS < 0 {
		return errors.NewConfigError("debounce must be >= 0", "console.debounce_ms", errors.InvalidConfig, nil)
	}
	if c.Console.DependencyConcurrency < 1 {
		return errors.NewConfigError("dependency concurrency must be >= 1", "console.dependency_concurrency", errors.InvalidConfig, nil)
	}
	if c.Theme.Name != "" && !slices.Contains(ListThemes(), c.Theme.Name) {
		return errors.NewConfigError("unknown theme", "theme.name", errors.InvalidConfig, fmt.Errorf("%q", c.Theme.Name))
	}
	if c.SQL.Driver != "" && !slices.Contains(SQLDrivers, c.SQL.Driver) {
		return errors.NewConfigError("unsupported sql driver", "sql.driver", errors.InvalidConfig, fmt.Errorf("%q", c.SQL.Driver))
	}

	if c.Mock.Secret == "" {
		return errors.NewConfigError("mock secret must not be empty", "mock.secret", errors.InvalidConfig, nil)
	}
	if c.Mock.TokenTTL <= 0 {
		return errors.NewConfigError("token ttl must be positive", "mock.token_ttl", errors.InvalidConfig, nil)
	}

	return nil
}

// Debounce returns the configured refresh debounce.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Console.DebounceMS) * time.Millisecond
}

// NewTestConfig creates a configuration instance for testing purposes.
func NewTestConfig(baseURL string) *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Session.TokenFile = ""
	cfg.Session.Watch = false
	cfg.ApplyTheme("default")
	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	cfg := defaultConfig()
	cfg.ApplyTheme(cfg.Theme.Name)
	return cfg
}

// GetTheme returns a predefined theme configuration by name.
// If the theme doesn't exist, returns the default theme.
func GetTheme(name string) map[string]string {
	themes := map[string]map[string]string{
		"default": {
			"primary":  "213",
			"success":  "114",
			"warning":  "220",
			"error":    "196",
			"info":     "39",
			"emphasis": "212",
			"border":   "213",
		},
		"dark": {
			"primary":  "105",
			"success":  "78",
			"warning":  "214",
			"error":    "160",
			"info":     "33",
			"emphasis": "147",
			"border":   "105",
		},
		"light": {
			"primary":  "135",
			"success":  "150",
			"warning":  "222",
			"error":    "210",
			"info":     "117",
			"emphasis": "219",
			"border":   "135",
		},
		"monochrome": {
			"primary":  "245",
			"success":  "252",
			"warning":  "241",
			"error":    "232",
			"info":     "248",
			"emphasis": "255",
			"border":   "245",
		},
		"rail": {
			"primary":  "31",
			"success":  "36",
			"warning":  "220",
			"error":    "196",
			"info":     "33",
			"emphasis": "51",
			"border":   "31",
		},
	}

	if theme, exists := themes[name]; exists {
		return theme
	}

	return themes["default"]
}

// ApplyTheme sets the theme in the configuration.
func (c *Config) ApplyTheme(name string) {
	if name == "" {
		name = "default"
	}
	theme := GetTheme(name)

	c.Theme.Name = name
	c.Theme.Primary = theme["primary"]
	c.Theme.Success = theme["success"]
	c.Theme.Warning = theme["warning"]
	c.Theme.Error = theme["error"]
	c.Theme.Info = theme["info"]
	c.Theme.Emphasis = theme["emphasis"]
	c.Theme.Border = theme["border"]
}

// ListThemes returns a list of available theme names.
func ListThemes() []string {
	return []string{"default", "dark", "light", "monochrome", "rail"}
}
