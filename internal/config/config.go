package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasklist/internal/output"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultAPIBaseURL matches the development backend address.
const DefaultAPIBaseURL = "http://localhost:3000/api"

// reservedKeys are fixed list bindings that overrides may not take.
var reservedKeys = map[string]string{
	"q":      "quit",
	"ctrl+c": "quit",
	"?":      "help",
	"j":      "move down",
	"down":   "move down",
	"k":      "move up",
	"up":     "move up",
	"esc":    "close",
	"enter":  "submit",
}

type Config struct {
	API     APIConfig     `toml:"api"`
	Logging LoggingConfig `toml:"logging"`
	UI      UIConfig      `toml:"ui"`
	Keys    KeyConfig     `toml:"keys"`
}

type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the dev-mode log file. A blank Dir means the per-user log dir.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type UIConfig struct {
	SurfaceDeleteErrors bool   `toml:"surface_delete_errors"`
	RelativeTimes       bool   `toml:"relative_times"`
	DateFormat          string `toml:"date_format"`
}

type KeyConfig struct {
	Add     string `toml:"add"`
	Edit    string `toml:"edit"`
	Delete  string `toml:"delete"`
	Reload  string `toml:"reload"`
	Yank    string `toml:"yank"`
	Dismiss string `toml:"dismiss"`
}

func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: "5s",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
			},
		},
		UI: UIConfig{
			SurfaceDeleteErrors: false,
			RelativeTimes:       true,
			DateFormat:          output.DefaultDateFormat,
		},
		Keys: KeyConfig{
			Add:     "n",
			Edit:    "e",
			Delete:  "d",
			Reload:  "r",
			Yank:    "y",
			Dismiss: "x",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}

	if _, err := c.APITimeout(); err != nil {
		return err
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if strings.TrimSpace(c.UI.DateFormat) == "" {
		return errors.New("ui.date_format is required")
	}

	seen := map[string]string{}
	for _, kb := range c.Keys.bindings() {
		name, binding := kb[0], normalizeKey(kb[1])
		if binding == "" {
			continue
		}
		if action, ok := reservedKeys[binding]; ok {
			return fmt.Errorf("keys.%s uses reserved %s key: %q", name, action, kb[1])
		}
		if prev, ok := seen[binding]; ok {
			return fmt.Errorf("keys.%s duplicates keys.%s: %q", name, prev, binding)
		}
		seen[binding] = name
	}
	return nil
}

// APITimeout parses api.timeout; blank means the client default.
func (c Config) APITimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.API.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid api.timeout: %q", c.API.Timeout)
	}
	if d <= 0 {
		return 0, fmt.Errorf("api.timeout must be > 0: %q", c.API.Timeout)
	}
	return d, nil
}

// bindings lists key overrides as (config name, value) pairs in declaration order.
func (k KeyConfig) bindings() [][2]string {
	return [][2]string{
		{"add", k.Add},
		{"edit", k.Edit},
		{"delete", k.Delete},
		{"reload", k.Reload},
		{"yank", k.Yank},
		{"dismiss", k.Dismiss},
	}
}

// normalizeKey lowercases named keys; single runes keep their case.
func normalizeKey(raw string) string {
	value := strings.TrimSpace(raw)
	if utf8.RuneCountInString(value) > 1 {
		return strings.ToLower(value)
	}
	return value
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes defaults to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
