package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modeltool/internal/errors"
	"modeltool/internal/logsink"
	"modeltool/pkg/types"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration structure.
type Config struct {
	Directories struct {
		Default string `yaml:"default"` // Directory opened at startup
	} `yaml:"directories"`
	Import struct {
		Extensions []string `yaml:"extensions"` // Importable file extensions
	} `yaml:"import"`
	IO struct {
		ChunkSize int `yaml:"chunk_size"` // Transfer unit in bytes
	} `yaml:"io"`
	Watch struct {
		Enabled    bool `yaml:"enabled"`     // Refresh the listing on directory changes
		DebounceMS int  `yaml:"debounce_ms"` // Coalescing delay for change bursts
	} `yaml:"watch"`
	Log struct {
		Verbosity string `yaml:"verbosity"` // Log pane threshold: error, warning, info, debug, verbose
		JSON      bool   `yaml:"json"`      // Emit application logs as JSON
		File      string `yaml:"file"`      // Also append application logs to this file
	} `yaml:"log"`
	Engine struct {
		FileVersion int `yaml:"file_version"` // Version tag stamped on model descriptions
	} `yaml:"engine"`
	Metrics struct {
		Addr string `yaml:"addr"` // Prometheus listen address, empty to disable
	} `yaml:"metrics"`
	Theme struct {
		Name     string `yaml:"name"`     // Theme name (default, dark, light, etc.)
		Primary  string `yaml:"primary"`  // Primary color for branding
		Success  string `yaml:"success"`  // Success message color
		Warning  string `yaml:"warning"`  // Warning message color
		Error    string `yaml:"error"`    // Error message color
		Info     string `yaml:"info"`     // Informational message color
		Emphasis string `yaml:"emphasis"` // Emphasis color for text that should stand out
		Border   string `yaml:"border"`   // Border color for frames
	} `yaml:"theme"`
}

// DefaultPath returns ~/.config/modeltool/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "modeltool", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location
// (~/.config/modeltool/config.yaml).
func LoadConfig() (*Config, error) {
	configPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	// Start with default configuration
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.fillTheme()
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, errors.NewConfigError("error reading config file", path, errors.ConfigNotFound, err)
	}

	// Keys missing from the file keep their default values
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
	}
	cfg.fillTheme()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Directories.Default = "." // Current directory by default

	cfg.Import.Extensions = append([]string(nil), types.DefaultImportExtensions...)
	cfg.IO.ChunkSize = 4096

	cfg.Watch.Enabled = true
	cfg.Watch.DebounceMS = 250

	cfg.Log.Verbosity = "info"

	cfg.Engine.FileVersion = 200

	// Colors are filled from the theme name once the file is merged
	cfg.Theme.Name = "default"
	return cfg
}

// Validate checks if the configuration is valid.
// Returns a ConfigError naming the offending key.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	if _, err := types.NewClassifier(c.Import.Extensions); err != nil {
		return errors.NewConfigError("invalid import extensions", "import.extensions", errors.InvalidConfig, err)
	}

	if c.IO.ChunkSize <= 0 || c.IO.ChunkSize > 64<<20 {
		return errors.NewConfigError(fmt.Sprintf("chunk size must be in (0, 64MiB], got %d", c.IO.ChunkSize), "io.chunk_size", errors.InvalidConfig, nil)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.NewConfigError("debounce must be >= 0 milliseconds", "watch.debounce_ms", errors.InvalidConfig, nil)
	}

	if _, err := logsink.ParseSeverity(c.Log.Verbosity); err != nil {
		return errors.NewConfigError("invalid log verbosity", "log.verbosity", errors.InvalidConfig, err)
	}

	if c.Engine.FileVersion <= 0 {
		return errors.NewConfigError("file version must be positive", "engine.file_version", errors.InvalidConfig, nil)
	}

	if c.Metrics.Addr != "" && !strings.Contains(c.Metrics.Addr, ":") {
		return errors.NewConfigError(fmt.Sprintf("metrics address %q has no port", c.Metrics.Addr), "metrics.addr", errors.InvalidConfig, nil)
	}

	if c.Theme.Name != "" && !validTheme(c.Theme.Name) {
		return errors.NewConfigError(fmt.Sprintf("unknown theme %q", c.Theme.Name), "theme.name", errors.InvalidConfig, nil)
	}

	if c.Directories.Default != "" {
		info, err := os.Stat(c.Directories.Default)
		if err != nil {
			return errors.NewConfigError("error accessing default directory", "directories.default", errors.InvalidConfig, err)
		}
		if !info.IsDir() {
			return errors.NewConfigError("default directory is not a directory", "directories.default", errors.InvalidConfig, nil)
		}
	}

	return nil
}

// Verbosity returns the parsed log pane threshold.
func (c *Config) Verbosity() logsink.Severity {
	s, err := logsink.ParseSeverity(c.Log.Verbosity)
	if err != nil {
		return logsink.Info
	}
	return s
}

// Debounce returns the watch coalescing delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// Classifier compiles the importable extension list.
func (c *Config) Classifier() (*types.Classifier, error) {
	return types.NewClassifier(c.Import.Extensions)
}

// New creates a new configuration instance with default values.
func New() *Config {
	cfg := defaultConfig()
	cfg.fillTheme()
	return cfg
}

// GetTheme returns a predefined theme configuration by name.
// If the theme doesn't exist, returns the default theme.
func GetTheme(name string) map[string]string {
	themes := map[string]map[string]string{
		"default": {
			"primary":  "213", // Purple
			"success":  "114", // Green
			"warning":  "220", // Yellow
			"error":    "196", // Red
			"info":     "39",  // Blue
			"emphasis": "212", // Light Pink
			"border":   "213", // Purple
		},
		"dark": {
			"primary":  "105", // Dark Blue
			"success":  "78",  // Dark Green
			"warning":  "214", // Dark Yellow
			"error":    "160", // Dark Red
			"info":     "33",  // Dark Blue
			"emphasis": "147", // Light Blue
			"border":   "105", // Dark Blue
		},
		"light": {
			"primary":  "135", // Light Purple
			"success":  "150", // Light Green
			"warning":  "222", // Light Yellow
			"error":    "210", // Light Red
			"info":     "117", // Light Blue
			"emphasis": "219", // Very Light Pink
			"border":   "135", // Light Purple
		},
		"monochrome": {
			"primary":  "245", // Light Grey
			"success":  "252", // White
			"warning":  "241", // Medium Grey
			"error":    "232", // Black
			"info":     "248", // Grey
			"emphasis": "255", // Bright White
			"border":   "245", // Light Grey
		},
	}

	if theme, exists := themes[name]; exists {
		return theme
	}

	return themes["default"]
}

// ApplyTheme switches to the named theme, replacing every color including
// ones set in the config file. Unknown names are rejected and leave the
// theme unchanged.
func (c *Config) ApplyTheme(name string) error {
	if !validTheme(name) {
		return errors.NewConfigError(fmt.Sprintf("unknown theme %q, choose one of %s", name, strings.Join(ListThemes(), ", ")), "theme.name", errors.InvalidConfig, nil)
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
	return nil
}

// fillTheme sets every unset theme color from the named theme.
func (c *Config) fillTheme() {
	theme := GetTheme(c.Theme.Name)
	fill := func(field *string, key string) {
		if *field == "" {
			*field = theme[key]
		}
	}
	fill(&c.Theme.Primary, "primary")
	fill(&c.Theme.Success, "success")
	fill(&c.Theme.Warning, "warning")
	fill(&c.Theme.Error, "error")
	fill(&c.Theme.Info, "info")
	fill(&c.Theme.Emphasis, "emphasis")
	fill(&c.Theme.Border, "border")
}

// ListThemes returns a list of available theme names.
func ListThemes() []string {
	return []string{"default", "dark", "light", "monochrome"}
}

func validTheme(name string) bool {
	for _, t := range ListThemes() {
		if t == name {
			return true
		}
	}
	return false
}
