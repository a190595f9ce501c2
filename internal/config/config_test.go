package config_test

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"modeltool/internal/config"
	"modeltool/internal/errors"
	"modeltool/internal/logsink"
	"modeltool/pkg/types"

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
	err = tmpFile.Close()
	require.NoError(t, err)
	return tmpFile.Name()
}

const (
	validYAML = `
directories:
  default: %q
import:
  extensions: [".obj", "stl"]
io:
  chunk_size: 8192
watch:
  enabled: false
  debounce_ms: 500
log:
  verbosity: debug
  json: true
engine:
  file_version: 300
metrics:
  addr: "127.0.0.1:9464"
theme:
  name: dark
`
	partialYAML = `
io:
  chunk_size: 1024
`
	invalidSyntaxYAML = `
io:
  chunk_size: "lots
watch: # Missing closing quote and incorrect indentation
  enabled: yes
`
)

func TestLoadConfigFile(t *testing.T) {
	t.Run("load valid config", func(t *testing.T) {
		dir := t.TempDir()
		configFile := createTestYAML(t, fmt.Sprintf(validYAML, dir))
		cfg, err := config.LoadConfigFile(configFile)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, dir, cfg.Directories.Default)
		assert.Equal(t, []string{".obj", "stl"}, cfg.Import.Extensions)
		assert.Equal(t, 8192, cfg.IO.ChunkSize)
		assert.False(t, cfg.Watch.Enabled)
		assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
		assert.Equal(t, logsink.Debug, cfg.Verbosity())
		assert.True(t, cfg.Log.JSON)
		assert.Equal(t, 300, cfg.Engine.FileVersion)
		assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Addr)

		// Colors follow the named theme when the file leaves them unset
		assert.Equal(t, "dark", cfg.Theme.Name)
		assert.Equal(t, config.GetTheme("dark")["primary"], cfg.Theme.Primary)

		classifier, err := cfg.Classifier()
		require.NoError(t, err)
		assert.Equal(t, types.Importable, classifier.Classify("part.STL"))
		assert.Equal(t, types.Other, classifier.Classify("scene.dae"))
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		configFile := createTestYAML(t, partialYAML)
		cfg, err := config.LoadConfigFile(configFile)
		require.NoError(t, err)

		defaultCfg := config.New()
		assert.Equal(t, 1024, cfg.IO.ChunkSize)
		assert.Equal(t, defaultCfg.Import.Extensions, cfg.Import.Extensions)
		assert.Equal(t, defaultCfg.Watch, cfg.Watch)
		assert.Equal(t, defaultCfg.Log, cfg.Log)
		assert.Equal(t, defaultCfg.Theme, cfg.Theme)
	})

	t.Run("load non-existent file", func(t *testing.T) {
		nonExistentPath := filepath.Join(t.TempDir(), "does_not_exist.yaml")
		cfg, err := config.LoadConfigFile(nonExistentPath)

		require.NoError(t, err, "Loading non-existent file should return default config, not an error")
		require.NotNil(t, cfg)

		defaultCfg := config.New()
		assert.Equal(t, defaultCfg, cfg)
		assert.Equal(t, 4096, cfg.IO.ChunkSize)
		assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
		assert.Equal(t, logsink.Info, cfg.Verbosity())
		assert.Equal(t, 200, cfg.Engine.FileVersion)
		assert.Empty(t, cfg.Metrics.Addr)
	})

	t.Run("load file with invalid YAML syntax", func(t *testing.T) {
		configFile := createTestYAML(t, invalidSyntaxYAML)
		_, err := config.LoadConfigFile(configFile)

		require.Error(t, err, "Loading invalid YAML should return an error")
		assert.Contains(t, err.Error(), "error parsing config file")
		assert.True(t, errors.IsInvalidConfig(err))
	})

	t.Run("load directory instead of file", func(t *testing.T) {
		_, err := config.LoadConfigFile(t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.ConfigNotFound))
	})
}

func TestLoadConfigFileRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{"zero chunk size", "io:\n  chunk_size: 0\n", "io.chunk_size"},
		{"negative debounce", "watch:\n  debounce_ms: -1\n", "watch.debounce_ms"},
		{"unknown verbosity", "log:\n  verbosity: chatty\n", "log.verbosity"},
		{"native extension importable", "import:\n  extensions: [\".lmdl\"]\n", "import.extensions"},
		{"empty extension", "import:\n  extensions: [\"\"]\n", "import.extensions"},
		{"zero file version", "engine:\n  file_version: 0\n", "engine.file_version"},
		{"metrics address without port", "metrics:\n  addr: localhost\n", "metrics.addr"},
		{"unknown theme", "theme:\n  name: neon\n", "theme.name"},
		{"missing default directory", "directories:\n  default: /does/not/exist/anywhere\n", "directories.default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := createTestYAML(t, tt.yaml)
			_, err := config.LoadConfigFile(configFile)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")

			var configErr *errors.ConfigError
			require.True(t, stderrors.As(err, &configErr), "expected a ConfigError, got %T", err)
			assert.Equal(t, tt.param, configErr.Param())
			assert.True(t, errors.IsInvalidConfig(err))
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, config.New().Validate())
	})

	t.Run("nil config", func(t *testing.T) {
		var cfg *config.Config
		assert.Error(t, cfg.Validate())
	})

	t.Run("default directory is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain.txt")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		cfg := config.New()
		cfg.Directories.Default = file
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("empty extension list falls back to defaults", func(t *testing.T) {
		cfg := config.New()
		cfg.Import.Extensions = nil
		require.NoError(t, cfg.Validate())

		classifier, err := cfg.Classifier()
		require.NoError(t, err)
		assert.Equal(t, types.DefaultImportExtensions, classifier.Extensions())
	})
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"default", "dark", "light", "monochrome"}, config.ListThemes())

	for _, name := range config.ListThemes() {
		theme := config.GetTheme(name)
		for _, key := range []string{"primary", "success", "warning", "error", "info", "emphasis", "border"} {
			assert.NotEmpty(t, theme[key], "%s.%s", name, key)
		}
	}

	assert.Equal(t, config.GetTheme("default"), config.GetTheme("unknown"))

	cfg := config.New()
	cfg.Theme.Primary = "99"
	require.NoError(t, cfg.ApplyTheme("monochrome"))
	assert.Equal(t, "monochrome", cfg.Theme.Name)
	assert.Equal(t, "245", cfg.Theme.Primary, "applying a theme replaces file colors")

	err := cfg.ApplyTheme("unknown")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
	assert.Contains(t, err.Error(), "monochrome")
	assert.Equal(t, "monochrome", cfg.Theme.Name)
	assert.Equal(t, "245", cfg.Theme.Primary)
}
