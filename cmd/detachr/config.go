package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/gnana997/detachr/pkg/util"
	"github.com/gnana997/detachr/pkg/variables"
	"github.com/gnana997/detachr/pkg/watch"
)

const (
	configDir  = ".detachr"
	configName = "config.yaml"
	envPrefix  = "DETACHR_"
)

// Output modes for command results.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds every CLI setting after layering.
type Config struct {
	Document   string   `koanf:"document" yaml:"document"`
	LogLevel   string   `koanf:"log_level" yaml:"log_level"`
	LogFormat  string   `koanf:"log_format" yaml:"log_format"`
	MessageLog string   `koanf:"message_log" yaml:"message_log"`
	Watch      bool     `koanf:"watch" yaml:"watch"`
	DebounceMs int      `koanf:"debounce_ms" yaml:"debounce_ms"`
	FontDirs   []string `koanf:"font_dirs" yaml:"font_dirs"`
	CacheSize  int      `koanf:"cache_size" yaml:"cache_size"`
	Dedupe     bool     `koanf:"dedupe" yaml:"dedupe"`
	Exclude    []string `koanf:"exclude" yaml:"exclude"`
	WriteBack  bool     `koanf:"write_back" yaml:"write_back"`
	Output     string   `koanf:"output" yaml:"output"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		LogLevel:   string(util.LevelInfo),
		LogFormat:  string(util.FormatText),
		DebounceMs: watch.DefaultOptions().DebounceMs,
		FontDirs:   []string{},
		CacheSize:  variables.DefaultStoreConfig().CacheSize,
		Dedupe:     true,
		Exclude:    []string{},
		Output:     OutputText,
	}
}

func (c Config) defaults() map[string]any {
	return map[string]any{
		"document":    c.Document,
		"log_level":   c.LogLevel,
		"log_format":  c.LogFormat,
		"message_log": c.MessageLog,
		"watch":       c.Watch,
		"debounce_ms": c.DebounceMs,
		"font_dirs":   c.FontDirs,
		"cache_size":  c.CacheSize,
		"dedupe":      c.Dedupe,
		"exclude":     c.Exclude,
		"write_back":  c.WriteBack,
		"output":      c.Output,
	}
}

// listKeys hold comma-separated values when set from the environment.
var listKeys = map[string]bool{"font_dirs": true, "exclude": true}

// flagKeys maps flag names whose config key is not the snake_case form.
var flagKeys = map[string]string{
	"font-dir": "font_dirs",
}

// findConfigFile returns the config file to read. An explicit path must
// exist; otherwise .detachr/config.yaml is used when present.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	candidate := filepath.Join(configDir, configName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

// LoadConfig layers defaults, the YAML config file, DETACHR_ environment
// variables and explicitly set flags, in increasing priority.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig().defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, "", err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// DETACHR_FONT_DIRS=/a,/b -> font_dirs: [/a, /b]
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := util.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := util.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("log_format: %w", err)
	}
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("output: unknown mode %q (want text or json)", c.Output)
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms: must not be negative, got %d", c.DebounceMs)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size: must be positive, got %d", c.CacheSize)
	}
	return nil
}

// LoggerConfig returns the logger settings. Logs go to stderr.
func (c *Config) LoggerConfig() util.LoggerConfig {
	level, _ := util.ParseLevel(c.LogLevel)
	format, _ := util.ParseFormat(c.LogFormat)
	return util.LoggerConfig{Level: level, Format: format, Output: os.Stderr}
}
