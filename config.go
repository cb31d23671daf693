package haxcel

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPrompt is the sentinel prompt installed in the interpreter so the
// end of each response can be recognised.
const DefaultPrompt = "<<haxcel>>"

// InterpreterConfig describes how to start the interpreter process
type InterpreterConfig struct {
	Command     string            `json:"command" yaml:"command"`
	Args        []string          `json:"args,omitempty" yaml:"args,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Prompt      string            `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	JSON  bool   `json:"json,omitempty" yaml:"json,omitempty"`
}

// Config is the bridge configuration file
type Config struct {
	Interpreter   InterpreterConfig `json:"interpreter" yaml:"interpreter"`
	TempBinding   string            `json:"temp_binding,omitempty" yaml:"temp_binding,omitempty"`
	TranscriptDir string            `json:"transcript_dir,omitempty" yaml:"transcript_dir,omitempty"`
	Modules       []string          `json:"modules,omitempty" yaml:"modules,omitempty"`
	Log           LogConfig         `json:"log,omitempty" yaml:"log,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Interpreter: InterpreterConfig{
			Command: "ghci",
			Args:    []string{"-ignore-dot-ghci"},
			Prompt:  DefaultPrompt,
		},
		TempBinding: DefaultTempBinding,
		Log:         LogConfig{Level: "info"},
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Interpreter.Command == "" {
		return fmt.Errorf("interpreter command required")
	}
	if strings.TrimSpace(c.Interpreter.Prompt) == "" {
		return fmt.Errorf("interpreter prompt required")
	}
	if strings.ContainsAny(c.Interpreter.Prompt, "\r\n") {
		return fmt.Errorf("interpreter prompt must be a single line")
	}
	if c.TempBinding == "" || strings.ContainsAny(c.TempBinding, " \t\r\n=") {
		return fmt.Errorf("invalid temp binding %q", c.TempBinding)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the configured slog level
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// LoadConfig loads a configuration from a YAML file. Fields missing from the
// file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(string(data))
}

// ParseConfig loads a configuration from a YAML string
func ParseConfig(data string) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
