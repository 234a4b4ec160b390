// Package config loads sash settings from flags, SASH_ environment
// variables, a sash.yaml file and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Neverlord/sash/internal/backend"
	"github.com/Neverlord/sash/internal/color"
	"github.com/Neverlord/sash/internal/variables"
)

// Configuration keys.
const (
	KeyLogLevel      = "log-level"
	KeyLogFile       = "log-file"
	KeyTestMode      = "test-mode"
	KeyBackend       = "backend"
	KeyHistoryDir    = "history.dir"
	KeyHistorySize   = "history.size"
	KeyHistoryUnique = "history.unique"
	KeyPrompt        = "prompt"
	KeyPromptColor   = "prompt-color"
	KeyVariablesFile = "variables-file"
	KeyMetricsAddr   = "metrics.addr"
	KeyVariables     = "variables"
)

// Config is the resolved configuration of a sash run.
type Config struct {
	LogLevel      string
	LogFile       string
	TestMode      bool
	Backend       string
	HistoryDir    string
	HistorySize   int
	HistoryUnique bool
	Prompt        string
	PromptColor   string
	VariablesFile string
	MetricsAddr   string
	Variables     map[string]string
}

// NewViper returns a viper instance with defaults and environment binding set up.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyTestMode, false)
	v.SetDefault(KeyBackend, backend.KindReadline)
	v.SetDefault(KeyHistoryDir, "")
	v.SetDefault(KeyHistorySize, 1000)
	v.SetDefault(KeyHistoryUnique, true)
	v.SetDefault(KeyPrompt, "sash> ")
	v.SetDefault(KeyPromptColor, "green")
	v.SetDefault(KeyVariablesFile, "")
	v.SetDefault(KeyMetricsAddr, "")

	v.SetEnvPrefix("SASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and resolves the configuration. An
// explicit configFile must exist; otherwise sash.yaml is searched in the user
// config directory, ~/.sash and the working directory, and may be absent.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sash")
		v.SetConfigType("yaml")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sash"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		LogLevel:      v.GetString(KeyLogLevel),
		LogFile:       v.GetString(KeyLogFile),
		TestMode:      v.GetBool(KeyTestMode),
		Backend:       v.GetString(KeyBackend),
		HistoryDir:    v.GetString(KeyHistoryDir),
		HistorySize:   v.GetInt(KeyHistorySize),
		HistoryUnique: v.GetBool(KeyHistoryUnique),
		Prompt:        v.GetString(KeyPrompt),
		PromptColor:   v.GetString(KeyPromptColor),
		VariablesFile: v.GetString(KeyVariablesFile),
		MetricsAddr:   v.GetString(KeyMetricsAddr),
		Variables:     v.GetStringMapString(KeyVariables),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Backend {
	case backend.KindReadline, backend.KindLiner:
	default:
		return fmt.Errorf("invalid backend %q: expected %s or %s", c.Backend, backend.KindReadline, backend.KindLiner)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("invalid history size %d: must be positive", c.HistorySize)
	}
	if !color.Valid(c.PromptColor) {
		return fmt.Errorf("invalid prompt color %q: expected one of %s", c.PromptColor, strings.Join(color.Names(), ", "))
	}
	for name := range c.Variables {
		if !variables.ValidName(name) {
			return fmt.Errorf("invalid variable name %q: only letters, digits and '_' are allowed", name)
		}
	}
	return nil
}

// HistoryFile returns the history file of the named mode, or "" when history
// persistence is disabled.
func (c *Config) HistoryFile(modeName string) string {
	if c.HistoryDir == "" {
		return ""
	}
	return filepath.Join(c.HistoryDir, modeName+"_history")
}

// UserConfigDir returns $XDG_CONFIG_HOME/sash, falling back to ~/.config/sash.
func UserConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "sash"), nil
}
