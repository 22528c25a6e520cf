// Package config provides configuration and pattern loading for logsmith.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line
// arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and the optional global config file
// to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// A bare invocation is treated as a help request rather than a
	// missing-patterns validation error.
	if len(args) == 0 {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Pacing:     PacingModelWindow,
		Progress:   true,
		LogLevel:   "warning",
		ConfigFile: configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "patterns_dir", "patterns-dir", "patterns"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("patterns_dir: %w", err)
		}
		cfg.PatternsDir = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "pattern_files", "pattern-files"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("pattern_files: %w", err)
		}
		cfg.PatternFiles = val
	}

	if raw, ok := lookupSetting(settings, "max_concurrent", "max-concurrent"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_concurrent: %w", err)
		}
		cfg.MaxConcurrent = val
	}

	if raw, ok := lookupSetting(settings, "pacing"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pacing: %w", err)
		}
		if val != "" {
			cfg.Pacing = PacingModel(strings.ToLower(strings.TrimSpace(val)))
		}
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "progress"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		cfg.Progress = val
	}

	if raw, ok := lookupSetting(settings, "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
		if val != "" {
			cfg.LogLevel = val
		}
	}

	return nil
}
