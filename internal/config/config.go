// Package config provides Viper-based configuration loading for the battle simulator.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// BattleConfig holds round resolver settings.
type BattleConfig struct {
	// MaxRounds is the round cap after which a battle is a draw.
	MaxRounds int `mapstructure:"max_rounds"`
	// Seed seeds the random source; 0 selects the crypto source.
	Seed uint64 `mapstructure:"seed"`
}

// RewardsConfig holds post-battle experience, gold and energy tuning.
type RewardsConfig struct {
	ExpBase              int     `mapstructure:"exp_base"`
	ExpVariance          int     `mapstructure:"exp_variance"`
	GoldBase             int     `mapstructure:"gold_base"`
	GoldVariance         int     `mapstructure:"gold_variance"`
	EnergyRestorePercent int     `mapstructure:"energy_restore_percent"`
	ExpShareVariance     float64 `mapstructure:"exp_share_variance"`
}

// LootConfig holds loot generation tuning.
type LootConfig struct {
	// MaxItems caps the number of loot slots rolled per battle.
	MaxItems int `mapstructure:"max_items"`
	// DropChance is the probability each slot yields an item.
	DropChance float64 `mapstructure:"drop_chance"`
	// RarityWeights are the Common..Legendary weights.
	RarityWeights []float64 `mapstructure:"rarity_weights"`
}

// ContentConfig locates the YAML and Lua content tree.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
	// ScriptInstructionLimit bounds each Lua hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TracingConfig controls OpenTelemetry battle spans.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// File receives the exported spans; empty writes to stderr.
	File string `mapstructure:"file"`
}

// Config is the top-level application configuration.
type Config struct {
	Battle  BattleConfig  `mapstructure:"battle"`
	Rewards RewardsConfig `mapstructure:"rewards"`
	Loot    LootConfig    `mapstructure:"loot"`
	Content ContentConfig `mapstructure:"content"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateBattle(c.Battle),
		validateRewards(c.Rewards),
		validateLoot(c.Loot),
		validateContent(c.Content),
		validateLogging(c.Logging),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	if b.MaxRounds < 1 {
		return fmt.Errorf("battle.max_rounds must be >= 1, got %d", b.MaxRounds)
	}
	return nil
}

func validateRewards(r RewardsConfig) error {
	var errs []string
	for _, f := range []struct {
		name string
		v    int
	}{
		{"rewards.exp_base", r.ExpBase},
		{"rewards.exp_variance", r.ExpVariance},
		{"rewards.gold_base", r.GoldBase},
		{"rewards.gold_variance", r.GoldVariance},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0, got %d", f.name, f.v))
		}
	}
	if r.EnergyRestorePercent < 0 || r.EnergyRestorePercent > 100 {
		errs = append(errs, fmt.Sprintf("rewards.energy_restore_percent must be 0-100, got %d", r.EnergyRestorePercent))
	}
	if r.ExpShareVariance < 0 || r.ExpShareVariance >= 1 {
		errs = append(errs, fmt.Sprintf("rewards.exp_share_variance must be in [0, 1), got %v", r.ExpShareVariance))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLoot(l LootConfig) error {
	var errs []string
	if l.MaxItems < 0 {
		errs = append(errs, fmt.Sprintf("loot.max_items must be >= 0, got %d", l.MaxItems))
	}
	if l.DropChance < 0 || l.DropChance > 1 {
		errs = append(errs, fmt.Sprintf("loot.drop_chance must be in [0, 1], got %v", l.DropChance))
	}
	if len(l.RarityWeights) != 5 {
		errs = append(errs, fmt.Sprintf("loot.rarity_weights must have 5 entries, got %d", len(l.RarityWeights)))
	} else {
		total := 0.0
		for _, w := range l.RarityWeights {
			if w < 0 {
				errs = append(errs, "loot.rarity_weights must not be negative")
				break
			}
			total += w
		}
		if total <= 0 {
			errs = append(errs, "loot.rarity_weights must have a positive sum")
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.Dir == "" {
		errs = append(errs, "content.dir must not be empty")
	}
	if c.ScriptInstructionLimit < 1 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 1, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Precondition: path is empty or names a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns the configuration produced with no file and no environment.
func Defaults() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("battle.max_rounds", 30)
	v.SetDefault("battle.seed", 0)

	v.SetDefault("rewards.exp_base", 10)
	v.SetDefault("rewards.exp_variance", 2)
	v.SetDefault("rewards.gold_base", 5)
	v.SetDefault("rewards.gold_variance", 3)
	v.SetDefault("rewards.energy_restore_percent", 30)
	v.SetDefault("rewards.exp_share_variance", 0.1)

	v.SetDefault("loot.max_items", 5)
	v.SetDefault("loot.drop_chance", 0.6)
	v.SetDefault("loot.rarity_weights", []float64{0.5, 0.3, 0.15, 0.04, 0.01})

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.script_instruction_limit", 100_000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.file", "")
}
