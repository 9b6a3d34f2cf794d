package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Battle: BattleConfig{MaxRounds: 30},
		Rewards: RewardsConfig{
			ExpBase:              10,
			ExpVariance:          2,
			GoldBase:             5,
			GoldVariance:         3,
			EnergyRestorePercent: 30,
			ExpShareVariance:     0.1,
		},
		Loot: LootConfig{
			MaxItems:      5,
			DropChance:    0.6,
			RarityWeights: []float64{0.5, 0.3, 0.15, 0.04, 0.01},
		},
		Content: ContentConfig{Dir: "content", ScriptInstructionLimit: 100_000},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsMatchValidConfig(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	want := validConfig()
	want.Logging.Format = "console"
	assert.Equal(t, want, cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
battle:
  max_rounds: 12
  seed: 99
rewards:
  exp_base: 20
loot:
  drop_chance: 1
  rarity_weights: [1, 0, 0, 0, 0]
content:
  dir: /srv/content
logging:
  level: debug
  format: json
tracing:
  enabled: true
  file: spans.json
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Battle.MaxRounds)
	assert.Equal(t, uint64(99), cfg.Battle.Seed)
	assert.Equal(t, 20, cfg.Rewards.ExpBase)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Rewards.GoldVariance)
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, cfg.Loot.RarityWeights)
	assert.Equal(t, "/srv/content", cfg.Content.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, TracingConfig{Enabled: true, File: "spans.json"}, cfg.Tracing)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Battle.MaxRounds)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SKIRMISH_BATTLE_MAX_ROUNDS", "7")
	t.Setenv("SKIRMISH_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Battle.MaxRounds)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("battle:\n  max_rounds: 0\n"), 0644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "battle.max_rounds")
}

func TestValidateRewards(t *testing.T) {
	cfg := validConfig()
	cfg.Rewards.GoldBase = -1
	cfg.Rewards.EnergyRestorePercent = 101
	cfg.Rewards.ExpShareVariance = 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewards.gold_base")
	assert.Contains(t, err.Error(), "rewards.energy_restore_percent")
	assert.Contains(t, err.Error(), "rewards.exp_share_variance")
}

func TestValidateLoot(t *testing.T) {
	cfg := validConfig()
	cfg.Loot.RarityWeights = []float64{1, 1}
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Loot.RarityWeights = []float64{0, 0, 0, 0, 0}
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Loot.RarityWeights = []float64{1, -1, 0, 0, 0}
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Loot.DropChance = 1.5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Loot.MaxItems = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateContent(t *testing.T) {
	cfg := validConfig()
	cfg.Content.Dir = ""
	cfg.Content.ScriptInstructionLimit = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content.dir")
	assert.Contains(t, err.Error(), "content.script_instruction_limit")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

// Property-based tests

func TestPropertyMaxRounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(-100, 1000).Draw(t, "max_rounds")
		cfg := validConfig()
		cfg.Battle.MaxRounds = n
		err := cfg.Validate()
		if (n >= 1) != (err == nil) {
			t.Fatalf("max_rounds=%d: got err=%v", n, err)
		}
	})
}

func TestPropertyDropChanceRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.Float64Range(-1, 2).Draw(t, "drop_chance")
		cfg := validConfig()
		cfg.Loot.DropChance = p
		err := cfg.Validate()
		if (p >= 0 && p <= 1) != (err == nil) {
			t.Fatalf("drop_chance=%v: got err=%v", p, err)
		}
	})
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load("../../configs/battlesim.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}
