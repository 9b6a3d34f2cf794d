package reward

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
)

// Inventory receives the party's gold and loot.
type Inventory interface {
	AddGold(amount int)
	AddItem(item inventory.Item)
}

// LootGenerator produces one item of at most maxLevel.
type LootGenerator interface {
	Generate(maxLevel int) inventory.Item
}

// Config holds the reward tuning values.
type Config struct {
	ExpBase              int
	ExpVariance          int
	GoldBase             int
	GoldVariance         int
	EnergyRestorePercent int
	ExpShareVariance     float64
	MaxLootItems         int
	DropChance           float64
}

// DefaultConfig returns the stock reward tuning.
func DefaultConfig() Config {
	return Config{
		ExpBase:              10,
		ExpVariance:          2,
		GoldBase:             5,
		GoldVariance:         3,
		EnergyRestorePercent: 30,
		ExpShareVariance:     0.1,
		MaxLootItems:         5,
		DropChance:           0.6,
	}
}

// Share is one survivor's part of the rewards.
type Share struct {
	Character      string
	Exp            int
	LevelsReached  []int
	EnergyRestored int
}

// Summary reports everything handed out after a battle.
type Summary struct {
	Outcome  combat.Outcome
	Exp      int
	Gold     int
	Shares   []Share
	Loot     []inventory.Item
	Messages []string
}

// Empty reports whether nothing was awarded.
func (s Summary) Empty() bool {
	return s.Exp == 0 && s.Gold == 0 && len(s.Shares) == 0 && len(s.Loot) == 0
}

// Distributor awards the spoils of a won battle.
//
// It is not safe for concurrent use.
type Distributor struct {
	cfg    Config
	src    dice.Source
	inv    Inventory
	loot   LootGenerator
	logger *zap.Logger
}

// NewDistributor creates a Distributor. A nil loot generator disables loot.
//
// Precondition: src, inv and logger must be non-nil.
func NewDistributor(cfg Config, src dice.Source, inv Inventory, loot LootGenerator, logger *zap.Logger) *Distributor {
	return &Distributor{cfg: cfg, src: src, inv: inv, loot: loot, logger: logger}
}

// EnemyReward rolls the experience and gold for one defeated enemy of level:
// level*base + [0, level*variance] for each.
func (d *Distributor) EnemyReward(level int) (exp, gold int) {
	exp = level*d.cfg.ExpBase + dice.Between(d.src, 0, level*d.cfg.ExpVariance)
	gold = level*d.cfg.GoldBase + dice.Between(d.src, 0, level*d.cfg.GoldVariance)
	return exp, gold
}

// Award distributes rewards for a finished battle. Only a win pays out; a
// loss, a draw, no survivors or no enemies yield an empty Summary.
//
// Postcondition: the survivors' shares sum to Summary.Exp exactly.
func (d *Distributor) Award(outcome combat.Outcome, allies, enemies []*character.Character) Summary {
	sum := Summary{Outcome: outcome}
	var survivors []*character.Character
	for _, a := range allies {
		if a.IsAlive() {
			survivors = append(survivors, a)
		}
	}
	if outcome != combat.OutcomeWin || len(survivors) == 0 || len(enemies) == 0 {
		d.logger.Debug("reward: nothing to award",
			zap.String("outcome", string(outcome)),
			zap.Int("survivors", len(survivors)),
			zap.Int("enemies", len(enemies)),
		)
		return sum
	}

	totalLevels, maxLevel := 0, 1
	for _, e := range enemies {
		exp, gold := d.EnemyReward(e.Level())
		sum.Exp += exp
		sum.Gold += gold
		totalLevels += e.Level()
		maxLevel = max(maxLevel, e.Level())
	}

	d.awardExp(&sum, survivors)

	d.inv.AddGold(sum.Gold)
	sum.Messages = append(sum.Messages, fmt.Sprintf("Found %s!", inventory.FormatGold(sum.Gold)))

	if d.loot != nil {
		slots := min(d.cfg.MaxLootItems, len(enemies)+totalLevels/5)
		for range slots {
			if !dice.Chance(d.src, d.cfg.DropChance) {
				continue
			}
			item := d.loot.Generate(maxLevel)
			d.inv.AddItem(item)
			sum.Loot = append(sum.Loot, item)
			sum.Messages = append(sum.Messages, fmt.Sprintf("Loot: %s", item))
		}
	}

	for i, c := range survivors {
		sum.Shares[i].EnergyRestored = c.RestoreEnergyPercent(d.cfg.EnergyRestorePercent)
	}

	d.logger.Info("reward: distributed",
		zap.Int("exp", sum.Exp),
		zap.Int("gold", sum.Gold),
		zap.Int("loot", len(sum.Loot)),
		zap.Int("survivors", len(survivors)),
	)
	return sum
}

func (d *Distributor) awardExp(sum *Summary, survivors []*character.Character) {
	shares := Distribute(d.src, sum.Exp, len(survivors), d.cfg.ExpShareVariance)
	parts := make([]string, len(survivors))
	var levelUps []string
	for i, c := range survivors {
		sh := Share{Character: c.Name(), Exp: shares[i], LevelsReached: c.AddExp(shares[i])}
		sum.Shares = append(sum.Shares, sh)
		parts[i] = fmt.Sprintf("%s: %d", c.Name(), sh.Exp)
		for _, lvl := range sh.LevelsReached {
			levelUps = append(levelUps, fmt.Sprintf("%s reached level %d!", c.Name(), lvl))
		}
	}
	sum.Messages = append(sum.Messages, fmt.Sprintf("Experience gained: %d (%s)", sum.Exp, strings.Join(parts, ", ")))
	sum.Messages = append(sum.Messages, levelUps...)
}
