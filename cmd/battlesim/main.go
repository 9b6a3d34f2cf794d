// Package main provides the battle simulator binary: it loads the content
// tree, builds two rosters, fights them to a conclusion and hands out the
// rewards of a victory.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/content"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/reward"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults and environment only")
	alliesFlag := flag.String("allies", "warrior,healer", "ally roster, e.g. \"warrior:Brom,healer:Vera\"")
	enemiesFlag := flag.String("enemies", "goblin:2,orc", "enemy roster, e.g. \"goblin:2,troll\"")
	level := flag.Int("level", 1, "ally level")
	enemyLevel := flag.Int("enemy-level", 0, "enemy level; 0 = same as -level")
	seed := flag.Uint64("seed", 0, "random seed; 0 = battle.seed from config, then crypto source")
	quiet := flag.Bool("quiet", false, "do not echo narration to stdout")
	traceFile := flag.String("trace", "", "write battle spans to this file; overrides tracing.file and enables tracing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *traceFile != "" {
		cfg.Tracing = config.TracingConfig{Enabled: true, File: *traceFile}
	}
	tp, shutdownTracing, err := observability.NewTracerProvider(ctx, cfg.Tracing, "battlesim")
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	if *seed != 0 {
		cfg.Battle.Seed = *seed
	}
	if *enemyLevel == 0 {
		*enemyLevel = *level
	}

	var src dice.Source
	if cfg.Battle.Seed != 0 {
		src = dice.NewSeededSource(cfg.Battle.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewLoggedRoller(src, logger)

	lib, err := content.Load(cfg.Content.Dir, roller, cfg.Content.ScriptInstructionLimit, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer lib.Close()

	builder := character.NewBuilder(lib.Abilities, lib.Env(roller, logger))
	allies, err := buildSide(builder, lib.Classes, *alliesFlag, character.SideAlly, *level)
	if err != nil {
		logger.Fatal("building allies", zap.Error(err))
	}
	enemies, err := buildSide(builder, lib.Monsters, *enemiesFlag, character.SideEnemy, *enemyLevel)
	if err != nil {
		logger.Fatal("building enemies", zap.Error(err))
	}

	var out io.Writer = os.Stdout
	if *quiet {
		out = nil
	}
	transcript := observability.NewTranscript(out, logger)

	battle, err := combat.NewBattle(allies, enemies, roller, transcript, logger, cfg.Battle.MaxRounds)
	if err != nil {
		logger.Fatal("creating battle", zap.Error(err))
	}
	battle.SetTracer(tp.Tracer("github.com/cory-johannsen/skirmish/internal/game/combat"))

	logger.Info("battle starting",
		zap.Int("allies", len(allies)),
		zap.Int("enemies", len(enemies)),
		zap.Uint64("seed", cfg.Battle.Seed),
		zap.Duration("setup", time.Since(start)),
	)

	result, err := battle.Run(ctx)
	if err != nil {
		logger.Error("battle interrupted", zap.Error(err), zap.Int("rounds", result.Rounds))
		return 1
	}

	pool := inventory.NewPool()
	distributor := reward.NewDistributor(rewardConfig(cfg), roller, pool, lootGenerator(lib, roller, cfg.Loot, logger), logger)
	summary := distributor.Award(result.Outcome, allies, enemies)

	printSummary(message.NewPrinter(language.English), result, summary, pool, allies)
	logger.Info("battlesim finished", zap.Duration("elapsed", time.Since(start)))
	return 0
}

func buildSide(b *character.Builder, reg *character.Registry, roster string, side character.Side, level int) ([]*character.Character, error) {
	specs, err := character.ParseRoster(roster)
	if err != nil {
		return nil, err
	}
	return b.BuildRoster(reg, specs, side, level)
}

func rewardConfig(cfg config.Config) reward.Config {
	r := cfg.Rewards
	return reward.Config{
		ExpBase:              r.ExpBase,
		ExpVariance:          r.ExpVariance,
		GoldBase:             r.GoldBase,
		GoldVariance:         r.GoldVariance,
		EnergyRestorePercent: r.EnergyRestorePercent,
		ExpShareVariance:     r.ExpShareVariance,
		MaxLootItems:         cfg.Loot.MaxItems,
		DropChance:           cfg.Loot.DropChance,
	}
}

// lootGenerator returns nil, disabling loot, when the content tree has no items.
func lootGenerator(lib *content.Library, src dice.Source, cfg config.LootConfig, logger *zap.Logger) reward.LootGenerator {
	if lib.Items.Len() == 0 {
		logger.Info("no item templates loaded; loot disabled")
		return nil
	}
	gen, err := inventory.NewGenerator(lib.Items, src, cfg.RarityWeights)
	if err != nil {
		logger.Warn("loot disabled", zap.Error(err))
		return nil
	}
	return gen
}

func printSummary(p *message.Printer, result combat.Result, sum reward.Summary, pool *inventory.Pool, allies []*character.Character) {
	p.Println()
	p.Printf("Outcome: %s after %d rounds (%d actions)\n", result.Outcome, result.Rounds, len(result.Actions))
	for _, m := range sum.Messages {
		p.Println(m)
	}
	if !sum.Empty() {
		p.Printf("Party purse: %s (%d gold)\n", inventory.FormatGold(pool.Gold()), pool.Gold())
		for _, item := range pool.Items() {
			p.Printf("  %s worth %d\n", item, item.Value)
		}
	}
	for _, a := range allies {
		p.Printf("%-12s lvl %d  hp %d/%d  energy %d/%d  exp %d/%d\n",
			a.Name(), a.Level(), a.HP(), a.MaxHP(), a.Energy(), a.MaxEnergy(), a.Exp(), a.ExpToNext())
	}
}
