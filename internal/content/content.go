// Package content loads the YAML and Lua content tree into registries.
//
// The tree layout is fixed:
//
//	<dir>/effects/*.yaml
//	<dir>/abilities/*.yaml
//	<dir>/classes/*.yaml   (kind: player)
//	<dir>/monsters/*.yaml  (kind: monster)
//	<dir>/items/*.yaml     (optional)
//	<dir>/scripts/*.lua    (optional)
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/ability"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Library holds every registry loaded from one content tree.
type Library struct {
	Effects   *effect.Registry
	Abilities *ability.Registry
	Classes   *character.Registry
	Monsters  *character.Registry
	Items     *inventory.Registry
	Scripts   *scripting.Manager
}

// Load reads the content tree at dir. Lua scripts run in a sandbox bounded
// by instLimit instructions per hook call and roll dice through roller.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: every class directory holds the right kind, otherwise a
// non-nil error is returned. Every effect an ability names is registered;
// references to unknown effects are omitted with a warning.
func Load(dir string, roller *dice.Roller, instLimit int, logger *zap.Logger) (*Library, error) {
	start := time.Now()
	lib := &Library{}
	var err error

	if lib.Effects, err = effect.LoadDirectory(filepath.Join(dir, "effects")); err != nil {
		return nil, fmt.Errorf("content: loading effects: %w", err)
	}
	if lib.Abilities, err = ability.LoadDirectory(filepath.Join(dir, "abilities")); err != nil {
		return nil, fmt.Errorf("content: loading abilities: %w", err)
	}
	if lib.Classes, err = loadClasses(filepath.Join(dir, "classes"), character.KindPlayer); err != nil {
		return nil, err
	}
	if lib.Monsters, err = loadClasses(filepath.Join(dir, "monsters"), character.KindMonster); err != nil {
		return nil, err
	}
	lib.pruneEffects(logger)

	lib.Items = inventory.NewRegistry()
	if itemsDir := filepath.Join(dir, "items"); isDir(itemsDir) {
		defs, err := inventory.LoadItems(itemsDir)
		if err != nil {
			return nil, fmt.Errorf("content: loading items: %w", err)
		}
		if lib.Items, err = inventory.NewRegistryFrom(defs); err != nil {
			return nil, fmt.Errorf("content: registering items: %w", err)
		}
	}

	lib.Scripts = scripting.NewManager(roller, logger)
	if scriptDir := filepath.Join(dir, "scripts"); isDir(scriptDir) {
		if err := lib.Scripts.Load(scriptDir, instLimit); err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
	} else {
		lib.warnUnscriptedHooks(logger)
	}

	lib.warnMissingGrants(logger)

	logger.Info("content loaded",
		zap.String("dir", dir),
		zap.Int("effects", len(lib.Effects.IDs())),
		zap.Int("abilities", len(lib.Abilities.IDs())),
		zap.Int("classes", len(lib.Classes.IDs())),
		zap.Int("monsters", len(lib.Monsters.IDs())),
		zap.Int("items", lib.Items.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return lib, nil
}

// Env returns the ability execution environment backed by this library.
func (l *Library) Env(src dice.Source, logger *zap.Logger) ability.Env {
	return ability.Env{Src: src, Effects: l.Effects, Scripts: l.Scripts, Logger: logger}
}

// Close releases the script VM.
func (l *Library) Close() {
	if l.Scripts != nil {
		l.Scripts.Close()
	}
}

func loadClasses(dir string, kind character.Kind) (*character.Registry, error) {
	reg, err := character.LoadDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("content: loading %s classes: %w", kind, err)
	}
	for _, id := range reg.IDs() {
		c, _ := reg.Get(id)
		if c.Kind != kind {
			return nil, fmt.Errorf("content: class %q in %q has kind %q, want %q", id, dir, c.Kind, kind)
		}
	}
	return reg, nil
}

// pruneEffects omits references to unregistered effects: an active
// ability loses the offending entry, and an on-hit passive whose effect is
// missing is dropped entirely. Each omission is logged at Warn.
func (l *Library) pruneEffects(logger *zap.Logger) {
	for _, id := range l.Abilities.IDs() {
		def, _ := l.Abilities.Get(id)
		kept := def.Effects[:0]
		for _, ec := range def.Effects {
			if _, ok := l.Effects.Get(ec.Effect); ok {
				kept = append(kept, ec)
				continue
			}
			logger.Warn("content: ability names unregistered effect; entry omitted",
				zap.String("ability", id),
				zap.String("effect", ec.Effect),
				zap.Error(effect.ErrUnknownEffect),
			)
		}
		def.Effects = kept

		if def.Effect == "" {
			continue
		}
		if _, ok := l.Effects.Get(def.Effect); !ok {
			l.Abilities.Remove(id)
			logger.Warn("content: passive names unregistered effect; ability omitted",
				zap.String("ability", id),
				zap.String("effect", def.Effect),
				zap.Error(effect.ErrUnknownEffect),
			)
		}
	}
}

// warnMissingGrants logs class grants naming unregistered abilities. The
// builder skips them as well, so this only surfaces the problem early.
func (l *Library) warnMissingGrants(logger *zap.Logger) {
	for _, reg := range []*character.Registry{l.Classes, l.Monsters} {
		for _, id := range reg.IDs() {
			c, _ := reg.Get(id)
			var missing []string
			for _, g := range c.Abilities {
				if _, ok := l.Abilities.Get(g.Ability); !ok {
					missing = append(missing, g.Ability)
				}
			}
			if len(missing) > 0 {
				logger.Warn("content: class grants unregistered abilities",
					zap.String("class", id),
					zap.String("abilities", strings.Join(missing, ",")),
				)
			}
		}
	}
}

func (l *Library) warnUnscriptedHooks(logger *zap.Logger) {
	for _, id := range l.Abilities.IDs() {
		def, _ := l.Abilities.Get(id)
		if def.ConditionHook != "" {
			logger.Warn("content: condition hook without scripts",
				zap.String("ability", id),
				zap.String("hook", def.ConditionHook),
			)
		}
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
