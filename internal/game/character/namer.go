package character

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

var (
	nameAdjectives = []string{
		"Filthy", "Rotten", "Bloody", "Furious", "Vile",
		"Reeking", "Savage", "Ravenous", "Grim", "Spiteful",
		"Bone", "Blazing", "Frozen", "Shadow", "Venomous",
		"Starving", "Rabid", "Grave", "Cursed", "Ancient",
		"Slimy", "Parasitic", "Festering", "Thorny", "Strange",
		"Twisted", "Wicked", "Plague", "Deathly", "Stinking",
	}
	nameTitles = []string{
		"the Elder", "the Younger", "the Great", "the Mighty", "the Terrible",
		"the Lord", "the Warden", "the Hunter", "the Avenger",
		"of Darkness", "of Hell", "of Blood", "of Death", "of Chaos",
	}
)

// titleChance is the fraction of generated names that carry a title.
const titleChance = 0.1

// nameAttempts bounds the redraws spent avoiding a duplicate name.
const nameAttempts = 10

// Namer generates enemy names such as "Rabid Goblin" or "Grim Orc of Chaos".
// Names are drawn from src, so a seeded source names a roster the same way
// every run. A Namer remembers the names it has issued and redraws on a
// collision.
type Namer struct {
	src  dice.Source
	used map[string]bool
}

// NewNamer creates a Namer drawing from src.
//
// Precondition: src must be non-nil.
func NewNamer(src dice.Source) *Namer {
	return &Namer{src: src, used: make(map[string]bool)}
}

// Name returns a name for a member of base, e.g. a class name.
// After nameAttempts collisions the last draw is suffixed with a number.
//
// Postcondition: the result has not been returned before by this Namer.
func (n *Namer) Name(base string) string {
	var name string
	for range nameAttempts {
		name = n.draw(base)
		if !n.used[name] {
			n.used[name] = true
			return name
		}
	}
	stem := name
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s %d", stem, i)
	}
	n.used[name] = true
	return name
}

func (n *Namer) draw(base string) string {
	adj := nameAdjectives[n.src.Intn(len(nameAdjectives))]
	if dice.Chance(n.src, titleChance) {
		return fmt.Sprintf("%s %s %s", adj, base, nameTitles[n.src.Intn(len(nameTitles))])
	}
	return adj + " " + base
}
