package inventory

import (
	"fmt"
	"strings"
)

// GoldPerPlatinum is the number of gold coins in one platinum coin.
const GoldPerPlatinum = 100

// DecomposeGold converts a gold total into display tiers.
//
// Precondition: total >= 0.
// Postcondition: platinum*100 + gold == total; 0 <= gold < 100.
func DecomposeGold(total int) (platinum, gold int) {
	return total / GoldPerPlatinum, total % GoldPerPlatinum
}

// FormatGold returns a human-readable purse string such as
// "1 Platinum, 5 Gold".
//
// Precondition: total >= 0.
// Postcondition: platinum is omitted when zero; gold always appears.
func FormatGold(total int) string {
	platinum, gold := DecomposeGold(total)
	var parts []string
	if platinum > 0 {
		parts = append(parts, fmt.Sprintf("%d Platinum", platinum))
	}
	parts = append(parts, fmt.Sprintf("%d Gold", gold))
	return strings.Join(parts, ", ")
}
