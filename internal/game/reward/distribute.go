// Package reward hands out experience, gold, loot and energy after a won
// battle.
package reward

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// Distribute splits total experience across k recipients. Each share starts
// from an equal split with the remainder going to the first recipients in
// order, then moves by a random fraction in [-variance, variance] of itself,
// truncated toward zero and floored at 0. Any drift is then reconciled
// cyclically in roster order, one point at a time, never taking a share
// below zero.
//
// Postcondition: k <= 0 returns nil; otherwise len(result) == k, every share
// is >= 0 and the shares sum to max(0, total).
func Distribute(src dice.Source, total, k int, variance float64) []int {
	if k <= 0 {
		return nil
	}
	total = max(0, total)
	shares := make([]int, k)
	base, rem := total/k, total%k
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}

	if variance > 0 {
		for i, s := range shares {
			delta := int(float64(s) * dice.Uniform(src, -variance, variance))
			shares[i] = max(0, s+delta)
		}
	}

	sum := 0
	for _, s := range shares {
		sum += s
	}
	diff := total - sum
	if diff > 0 {
		each, extra := diff/k, diff%k
		for i := range shares {
			shares[i] += each
			if i < extra {
				shares[i]++
			}
		}
	}
	// sum > total implies some share is positive, so this terminates.
	for i := 0; diff < 0; i = (i + 1) % k {
		if shares[i] > 0 {
			shares[i]--
			diff++
		}
	}
	return shares
}
