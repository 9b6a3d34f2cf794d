package dice

// Chance reports whether an event with probability p happens.
// p <= 0 never happens and p >= 1 always happens, but a draw is consumed either way
// so the sequence of draws does not depend on p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Uniform returns a float drawn uniformly from [lo, hi].
//
// Precondition: lo <= hi.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Between returns an int drawn uniformly from the closed range [lo, hi].
//
// Precondition: lo <= hi.
// Postcondition: lo <= result <= hi.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Sample returns k distinct indexes from [0, n) in draw order, using a partial
// Fisher-Yates shuffle. k is clamped to n.
//
// Postcondition: len(result) == min(k, n); all entries are distinct.
func Sample(src Source, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// Weighted returns an index into weights chosen with probability proportional
// to its weight. Non-positive weights are never chosen. Returns -1 when no
// weight is positive.
func Weighted(src Source, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := src.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if r < w {
			return i
		}
		r -= w
	}
	return last
}
