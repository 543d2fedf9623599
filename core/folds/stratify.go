package folds

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/nestcv/core/data"
)

// stratify deals the instances of each class round-robin into folds 1..k.
// Classes are visited in natural order and each class is shuffled with a fresh
// generator seeded identically, so every worker derives the same partition. The
// fold counter carries over from one class to the next.
func stratify(dv *data.Collection, dvName string, k int, seed int64) map[int][]string {
	folds := make(map[int][]string, k)
	current := 1
	for _, option := range dv.UniqueValues(dvName) {
		ids := dv.FilterByValue(dvName, option).IDs()
		shuffle(ids, seed)

		for _, id := range ids {
			folds[current] = append(folds[current], id)
			if current == k {
				current = 1
			} else {
				current++
			}
		}
	}
	return folds
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

func shuffle(ids []string, seed int64) {
	r := newRand(seed)
	r.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// randomSubset shuffles a copy of ids with seed and returns its first n
// entries (all of them when n exceeds the length).
func randomSubset(ids []string, n int, seed int64) []string {
	shuffled := append([]string(nil), ids...)
	shuffle(shuffled, seed)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	subset := shuffled[:n]
	data.SortNatural(subset)
	return subset
}
