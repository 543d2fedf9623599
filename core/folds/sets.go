package folds

import "sort"

func sortedKeys(m map[int][]string) []int {
	keys := make([]int, 0, len(m))
	for k, v := range m {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}

func without(ids, remove []string) []string {
	if len(remove) == 0 {
		return append([]string(nil), ids...)
	}
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

func anyIn(ids []string, instances IDSet) bool {
	for _, id := range ids {
		if instances.Has(id) {
			return true
		}
	}
	return false
}
