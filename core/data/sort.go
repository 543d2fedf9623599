package data

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collators keep internal buffers and are not safe for concurrent use.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.Numeric)
	},
}

// CompareNatural orders strings with embedded numbers by numeric value, so
// "id2" sorts before "id10". Strings the collator considers equal fall back to
// byte order, which keeps the ordering total and deterministic.
func CompareNatural(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)

	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}

// SortNatural sorts s in place using CompareNatural.
func SortNatural(s []string) {
	slices.SortFunc(s, CompareNatural)
}
