package omnikv

import (
	"fmt"
	"math/rand/v2"

	"github.com/gobwas/glob"
)

// limitKeys filters, shuffles and truncates a listing, in that order.
// The shuffle covers the whole list so truncation samples the full keyspace.
func limitKeys(keys []string, c listConfig) ([]string, error) {
	if c.pattern != "" {
		g, err := glob.Compile(c.pattern, ':')
		if err != nil {
			return nil, &ValidationError{Index: -1, Reason: fmt.Sprintf("bad match pattern %q: %v", c.pattern, err)}
		}
		kept := keys[:0:0]
		for _, k := range keys {
			if g.Match(k) {
				kept = append(kept, k)
			}
		}
		keys = kept
	}
	if c.randomize {
		shuffle(keys)
	}
	if c.hasLimit && c.limit < len(keys) {
		keys = keys[:c.limit]
	}
	return keys, nil
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle[T any](s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
