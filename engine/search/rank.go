package search

import (
	"slices"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/semantic"
)

const (
	// ResultLimit caps the candidates fetched per query.
	ResultLimit = 10
	// MaxDistance is the relevance cutoff; hits at or above it are dropped.
	MaxDistance = 0.2
)

// Rank orders hits by ascending distance, keeping the store's order for
// ties, and drops those at or beyond MaxDistance. The input is not modified.
func Rank(hits []semantic.Hit) []semantic.Hit {
	ranked := slices.Clone(hits)
	slices.SortStableFunc(ranked, func(a, b semantic.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	kept := ranked[:0]
	for _, h := range ranked {
		if h.Distance < MaxDistance {
			kept = append(kept, h)
		}
	}
	return kept
}

// DisplayName projects a record to the string shown to users. With
// preferDisplay set, display_name wins when present; name otherwise.
func DisplayName(meta map[string]any, preferDisplay bool) string {
	if preferDisplay {
		if v, ok := meta[domain.KeyDisplayName].(string); ok {
			return v
		}
	}
	name, _ := meta[domain.KeyName].(string)
	return name
}
