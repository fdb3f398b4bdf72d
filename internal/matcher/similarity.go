package matcher

import (
	"github.com/agext/levenshtein"
)

// Similarity returns 1 - lev(a, b) / max(len(a), len(b)) for two address
// keys. Two empty keys are identical.
func Similarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b, nil)
	return float64(longest-dist) / float64(longest)
}

// Score normalizes both addresses and returns their similarity.
func Score(address, candidate string) float64 {
	return Similarity(NormalizeAddress(address), NormalizeAddress(candidate))
}
