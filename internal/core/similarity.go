package core

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// similarity is the normalized Levenshtein similarity of two strings in
// [0,1], measured in runes.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}

// round4 rounds a score to four decimals so results compare stably.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
