// Package fuzzy scores nickname similarity on a 0..100 scale and picks the best roster or
// ledger candidate for a name.
package fuzzy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer rates the similarity of two strings from 0 (unrelated) to 100 (identical after
// processing).
type Scorer interface {
	Score(a, b string) int
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) int

func (f ScorerFunc) Score(a, b string) int { return f(a, b) }

// Default is the weighted ratio scorer the match thresholds are tuned against.
var Default Scorer = ScorerFunc(WRatio)

// ScorerByName returns the scorer selected in config: "wratio" (default) or "levenshtein".
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "", "wratio":
		return Default, nil
	case "levenshtein":
		return ScorerFunc(LevenshteinRatio), nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// Process drops Latin-1 supplement runes, turns every rune that is not a letter, digit or
// underscore into a space, lowercases and trims. Inner whitespace is kept as is.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 128 && r < 256:
			return -1
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, s)
	return strings.TrimSpace(mapped)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Ratio is the sequence-matcher similarity (2*matches / total length) of two strings.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return round(100 * difflib.NewMatcher(runes(a), runes(b)).Ratio())
}

// PartialRatio aligns the shorter string against each matching block of the longer one
// and keeps the best window.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	short, long := runes(a), runes(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	best := 0.0
	for _, block := range difflib.NewMatcher(short, long).GetMatchingBlocks() {
		start := max(block.B-block.A, 0)
		end := min(start+len(short), len(long))
		r := difflib.NewMatcher(short, long[start:end]).Ratio()
		if r > 0.995 {
			return 100
		}
		best = math.Max(best, r)
	}
	return round(100 * best)
}

// TokenSortRatio compares the strings after sorting their whitespace-separated tokens.
func TokenSortRatio(a, b string) int {
	return Ratio(sortTokens(a), sortTokens(b))
}

func partialTokenSortRatio(a, b string) int {
	return PartialRatio(sortTokens(a), sortTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's shared-plus-remaining tokens.
func TokenSetRatio(a, b string) int {
	return tokenSet(a, b, Ratio)
}

func partialTokenSetRatio(a, b string) int {
	return tokenSet(a, b, PartialRatio)
}

func tokenSet(a, b string, ratio func(a, b string) int) int {
	ta, tb := tokenSetOf(a), tokenSetOf(b)
	var shared, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(shared, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))
	return max(ratio(sect, withA), ratio(sect, withB), ratio(withA, withB))
}

func tokenSetOf(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

// WRatio picks the best of the plain, token and partial ratios. Partial variants are only
// tried when one string is at least 1.5 times longer, and are weighted down further as the
// length gap grows.
func WRatio(a, b string) int {
	pa, pb := Process(a), Process(b)
	la, lb := runeLen(pa), runeLen(pb)
	if la == 0 || lb == 0 {
		return 0
	}
	const unbaseScale = 0.95
	base := float64(Ratio(pa, pb))
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	if lenRatio < 1.5 {
		return round(max(base,
			float64(TokenSortRatio(pa, pb))*unbaseScale,
			float64(TokenSetRatio(pa, pb))*unbaseScale))
	}
	partialScale := 0.9
	if lenRatio > 8 {
		partialScale = 0.6
	}
	return round(max(base,
		float64(PartialRatio(pa, pb))*partialScale,
		float64(partialTokenSortRatio(pa, pb))*unbaseScale*partialScale,
		float64(partialTokenSetRatio(pa, pb))*unbaseScale*partialScale))
}

// LevenshteinRatio is 1 - distance/longest on processed strings, scaled to 0..100.
func LevenshteinRatio(a, b string) int {
	pa, pb := Process(a), Process(b)
	longest := max(runeLen(pa), runeLen(pb))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(pa, pb)
	return round(100 * (1 - float64(d)/float64(longest)))
}

func sortTokens(s string) string {
	f := strings.Fields(s)
	sort.Strings(f)
	return strings.Join(f, " ")
}

func runeLen(s string) int { return len([]rune(s)) }

func round(f float64) int { return int(math.RoundToEven(f)) }
