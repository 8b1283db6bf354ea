// Package match fuzzy-matches a target title against the comparable corpus
// using a token-set similarity score on a 0-100 scale.
package match

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Normalize lowercases a title, replaces punctuation with spaces, and
// collapses runs of whitespace. Matching and group binning always operate on
// normalized titles.
func Normalize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 127 && !isPunct(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isPunct(r rune) bool {
	return strings.ContainsRune("–—‘’“”«»", r)
}

// Tokens splits a normalized title into its word tokens.
func Tokens(s string) []string {
	return strings.Fields(Normalize(s))
}

// Ratio is the normalized edit-distance similarity of two strings:
// 100 * (1 - distance/longer_length), rounded to the nearest integer.
func Ratio(a, b string) int {
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	longer := len([]rune(a))
	if n := len([]rune(b)); n > longer {
		longer = n
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(d)/float64(longer))))
}

// TokenSetRatio compares the sorted token sets of two titles: the shared
// tokens, and the shared tokens extended with each side's remainder. Word
// order and duplicate tokens do not affect the score; two titles with equal
// token sets always score 100.
func TokenSetRatio(a, b string) int {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for t := range ta {
		if tb[t] {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if !ta[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(inter, " ")
	sa := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	sb := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(base, sa)
	if s := Ratio(base, sb); s > best {
		best = s
	}
	if s := Ratio(sa, sb); s > best {
		best = s
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}
