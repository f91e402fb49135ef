package resolver

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	apostropheRegex    = regexp.MustCompile(`['\x60\x{2018}\x{2019}\x{02BC}]`)
	specialCharsRegex  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpaceRegex = regexp.MustCompile(`\s+`)
)

var leadingArticles = []string{"the ", "a ", "an "}

// NormalizeTitle converts a title to a normalized form for comparison.
// It folds accents, lowercases, strips apostrophes, replaces remaining
// punctuation with spaces, collapses whitespace and drops a leading article.
// "Schitt's Creek" and "Schitts Creek" both normalize to "schitts creek";
// "Amélie" normalizes to "amelie".
func NormalizeTitle(title string) string {
	normalized := foldAccents(title)
	normalized = strings.ToLower(normalized)
	normalized = strings.ReplaceAll(normalized, "&", " and ")
	normalized = apostropheRegex.ReplaceAllString(normalized, "")
	normalized = specialCharsRegex.ReplaceAllString(normalized, " ")
	normalized = multipleSpaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(normalized, article); ok && rest != "" {
			return rest
		}
	}
	return normalized
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

var (
	editMetric = metrics.NewLevenshtein()
	wordMetric = &metrics.SorensenDice{NgramSize: 1}
)

// Similarity scores two titles between 0 and 1. It is the larger of the
// Levenshtein similarity and the Sørensen–Dice coefficient over words, so
// both typos and extra words are tolerated.
func Similarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	wa, wb := wordRunes(na, nb)
	return max(strutil.Similarity(na, nb, editMetric), strutil.Similarity(wa, wb, wordMetric))
}

// wordRunes encodes the distinct words of a and b as one rune per word, so a
// unigram metric compares word sets.
func wordRunes(a, b string) (string, string) {
	codes := make(map[string]rune)
	encode := func(s string) string {
		var sb strings.Builder
		seen := make(map[string]bool)
		for _, w := range strings.Fields(s) {
			if seen[w] {
				continue
			}
			seen[w] = true
			code, ok := codes[w]
			if !ok {
				code = rune(0xE000 + len(codes))
				codes[w] = code
			}
			sb.WriteRune(code)
		}
		return sb.String()
	}
	return encode(a), encode(b)
}
