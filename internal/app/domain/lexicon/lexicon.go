// Package lexicon holds the Polish text primitives every other layer leans
// on: normalization, tokenization, fuzzy matching, plural forms, ordinals
// and cuisine vocabulary. Everything here is deterministic and offline.
package lexicon

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strokedReplacer handles letters that do not decompose into a base char
// plus combining mark, so the NFD fold below cannot touch them.
var strokedReplacer = strings.NewReplacer(
	"ł", "l",
	"Ł", "L",
	"ø", "o",
	"Ø", "O",
	"đ", "d",
	"Đ", "D",
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Fold strips diacritics: "żółć" becomes "zolc". Case is preserved.
func Fold(s string) string {
	s = strokedReplacer.Replace(s)
	out, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases, folds diacritics and collapses whitespace. It is
// idempotent, which matters because normalized forms get re-normalized on
// the comparison side.
func Normalize(s string) string {
	s = Fold(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits normalized text on word boundaries.
func Tokenize(s string) []string {
	return wordPattern.FindAllString(Normalize(s), -1)
}

// FuzzyIncludes reports whether needle plausibly occurs in hay. A direct
// substring match on normalized forms wins; otherwise at least half of the
// needle's significant tokens must appear among hay's tokens.
func FuzzyIncludes(hay, needle string) bool {
	h := Normalize(hay)
	n := Normalize(needle)
	if h == "" || n == "" {
		return false
	}
	if strings.Contains(h, n) {
		return true
	}

	hayTokens := make(map[string]struct{})
	for _, t := range Tokenize(hay) {
		hayTokens[t] = struct{}{}
	}

	var significant, matched int
	for _, t := range Tokenize(needle) {
		if len(t) < 3 {
			continue
		}
		significant++
		if _, ok := hayTokens[t]; ok {
			matched++
		}
	}
	if significant == 0 {
		return false
	}
	return matched*2 >= significant
}

// HasWord reports whether text contains word with word boundaries on both
// sides, after normalization. Substring hits inside longer words do not
// count, so "bar" never matches "barszcz".
func HasWord(text, word string) bool {
	w := Normalize(word)
	if w == "" {
		return false
	}
	for _, t := range Tokenize(text) {
		if t == w {
			return true
		}
	}
	// multi-word needles: fall back to boundary-aware substring search
	if strings.Contains(w, " ") {
		return containsPhrase(Normalize(text), w)
	}
	return false
}

func containsPhrase(hay, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(hay[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordByte(hay[start-1])
		afterOK := end == len(hay) || !isWordByte(hay[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
