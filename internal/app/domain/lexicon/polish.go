package lexicon

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PluralPl picks the Polish plural form for n: one ("miejsce"),
// few ("miejsca", 2-4 except 12-14), many ("miejsc").
func PluralPl(n int, one, few, many string) string {
	if n == 1 {
		return one
	}
	last := n % 10
	lastTwo := n % 100
	if last >= 2 && last <= 4 && !(lastTwo >= 12 && lastTwo <= 14) {
		return few
	}
	return many
}

// ordinalPrefixes maps folded Polish ordinal stems to list positions.
// Stems cover all gender endings: "pierwsza", "pierwszy", "pierwsze".
var ordinalPrefixes = []struct {
	prefix string
	value  int
}{
	{"pierwsz", 1},
	{"drug", 2},
	{"trzec", 3},
	{"czwart", 4},
	{"piat", 5},
	{"szost", 6},
	{"siodm", 7},
	{"osm", 8},
	{"dziewiat", 9},
	{"dziesiat", 10},
}

// ParseOrdinal extracts a 1-based position from text, either as a bare
// digit token or a Polish ordinal word. Returns 0 when nothing matches.
func ParseOrdinal(text string) int {
	for _, tok := range Tokenize(text) {
		if n, err := strconv.Atoi(tok); err == nil && n >= 1 && n <= 99 {
			return n
		}
		for _, o := range ordinalPrefixes {
			if strings.HasPrefix(tok, o.prefix) {
				return o.value
			}
		}
	}
	return 0
}

// numberWords maps folded Polish cardinals to quantities.
var numberWords = map[string]int{
	"jeden": 1, "jedna": 1, "jedno": 1,
	"dwa": 2, "dwie": 2,
	"trzy":   3,
	"cztery": 4,
	"piec":   5,
	"szesc":  6,
	"siedem": 7,
	"osiem":  8,
	"dziewiec": 9, "dziesiec": 10,
}

// WordToNumber resolves a single token to a quantity; 0 when unknown.
func WordToNumber(token string) int {
	return numberWords[Normalize(token)]
}

// ParseQuantity finds the first quantity in text, digit or word form.
// Returns 0 when no quantity is present.
func ParseQuantity(text string) int {
	for _, tok := range Tokenize(text) {
		if n, err := strconv.Atoi(tok); err == nil && n >= 1 {
			return n
		}
		if n := numberWords[tok]; n > 0 {
			return n
		}
	}
	return 0
}

// ParsePosition resolves a list reference in any spoken form: a digit
// ("2"), a cardinal ("dwa") or an ordinal ("druga"). Returns 0 when the
// text carries no position.
func ParsePosition(text string) int {
	for _, tok := range Tokenize(text) {
		if n, err := strconv.Atoi(tok); err == nil && n >= 1 && n <= 99 {
			return n
		}
		if n := numberWords[tok]; n > 0 {
			return n
		}
		for _, o := range ordinalPrefixes {
			if strings.HasPrefix(tok, o.prefix) {
				return o.value
			}
		}
	}
	return 0
}

// spokenOrdinals renders list markers for speech: "Po pierwsze," etc.
var spokenOrdinals = []string{
	"pierwsze", "drugie", "trzecie", "czwarte", "piąte",
	"szóste", "siódme", "ósme", "dziewiąte", "dziesiąte",
}

// SpokenOrdinal returns the TTS list marker for a 1-based position.
// Positions beyond ten fall back to the bare number.
func SpokenOrdinal(pos int) string {
	if pos >= 1 && pos <= len(spokenOrdinals) {
		return "Po " + spokenOrdinals[pos-1] + ","
	}
	return fmt.Sprintf("Po %d,", pos)
}

// FormatDistance renders metres below one kilometre and kilometres with a
// single decimal above it.
func FormatDistance(meters float64) string {
	if meters < 0 {
		meters = 0
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(meters+0.5))
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// TitleCity renders a user-typed city name the way replies print it.
func TitleCity(city string) string {
	tc := cases.Title(language.Polish)
	return tc.String(strings.ToLower(strings.TrimSpace(city)))
}

// cityLocativeSuffixes are stripped longest-first; "w Bytomiu" must find
// the row stored as "Bytom", "w Katowicach" the one stored as "Katowice".
var cityLocativeSuffixes = []string{"ach", "iu", "ie", "u", "i", "e"}

// CityStem reduces a spoken, usually locative, city form to a folded stem
// that substring-matches the nominative stored in the catalog.
func CityStem(city string) string {
	stem := Normalize(city)
	if i := strings.IndexByte(stem, ' '); i > 0 {
		// Multi-word cities keep only suffix-stripping on the last word.
		head, last := stem[:i+1], stem[i+1:]
		return head + stripLocative(last)
	}
	return stripLocative(stem)
}

func stripLocative(word string) string {
	for _, suf := range cityLocativeSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}
