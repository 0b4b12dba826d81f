package nlu

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// properLocRe runs on the raw utterance so capitalization survives; the
// captured form stays inflected ("w Bytomiu" keeps "Bytomiu") and only the
// repository query stems it.
var (
	properLocRe = regexp.MustCompile(`\b[wW]e?\s+(\p{Lu}[\p{L}-]+(?:\s+\p{Lu}[\p{L}-]+)?)`)
	lowerLocRe  = regexp.MustCompile(`\bwe?\s+(\p{L}+)`)
)

// Phrases like "w pobliżu" or "w sumie" look like locations to the
// preposition regex and must not become cities.
var locationStopwords = map[string]struct{}{
	"poblizu": {}, "okolicy": {}, "okolicach": {}, "domu": {}, "pracy": {},
	"centrum": {}, "miescie": {}, "koncu": {}, "sumie": {}, "porzadku": {},
	"ogole": {}, "takim": {}, "razie": {}, "koszyku": {}, "menu": {},
	"restauracji": {}, "knajpie": {}, "barze": {}, "pizzerii": {}, "poludnie": {},
}

// bareCityStopwords reject one-word replies that are not city names when
// the bot just asked for one.
var bareCityStopwords = map[string]struct{}{
	"nie": {}, "wiem": {}, "gdzies": {}, "blisko": {}, "niedaleko": {},
	"obojetnie": {}, "wszystko": {}, "jedno": {}, "tutaj": {}, "tu": {},
	"moze": {}, "hmm": {}, "no": {}, "to": {}, "daj": {}, "cokolwiek": {},
}

// discoverySkip holds the discovery vocabulary and generic venue nouns that
// never name a cuisine or a dish.
var discoverySkip = map[string]struct{}{
	"gdzie": {}, "mozna": {}, "moge": {}, "mozemy": {}, "mozesz": {},
	"cos": {}, "zjesc": {}, "zjem": {}, "zjemy": {},
	"zjadlbym": {}, "zjadlabym": {}, "szukam": {}, "szukamy": {}, "znajdz": {},
	"polecasz": {}, "polecisz": {}, "polec": {}, "co": {}, "warto": {},
	"glodny": {}, "glodna": {}, "jestem": {}, "bardzo": {}, "pokaz": {},
	"mi": {}, "jakies": {}, "jakas": {}, "jakis": {}, "jakiejs": {},
	"dobre": {}, "dobry": {}, "dobrego": {}, "dobra": {}, "fajne": {},
	"fajna": {}, "fajnego": {}, "tanie": {}, "tania": {}, "taniego": {},
	"tanio": {}, "no": {}, "gdzies": {},
	"blisko": {}, "niedaleko": {}, "najblizsza": {}, "najblizszy": {},
	"teraz": {}, "dzisiaj": {}, "dzis": {}, "wieczorem": {}, "rano": {},
	"w": {}, "we": {}, "na": {}, "do": {}, "z": {}, "ze": {}, "i": {},
	"o": {}, "a": {}, "u": {}, "jest": {}, "sa": {}, "chce": {},
	"chcialbym": {}, "chcialabym": {}, "moze": {}, "prosze": {},
	"poprosze": {}, "restauracje": {}, "restauracja": {}, "restauracji": {},
	"knajpy": {}, "knajpa": {}, "knajpe": {}, "bary": {}, "barow": {},
	"barach": {}, "lokal": {}, "lokale": {}, "miejsce": {}, "miejsca": {},
	"otwarte": {}, "otwartego": {}, "okolicy": {}, "poblizu": {},
}

// extractLocation pulls the city out of text. The capitalized pass trusts
// the preposition; the lowercase pass only accepts tokens whose stem
// matches a city the catalog actually has, so "w sumie coś zjem" stays
// city-less.
func extractLocation(raw, norm string, known func(string) bool) string {
	for _, m := range properLocRe.FindAllStringSubmatch(raw, -1) {
		cand := m[1]
		if _, stop := locationStopwords[lexicon.Normalize(cand)]; stop {
			continue
		}
		return cand
	}

	if known == nil {
		return ""
	}
	for _, m := range lowerLocRe.FindAllStringSubmatch(norm, -1) {
		cand := m[1]
		if len(cand) < 4 {
			continue
		}
		if _, stop := locationStopwords[cand]; stop {
			continue
		}
		if known(cand) {
			return cand
		}
	}
	return ""
}

// extractCuisineDish reads what is left of a discovery phrase once the
// vocabulary and the location tokens are dropped. A leading known cuisine
// word wins; anything else is treated as a dish to look up later.
func extractCuisineDish(norm, location string) (cuisine, dish string) {
	locTokens := make(map[string]struct{})
	for _, t := range lexicon.Tokenize(location) {
		locTokens[t] = struct{}{}
	}

	var leftovers []string
	for _, tok := range lexicon.Tokenize(norm) {
		if _, skip := discoverySkip[tok]; skip {
			continue
		}
		if lexicon.IsCuisineStopword(tok) {
			continue
		}
		if _, loc := locTokens[tok]; loc {
			continue
		}
		leftovers = append(leftovers, tok)
		if len(leftovers) == 3 {
			break
		}
	}

	if len(leftovers) == 0 {
		return "", ""
	}
	if lexicon.KnownCuisine(leftovers[0]) {
		return leftovers[0], ""
	}
	return "", strings.Join(leftovers, " ")
}

// bareCity treats a short reply as a city name when the previous turn asked
// for one. Two tokens cover names like "Zielona Góra".
func bareCity(norm string) string {
	var toks []string
	for _, tok := range lexicon.Tokenize(norm) {
		if _, skip := bareCityStopwords[tok]; skip {
			continue
		}
		toks = append(toks, tok)
	}
	if len(toks) == 0 || len(toks) > 2 {
		return ""
	}
	for _, tok := range toks {
		if len(tok) < 3 {
			return ""
		}
	}
	return strings.Join(toks, " ")
}

// selectionFillers are the words allowed to surround a bare list position:
// "wybieram dwa", "ta druga", "numer 2".
var selectionFillers = map[string]struct{}{
	"wybieram": {}, "biore": {}, "wole": {}, "poprosze": {}, "numer": {},
	"opcja": {}, "opcje": {}, "ta": {}, "ten": {}, "to": {}, "te": {},
	"moze": {}, "niech": {}, "bedzie": {},
}

// bareSelection reports whether norm is nothing but a list position, so
// "dwa" picks option two while "dwa kebaby" stays an order.
func bareSelection(norm string) bool {
	toks := lexicon.Tokenize(norm)
	if len(toks) == 0 || len(toks) > 3 {
		return false
	}
	sawPosition := false
	for _, tok := range toks {
		if lexicon.ParsePosition(tok) > 0 {
			sawPosition = true
			continue
		}
		if _, filler := selectionFillers[tok]; !filler {
			return false
		}
	}
	return sawPosition
}

// menuWords are tokens that together mean "show me the menu" rather than
// naming a dish.
var menuWords = map[string]struct{}{
	"menu": {}, "karta": {}, "karte": {}, "karty": {}, "oferta": {},
	"oferte": {}, "pokaz": {}, "zobacz": {}, "jakie": {}, "macie": {},
	"maja": {}, "dania": {}, "co": {}, "jest": {},
}

func menuWordsOnly(text string) bool {
	toks := lexicon.Tokenize(text)
	if len(toks) == 0 {
		return false
	}
	for _, tok := range toks {
		if _, ok := menuWords[tok]; !ok {
			return false
		}
	}
	return true
}

// stripRestaurantTokens removes the restaurant's own name and alias tokens
// from a parsed item so "kebab z tasty king" leaves "kebab". Matching is
// prefix-tolerant to survive Polish inflection ("baru" vs "bar").
func stripRestaurantTokens(text string, rest *models.Restaurant) string {
	drop := lexicon.Tokenize(rest.Name)
	for _, alias := range rest.Aliases {
		drop = append(drop, lexicon.Tokenize(alias)...)
	}

	var kept []string
	for _, tok := range lexicon.Tokenize(text) {
		if tok == "z" || tok == "w" || tok == "od" || tok == "u" || tok == "we" {
			continue
		}
		if matchesAny(tok, drop) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func matchesAny(tok string, drop []string) bool {
	for _, d := range drop {
		if tok == d {
			return true
		}
		if len(d) >= 3 && strings.HasPrefix(tok, d) {
			return true
		}
		if len(tok) >= 3 && strings.HasPrefix(d, tok) {
			return true
		}
	}
	return false
}
