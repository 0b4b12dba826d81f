package food

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// ParsedUtterance is the order parser's reading of one utterance: dish
// names with per-item quantities, plus a global size and extras that
// apply to everything mentioned.
type ParsedUtterance struct {
	Items  []models.RequestedItem
	Size   string
	Extras []string
}

// All patterns run on normalized (folded, lowercased) text.
var (
	orderVerbRe = regexp.MustCompile(`\b(zamawiam|zamowie|zamow|poprosze o|poprosze|prosze o|prosze|wezme|wybieram|chcialbym|chcialabym|chce|dodaj|daj mi|daj|dla mnie|do tego)\b`)
	sizeRe      = regexp.MustCompile(`\b(mal[aye]|duz[aye])\b`)
	segmentRe   = regexp.MustCompile(`\s*,\s*|\s+i\s+|\s+oraz\s+|\s+plus\s+`)
	qtyTimesRe  = regexp.MustCompile(`^(\d+)x$`)
)

var extrasPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`\bna ostro\b|\bostr[aey]\b|\bostry\b`), "ostre"},
	{regexp.MustCompile(`\bz kurczakiem\b`), "kurczak"},
	{regexp.MustCompile(`\bz wolowina\b`), "wołowina"},
	{regexp.MustCompile(`\bz serem\b`), "ser"},
	{regexp.MustCompile(`\bz frytkami\b`), "frytki"},
	{regexp.MustCompile(`\bbez cebuli\b`), "bez cebuli"},
	{regexp.MustCompile(`\bbez sosu\b`), "bez sosu"},
}

// Filler tokens that survive verb stripping but are never part of a dish
// name.
var fillerTokens = map[string]struct{}{
	"jeszcze": {}, "tez": {}, "moze": {}, "jakas": {}, "jakis": {},
	"sztuki": {}, "sztuk": {}, "sztuke": {}, "razy": {},
	"porcje": {}, "porcji": {}, "porcja": {},
	"na": {}, "wynos": {}, "miejscu": {},
}

// ParseOrderText breaks one order utterance into requested items. "dwa
// pad thai i zupa pho" comes back as two items with quantities 2 and 1.
func ParseOrderText(text string) ParsedUtterance {
	norm := lexicon.Normalize(text)
	norm = orderVerbRe.ReplaceAllString(norm, " ")

	var parsed ParsedUtterance
	if m := sizeRe.FindString(norm); m != "" {
		parsed.Size = canonicalSize(m)
		norm = sizeRe.ReplaceAllString(norm, " ")
	}
	for _, ep := range extrasPatterns {
		if ep.re.MatchString(norm) {
			parsed.Extras = append(parsed.Extras, ep.label)
			norm = ep.re.ReplaceAllString(norm, " ")
		}
	}
	norm = strings.Join(strings.Fields(norm), " ")

	for _, segment := range segmentRe.Split(norm, -1) {
		if item, ok := parseSegment(segment); ok {
			parsed.Items = append(parsed.Items, item)
		}
	}
	return parsed
}

func parseSegment(segment string) (models.RequestedItem, bool) {
	qty := 0
	expectX := false
	var nameTokens []string
	for _, tok := range strings.Fields(segment) {
		if _, filler := fillerTokens[tok]; filler {
			continue
		}
		if expectX && tok == "x" {
			expectX = false
			continue
		}
		expectX = false

		// The quantity only counts before any dish word appears.
		if qty == 0 && len(nameTokens) == 0 {
			if n, err := strconv.Atoi(tok); err == nil && n >= 1 {
				qty = n
				expectX = true
				continue
			}
			if m := qtyTimesRe.FindStringSubmatch(tok); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
					qty = n
				}
				continue
			}
			if n := lexicon.WordToNumber(tok); n > 0 {
				qty = n
				continue
			}
		}
		nameTokens = append(nameTokens, tok)
	}

	name := strings.Join(nameTokens, " ")
	if name == "" {
		return models.RequestedItem{}, false
	}
	if qty == 0 {
		qty = 1
	}
	return models.RequestedItem{Name: name, Quantity: qty}, true
}

func canonicalSize(folded string) string {
	if strings.HasPrefix(folded, "mal") {
		return "mała"
	}
	return "duża"
}
