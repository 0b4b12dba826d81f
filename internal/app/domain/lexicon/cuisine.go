package lexicon

// cuisineAliases maps folded user vocabulary to the catalog cuisine labels
// it expands to. One alias can fan out to several labels; the repository
// turns the expansion into an IN filter.
var cuisineAliases = map[string][]string{
	"azjatyckie":   {"Wietnamska", "Chińska", "Tajska"},
	"azjatycka":    {"Wietnamska", "Chińska", "Tajska"},
	"azjatyckiego": {"Wietnamska", "Chińska", "Tajska"},
	"chinskie":     {"Chińska"},
	"chinska":      {"Chińska"},
	"chinskiej":    {"Chińska"},
	"wietnamska":   {"Wietnamska"},
	"wietnamskiej": {"Wietnamska"},
	"tajska":       {"Tajska"},
	"tajskiej":     {"Tajska"},
	"japonska":     {"Japońska", "Sushi"},
	"japonskiej":   {"Japońska", "Sushi"},
	"sushi":        {"Sushi", "Japońska"},
	"wloska":       {"Włoska", "Pizza"},
	"wloskie":      {"Włoska", "Pizza"},
	"wloskiej":     {"Włoska", "Pizza"},
	"pizza":        {"Pizza", "Włoska"},
	"pizzy":        {"Pizza", "Włoska"},
	"pizze":        {"Pizza", "Włoska"},
	"pizzeria":     {"Pizza", "Włoska"},
	"pizzerie":     {"Pizza", "Włoska"},
	"pizzerii":     {"Pizza", "Włoska"},
	"kebab":        {"Kebab", "Turecka"},
	"kebaba":       {"Kebab", "Turecka"},
	"kebabu":       {"Kebab", "Turecka"},
	"kebaby":       {"Kebab", "Turecka"},
	"kebabow":      {"Kebab", "Turecka"},
	"turecka":      {"Turecka", "Kebab"},
	"tureckiej":    {"Turecka", "Kebab"},
	"burger":       {"Burgery", "Amerykańska"},
	"burgera":      {"Burgery", "Amerykańska"},
	"burgery":      {"Burgery", "Amerykańska"},
	"burgerow":     {"Burgery", "Amerykańska"},
	"polska":       {"Polska"},
	"polskie":      {"Polska"},
	"polskiej":     {"Polska"},
	"indyjska":     {"Indyjska"},
	"indyjskie":    {"Indyjska"},
	"indyjskiej":   {"Indyjska"},
	"wege":         {"Wegetariańska", "Wegańska"},
	"wegetarianskie": {"Wegetariańska"},
	"weganskie":      {"Wegańska"},
	"wegetarianskiej": {"Wegetariańska"},
	"weganskiej":      {"Wegańska"},
}

// KnownCuisine reports whether the spoken term maps to catalog cuisine
// labels. Unknown terms are treated as dish names by the NLU.
func KnownCuisine(term string) bool {
	_, ok := cuisineAliases[Normalize(term)]
	return ok
}

// ExpandCuisine turns a spoken cuisine word into catalog labels. Unknown
// terms come back as a single title-cased label so the query still runs.
func ExpandCuisine(term string) []string {
	if term == "" {
		return nil
	}
	if labels, ok := cuisineAliases[Normalize(term)]; ok {
		out := make([]string, len(labels))
		copy(out, labels)
		return out
	}
	return []string{TitleCity(term)}
}

// cuisineStopwords are tokens that never name a cuisine even though they
// follow search verbs ("szukam czegoś dobrego").
var cuisineStopwords = map[string]struct{}{
	"czegos": {}, "cos": {}, "costam": {},
	"dobrego": {}, "fajnego": {}, "taniego": {},
	"jedzenia": {}, "zjedzenia": {},
	"kuchni": {}, "kuchnia": {}, "kuchnie": {},
	"restauracji": {}, "restauracje": {}, "knajpy": {}, "baru": {},
	"miejsca": {}, "miejsc": {},
	"blisko": {}, "pobliżu": {}, "poblizu": {}, "okolicy": {},
	"na": {}, "do": {}, "w": {}, "z": {},
}

// IsCuisineStopword reports whether a folded token is excluded from
// cuisine extraction.
func IsCuisineStopword(token string) bool {
	_, ok := cuisineStopwords[Normalize(token)]
	return ok
}
