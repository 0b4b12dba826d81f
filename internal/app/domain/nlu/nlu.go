// Package nlu turns one utterance into an intent plus extracted entities.
// Detection is tiered and deterministic: context short-circuits first,
// then explicit order verbs, then intent regexes, then a catalog name
// match. A model tier closes the gap only in expert mode, with its
// confidence capped so it can never outrank the deterministic tiers.
package nlu

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/food"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/llm"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// Result is one detection outcome. Source names the tier that produced
// it; downstream guards key off it.
type Result struct {
	Intent     string
	Source     string
	Confidence float64
	Entities   models.Entities
}

// IntentResolver is the optional model tier. *llm.Client satisfies it.
type IntentResolver interface {
	ResolveIntent(ctx context.Context, text string, allowed []string) (*llm.Classification, error)
}

// Router runs the detection tiers in order.
type Router struct {
	index    *catalog.Index
	resolver IntentResolver
	expert   bool
	cities   map[string]struct{}
	logger   *zap.Logger
}

// NewRouter builds a router over the boot-time catalog index. resolver may
// be nil; the model tier is additionally gated by expertMode.
func NewRouter(index *catalog.Index, resolver IntentResolver, expertMode bool, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	cities := make(map[string]struct{})
	for _, rest := range index.All() {
		if stem := lexicon.CityStem(rest.City); stem != "" {
			cities[stem] = struct{}{}
		}
	}
	return &Router{index: index, resolver: resolver, expert: expertMode, cities: cities, logger: logger}
}

// All patterns run on normalized (folded, lowercased) text.
var (
	negativeRe = regexp.MustCompile(`^nie\b`)
	positiveRe = regexp.MustCompile(`\b(tak|potwierdzam|zamawiam|ok|dobra|jasne|dawaj|pewnie)\b`)

	addToCartRe = regexp.MustCompile(`\b(dodaj\s+)?do\s+koszyka\b`)
	orderVerbRe = regexp.MustCompile(`\b(wybieram|poprosze|wezme|dodaj|zamawiam|zamowie|chcialbym|chcialabym|chce)\b`)
	chceIdiomRe = regexp.MustCompile(`\bchc\w*\s+(cos\b|zjesc\b|gdzie\b)`)

	discoveryRe = regexp.MustCompile(`gdzie( \S+){0,3} (zjesc|zjem|zjemy)|zjadlbym|zjadlabym|cos do jedzenia|glodn[ya]\b|\bszukam\b`)
	venueRe     = regexp.MustCompile(`\b(pizzeri\w*|restauracj\w*|knajp\w*|bary|barow|barach|kebaby|kebabow)\b`)
	menuRe      = regexp.MustCompile(`^(pokaz\s+|zobacz\s+)?(menu|karta|karte|oferta|oferte|lista dan|liste dan)\s*$`)
	newOrderRe  = regexp.MustCompile(`nowe zamowienie|od nowa|\bstart\b|resetuj`)
	cancelRe    = regexp.MustCompile(`\banuluj\w*|\brezygnuj\w*`)
	moreRe      = regexp.MustCompile(`pokaz wiecej|wiecej opcji|inne opcje|jeszcze jakies`)
	recommendRe = regexp.MustCompile(`co polecasz|co polecisz|\bpolecisz\b|\bpolecasz\b|co warto`)
	helpRe      = regexp.MustCompile(`^pomoc\b|co potrafisz|co umiesz`)
)

// IsPositive reports whether text reads as agreement. A leading "nie"
// wins over any positive token later in the sentence.
func IsPositive(text string) bool {
	norm := lexicon.Normalize(text)
	if negativeRe.MatchString(norm) {
		return false
	}
	return positiveRe.MatchString(norm)
}

// HasOrderVerb reports whether text carries an explicit ordering verb.
func HasOrderVerb(text string) bool {
	return orderVerbRe.MatchString(lexicon.Normalize(text))
}

// Detect resolves text against the session. allowed is the intent set the
// model tier may answer with; deterministic tiers ignore it.
func (r *Router) Detect(ctx context.Context, text string, sess *models.Session, allowed []string) *Result {
	norm := lexicon.Normalize(text)

	if res := r.contextTier(text, norm, sess); res != nil {
		return res
	}
	if res := r.lexicalTier(text, norm); res != nil {
		return res
	}
	if res := r.regexTier(text, norm); res != nil {
		return res
	}
	if res := r.catalogTier(text, norm); res != nil {
		return res
	}
	if res := r.llmTier(ctx, text, allowed); res != nil {
		return res
	}
	return &Result{
		Intent:   models.IntentUnknown,
		Source:   models.SourceFallback,
		Entities: models.Entities{RawText: text},
	}
}

// contextTier honors the one-turn expectation armed by the previous reply.
func (r *Router) contextTier(text, norm string, sess *models.Session) *Result {
	if sess == nil {
		return nil
	}

	switch sess.ExpectedContext {
	case models.ContextConfirmOrder:
		if negativeRe.MatchString(norm) {
			return &Result{Intent: models.IntentCancelOrder, Source: models.SourceRuleGuard, Confidence: 1, Entities: models.Entities{RawText: text}}
		}
		if positiveRe.MatchString(norm) {
			return &Result{Intent: models.IntentConfirmOrder, Source: models.SourceRuleGuard, Confidence: 1, Entities: models.Entities{RawText: text}}
		}

	case models.ContextSelectRestaurant, models.ContextShowMoreOptions, models.ContextChooseRestaurant:
		return &Result{Intent: models.IntentSelectRestaurant, Source: models.SourceContextLock, Confidence: 1, Entities: models.Entities{RawText: text}}

	case models.ContextConfirmMenu:
		if positiveRe.MatchString(norm) {
			return &Result{Intent: models.IntentMenuRequest, Source: models.SourceRuleGuard, Confidence: 1, Entities: models.Entities{RawText: text}}
		}

	case models.ContextConfirmRest:
		if negativeRe.MatchString(norm) {
			return &Result{Intent: models.IntentFindNearby, Source: models.SourceRuleGuard, Confidence: 1, Entities: models.Entities{RawText: text}}
		}
		if positiveRe.MatchString(norm) {
			return &Result{Intent: models.IntentMenuRequest, Source: models.SourceRuleGuard, Confidence: 1, Entities: models.Entities{RawText: text}}
		}
	}

	if sess.Awaiting == models.AwaitingLocation || sess.ExpectedContext == models.ContextAskLocation {
		return r.locationAnswer(text, norm)
	}

	// A bare position while a list is on screen is a selection even when
	// no context survived: "dwa", "ta druga", "numer 2".
	if len(sess.LastRestaurantsList) > 0 && bareSelection(norm) {
		return &Result{Intent: models.IntentSelectRestaurant, Source: models.SourceContextLock, Confidence: 0.9, Entities: models.Entities{RawText: text}}
	}
	return nil
}

// locationAnswer resolves the reply to "powiedz mi miasto". A pivot into a
// new order or a menu request falls through to the later tiers.
func (r *Router) locationAnswer(text, norm string) *Result {
	if orderVerbRe.MatchString(norm) || menuRe.MatchString(norm) {
		return nil
	}

	ents := r.discoveryEntities(text, norm)
	if ents.Location == "" {
		if city := bareCity(norm); city != "" {
			// A short answer to "podaj miasto" is just the city.
			ents.Location, ents.Cuisine, ents.Dish = city, "", ""
		}
	}
	return &Result{Intent: models.IntentFindNearby, Source: models.SourceRuleGuard, Confidence: 1, Entities: ents}
}

// lexicalTier fires on explicit order verbs. "chcę" alone is too weak when
// followed by discovery idioms ("chcę coś zjeść").
func (r *Router) lexicalTier(text, norm string) *Result {
	if addToCartRe.MatchString(norm) {
		ents := models.Entities{RawText: text}
		parsed := food.ParseOrderText(addToCartRe.ReplaceAllString(norm, " "))
		if len(parsed.Items) > 0 {
			ents.Items = parsed.Items
			ents.Dish = parsed.Items[0].Name
		}
		return &Result{Intent: models.IntentConfirmAddToCart, Source: models.SourceLexicalOverride, Confidence: 1, Entities: ents}
	}

	verb := orderVerbRe.FindString(norm)
	if verb == "" {
		return nil
	}
	if strings.HasPrefix(verb, "chc") && chceIdiomRe.MatchString(norm) {
		return nil
	}

	parsed := food.ParseOrderText(text)
	ents := models.Entities{RawText: text}

	// A parsed "item" that is really a restaurant name becomes the
	// restaurant entity; whatever tokens remain are the dish. "Poproszę
	// menu" is a menu request, not a dish called menu.
	var rest *models.Restaurant
	var items []models.RequestedItem
	menuWanted := false
	for _, it := range parsed.Items {
		if menuWordsOnly(it.Name) {
			menuWanted = true
			continue
		}
		hit := r.index.FindByText(it.Name)
		if hit == nil {
			items = append(items, it)
			continue
		}
		rest = hit
		leftover := stripRestaurantTokens(it.Name, hit)
		switch {
		case leftover == "":
		case menuWordsOnly(leftover):
			menuWanted = true
		default:
			it.Name = leftover
			items = append(items, it)
		}
	}

	if rest != nil {
		ents.Restaurant = rest.Ref()
	}
	if len(items) == 0 {
		if menuWanted {
			return &Result{Intent: models.IntentMenuRequest, Source: models.SourceLexicalOverride, Confidence: 1, Entities: ents}
		}
		if rest != nil {
			return &Result{Intent: models.IntentSelectRestaurant, Source: models.SourceLexicalOverride, Confidence: 1, Entities: ents}
		}
	}
	if len(items) > 0 {
		ents.Items = items
		ents.Dish = items[0].Name
		ents.Quantity = items[0].Quantity
	}
	return &Result{Intent: models.IntentCreateOrder, Source: models.SourceLexicalOverride, Confidence: 1, Entities: ents}
}

func (r *Router) regexTier(text, norm string) *Result {
	switch {
	case newOrderRe.MatchString(norm):
		return &Result{Intent: models.IntentNewOrder, Source: models.SourceRegexV2, Confidence: 0.9, Entities: models.Entities{RawText: text}}

	case helpRe.MatchString(norm):
		return &Result{Intent: models.IntentHelp, Source: models.SourceRegexV2, Confidence: 0.9, Entities: models.Entities{RawText: text}}

	case cancelRe.MatchString(norm):
		return &Result{Intent: models.IntentCancelOrder, Source: models.SourceRegexV2, Confidence: 0.9, Entities: models.Entities{RawText: text}}

	case moreRe.MatchString(norm):
		return &Result{Intent: models.IntentShowMoreOptions, Source: models.SourceRegexV2, Confidence: 0.9, Entities: models.Entities{RawText: text}}

	case menuRe.MatchString(norm):
		return &Result{Intent: models.IntentMenuRequest, Source: models.SourceRegexV2, Confidence: 0.9, Entities: models.Entities{RawText: text}}

	case recommendRe.MatchString(norm):
		return &Result{Intent: models.IntentRecommend, Source: models.SourceRegexV2, Confidence: 0.9, Entities: r.discoveryEntities(text, norm)}

	case discoveryRe.MatchString(norm) || venueRe.MatchString(norm):
		// "Pizzeria Roma" trips the venue nouns but is really a name;
		// leave it for the catalog tier.
		if rest := r.index.FindByText(norm); rest != nil && stripRestaurantTokens(norm, rest) == "" {
			return nil
		}
		return &Result{Intent: models.IntentFindNearby, Source: models.SourceRegexV2, Confidence: 0.9, Entities: r.discoveryEntities(text, norm)}
	}
	return nil
}

// catalogTier matches restaurant names and aliases. A bare name selects;
// a name plus dish tokens orders from that restaurant.
func (r *Router) catalogTier(text, norm string) *Result {
	rest := r.index.FindByText(norm)
	if rest == nil {
		return nil
	}

	ents := models.Entities{Restaurant: rest.Ref(), RawText: text}
	if leftover := stripRestaurantTokens(norm, rest); leftover != "" {
		if menuWordsOnly(leftover) {
			return &Result{Intent: models.IntentMenuRequest, Source: models.SourceCatalog, Confidence: 0.8, Entities: ents}
		}
		parsed := food.ParseOrderText(leftover)
		if len(parsed.Items) > 0 {
			ents.Items = parsed.Items
			ents.Dish = parsed.Items[0].Name
			return &Result{Intent: models.IntentCreateOrder, Source: models.SourceCatalog, Confidence: 0.8, Entities: ents}
		}
	}
	return &Result{Intent: models.IntentSelectRestaurant, Source: models.SourceCatalog, Confidence: 0.8, Entities: ents}
}

func (r *Router) llmTier(ctx context.Context, text string, allowed []string) *Result {
	if !r.expert || r.resolver == nil {
		return nil
	}

	cls, err := r.resolver.ResolveIntent(ctx, text, allowed)
	if err != nil {
		r.logger.Warn("Model intent resolution failed", zap.Error(err))
		return nil
	}
	if cls == nil || cls.Intent == "" || cls.Intent == models.IntentUnknown {
		return nil
	}

	conf := cls.Confidence
	if conf > llm.MaxFallbackConfidence {
		conf = llm.MaxFallbackConfidence
	}
	return &Result{
		Intent:     cls.Intent,
		Source:     models.SourceLLMHybrid,
		Confidence: conf,
		Entities:   models.Entities{RawText: text, Dish: cls.Dish, Location: cls.City},
	}
}

func (r *Router) discoveryEntities(text, norm string) models.Entities {
	loc := extractLocation(text, norm, r.knownCity)
	cuisine, dish := extractCuisineDish(norm, loc)
	return models.Entities{Location: loc, Cuisine: cuisine, Dish: dish, RawText: text}
}

func (r *Router) knownCity(token string) bool {
	_, ok := r.cities[lexicon.CityStem(token)]
	return ok
}
