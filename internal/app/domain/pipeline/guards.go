package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/admin"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/nlu"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/surfaces"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

var (
	showVerbRe   = regexp.MustCompile(`\b(pokaz|zobacz|wyswietl)\w*`)
	changeVerbRe = regexp.MustCompile(`\b(zmien|zmiana|inna|inny|inne|wybieram|biore|wole)\b`)
)

// blockedSource reports whether a source marks an already rewritten turn;
// guards never run twice.
func blockedSource(source string) bool {
	return strings.HasSuffix(source, models.SourceBlockedSuffix) ||
		source == models.SourceICMFallback
}

// applyGuards runs the intent-rewrite guards in precedence order; at most
// one fires per turn. A non-nil DomainResult answers the turn directly,
// otherwise the returned intent and source replace the inputs. SIMPLE
// fallback mode disables the whole chain.
func applyGuards(intent, source, text string, ents *models.Entities, sess *models.Session, cfg admin.Config) (*models.DomainResult, string, string) {
	if cfg.FallbackMode == admin.FallbackSimple {
		return nil, intent, source
	}

	// Discovery inside a menu conversation is an order in disguise:
	// "szukam kebaba" right after the menu means that kebab, here. The
	// extractor files generic food words under Cuisine, so that counts
	// as the dish term too.
	if intent == models.IntentFindNearby && menuScoped(sess) {
		term := ents.Dish
		if term == "" {
			term = ents.Cuisine
		}
		if term != "" || len(ents.Items) > 0 {
			if len(ents.Items) == 0 {
				qty := ents.Quantity
				if qty < 1 {
					qty = 1
				}
				ents.Items = []models.RequestedItem{{Name: term, Quantity: qty}}
			}
			return nil, models.IntentCreateOrder, models.SourceMenuScopedOrder
		}
	}

	// A weak hit that merely re-says the selected restaurant's name asks
	// for confirmation instead of re-searching.
	weak := intent == models.IntentUnknown ||
		source == models.SourceLLMHybrid || source == models.SourceFallback
	if weak && sess.CurrentRestaurant != nil && ents.Restaurant == nil &&
		matchesCurrentName(text, sess.CurrentRestaurant.Name) {
		return &models.DomainResult{
			Intent: models.IntentConfirmRest,
			Reply:  fmt.Sprintf("Chodzi o %s? Powiedz 'tak' albo 'nie'.", sess.CurrentRestaurant.Name),
			ContextUpdates: []models.Mutation{
				models.SetExpectedContext(models.ContextConfirmRest),
			},
			Meta: models.ResultMeta{Source: models.SourceFuzzyConfirm},
		}, intent, source
	}

	// A plain "tak" while the confirm question is open counts as the
	// confirmation, whatever the NLU heard.
	if intent != models.IntentConfirmOrder &&
		sess.ExpectedContext == models.ContextConfirmOrder &&
		sess.PendingOrder != nil && len(sess.PendingOrder.Items) > 0 &&
		nlu.IsPositive(text) {
		return nil, models.IntentConfirmOrder, models.SourceConfirmGuard
	}

	// "pokaż ..." with a restaurant already selected wants the menu, not
	// a new selection; an explicit switch verb or a numbered pick keeps
	// its meaning.
	if intent == models.IntentSelectRestaurant && sess.CurrentRestaurant != nil {
		norm := lexicon.Normalize(text)
		if showVerbRe.MatchString(norm) && !changeVerbRe.MatchString(norm) &&
			lexicon.ParsePosition(norm) == 0 {
			return nil, models.IntentMenuRequest, models.SourceAutoMenuUpgrade
		}
	}

	// An order with nothing to order. With a restaurant in reach the
	// menu is the best next step; otherwise ask what to order.
	if intent == models.IntentCreateOrder && !nlu.HasOrderVerb(text) &&
		ents.Dish == "" && len(ents.Items) == 0 && sess.PendingDish == "" {
		if sess.CurrentRestaurant != nil || sess.LastRestaurant != nil || ents.Restaurant != nil {
			return nil, models.IntentMenuRequest, models.SourceEmptyOrderGuard
		}
		return &models.DomainResult{
			Intent: models.IntentCreateOrder,
			Reply:  "Co chcesz zamówić? Mogę też pokazać menu.",
			ContextUpdates: []models.Mutation{
				models.SetExpectedContext(models.ContextMenuOrOrder),
			},
			Meta: models.ResultMeta{Source: models.SourceEmptyOrderGuard},
		}, intent, source
	}

	return nil, intent, source
}

// menuScoped reports whether the conversation sits inside one
// restaurant's menu, where a discovery phrase almost always names a dish
// to order there.
func menuScoped(sess *models.Session) bool {
	if sess.CurrentRestaurant == nil {
		return false
	}
	if sess.LastIntent == models.IntentMenuRequest {
		return true
	}
	switch sess.ExpectedContext {
	case models.ContextRestaurantMenu, models.ContextContinueOrder, models.ContextMenuOrOrder:
		return true
	}
	return false
}

// matchesCurrentName reports whether the utterance is essentially the
// restaurant's name again. Polish inflection is tolerated by comparing
// prefixes of the longer tokens; normalized text is ASCII so byte slices
// are safe.
func matchesCurrentName(text, name string) bool {
	utterToks := longTokens(text)
	nameToks := longTokens(name)
	if len(utterToks) == 0 || len(nameToks) == 0 {
		return false
	}
	for _, ut := range utterToks {
		matched := false
		for _, nt := range nameToks {
			if similarToken(ut, nt) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func longTokens(text string) []string {
	var out []string
	for _, tok := range lexicon.Tokenize(lexicon.Normalize(text)) {
		if len(tok) >= 4 {
			out = append(out, tok)
		}
	}
	return out
}

func similarToken(a, b string) bool {
	if a == b {
		return true
	}
	return len(a) >= 4 && len(b) >= 4 && a[:4] == b[:4]
}

// pendingDishFrom phrases what the user wants to order, falling back to
// what an earlier turn remembered.
func pendingDishFrom(ents *models.Entities, sess *models.Session) string {
	if ents.Dish != "" {
		return ents.Dish
	}
	if len(ents.Items) > 0 {
		parts := make([]string, 0, len(ents.Items))
		for _, it := range ents.Items {
			if it.Quantity > 1 {
				parts = append(parts, fmt.Sprintf("%d %s", it.Quantity, it.Name))
			} else {
				parts = append(parts, it.Name)
			}
		}
		return strings.Join(parts, " i ")
	}
	return sess.PendingDish
}

// softBridge keeps an intent alive when only the restaurant is missing:
// with a list still on screen the user picks one instead of being
// bounced back to discovery.
func softBridge(intent string, ents *models.Entities, sess *models.Session) *models.DomainResult {
	list := sess.LastRestaurantsList
	if len(list) == 0 {
		return nil
	}
	switch intent {
	case models.IntentMenuRequest:
		return &models.DomainResult{
			Intent:      models.IntentMenuRequest,
			SurfaceKey:  surfaces.KeyAskRestaurantForMenu,
			Facts:       &models.SurfaceFacts{Restaurants: list},
			Restaurants: list,
			ContextUpdates: []models.Mutation{
				models.SetExpectedContext(models.ContextSelectRestaurant),
				models.SetDialogFocus(models.FocusChoosingForMenu),
			},
		}
	case models.IntentCreateOrder:
		dish := pendingDishFrom(ents, sess)
		return &models.DomainResult{
			Intent:      models.IntentCreateOrder,
			SurfaceKey:  surfaces.KeyAskRestaurantForOrder,
			Facts:       &models.SurfaceFacts{Dish: dish, Restaurants: list},
			Restaurants: list,
			ContextUpdates: []models.Mutation{
				models.SetPendingDish(dish),
				models.SetExpectedContext(models.ContextSelectRestaurant),
				models.SetDialogFocus(models.FocusChoosingForOrder),
			},
		}
	}
	return nil
}

// chooseResult presents disambiguation options the NLU carried in: the
// list replaces whatever was on screen and the next turn picks from it.
func chooseResult(ents *models.Entities, sess *models.Session, source string) *models.DomainResult {
	options := make([]models.RestaurantListItem, len(ents.Options))
	for i, opt := range ents.Options {
		if opt.Index == 0 {
			opt.Index = i + 1
		}
		options[i] = opt
	}
	dish := pendingDishFrom(ents, sess)
	return &models.DomainResult{
		Intent:      models.IntentChooseRestaurant,
		SurfaceKey:  surfaces.KeyAskRestaurantForOrder,
		Facts:       &models.SurfaceFacts{Dish: dish, Restaurants: options},
		Restaurants: options,
		ContextUpdates: []models.Mutation{
			models.SetRestaurantsList(options),
			models.SetPendingDish(dish),
			models.SetExpectedContext(models.ContextSelectRestaurant),
			models.SetDialogFocus(models.FocusChoosingForOrder),
		},
		Meta: models.ResultMeta{Source: source},
	}
}
