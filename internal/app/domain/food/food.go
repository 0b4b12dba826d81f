// Package food implements the ordering domain: restaurant discovery,
// menu preview, selection, dish resolution and the confirm flow. Handlers
// are pure; session edits travel back as mutations.
package food

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/orders"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/sessions"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/surfaces"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
	"github.com/FACorreiaa/go-voice-orders/internal/pkg/cache"
)

// List caps per discovery flavor.
const (
	genericListLimit = 3
	cuisineListLimit = 10
	menuListLimit    = 6
	nearbyRadiusKm   = 5.0
)

// Categories never surfaced in the spoken menu shortlist.
var bannedMenuCategories = map[string]struct{}{
	"napoje": {}, "sosy": {}, "dodatki": {}, "extra": {},
}

// Name tokens that mark add-ons rather than dishes ("sos czosnkowy",
// "napoje zimne", "dodatki do pizzy"), in their common inflections.
var bannedMenuNameTokens = map[string]struct{}{
	"sos": {}, "sosy": {}, "sosem": {}, "sosow": {},
	"napoj": {}, "napoje": {}, "napojow": {},
	"dodatek": {}, "dodatki": {}, "dodatkow": {},
}

// OrderCommitter is the slice of the order service the handlers call.
type OrderCommitter interface {
	ValidateItemBeforeAdd(ctx context.Context, item models.PendingItem) (models.PendingItem, []string, error)
	ValidateCartBeforeCheckout(ctx context.Context, items []models.CartItem) (*models.Restaurant, error)
	PersistOrder(ctx context.Context, sessionID, userID string, pending *models.PendingOrder) (*orders.PersistResult, error)
}

// Request is one turn's input as the dispatcher hands it to a handler.
// Session is read-only here; edits go through ContextUpdates.
type Request struct {
	Session  *models.Session
	Text     string
	Entities models.Entities
	Lat, Lng *float64
	UserID   string
}

type Service struct {
	repo     catalog.Repository
	index    *catalog.Index
	orders   OrderCommitter
	caches   *cache.CacheManager
	resolver *Resolver
	logger   *zap.Logger
}

func NewService(repo catalog.Repository, index *catalog.Index, committer OrderCommitter, caches *cache.CacheManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caches == nil {
		caches = cache.NewCacheManager(logger)
	}
	return &Service{
		repo:     repo,
		index:    index,
		orders:   committer,
		caches:   caches,
		resolver: NewResolver(repo, index),
		logger:   logger,
	}
}

// FindRestaurant handles discovery: by coordinates when present, by city
// plus optional cuisine otherwise. With no location at all it asks for
// one, remembering the dish so the answer can resume the order.
func (s *Service) FindRestaurant(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session
	ents := req.Entities

	city := ents.Location
	if city == "" && req.Lat == nil {
		city = sess.LastLocation
	}
	dish := ents.Dish

	// "Szukam pizzy" followed by "Bytom" keeps the cuisine across the
	// ask-location round trip.
	cuisine := ents.Cuisine
	if cuisine == "" && sess.Awaiting == models.AwaitingLocation {
		cuisine = sess.LastCuisineType
	}

	var (
		results []models.Restaurant
		err     error
	)
	switch {
	case req.Lat != nil && req.Lng != nil:
		results, err = s.searchNearby(ctx, *req.Lat, *req.Lng)
	case city != "":
		results, err = s.searchCity(ctx, city, cuisine)
	default:
		// An explicit order attempt carries parsed items. Try the dish
		// against the whole catalog first; only ask for a city when the
		// dish resolves nowhere.
		if len(ents.Items) > 0 {
			if res, handled, derr := s.resolveDishAnywhere(ctx, req); handled {
				return res, derr
			}
		}
		res := &models.DomainResult{
			Intent:        models.IntentFindNearby,
			NeedsLocation: true,
			Facts:         &models.SurfaceFacts{Dish: dish},
			ContextUpdates: []models.Mutation{
				models.SetAwaiting(models.AwaitingLocation),
				models.SetExpectedContext(models.ContextAskLocation),
			},
		}
		if dish != "" {
			res.ContextUpdates = append(res.ContextUpdates, models.SetPendingDish(dish))
		}
		if ents.Cuisine != "" {
			res.ContextUpdates = append(res.ContextUpdates, models.SetLastCuisine(ents.Cuisine))
		}
		return res, nil
	}
	if err != nil {
		s.logger.Warn("Restaurant search failed", zap.String("city", city), zap.Error(err))
		return &models.DomainResult{
			Intent: models.IntentFindNearby,
			Reply:  "Przepraszam, nie mogę teraz przeszukać restauracji. Spróbuj za chwilę.",
		}, nil
	}

	if len(results) == 0 {
		if city != "" {
			return s.suggestOtherCities(ctx, city, dish)
		}
		return &models.DomainResult{
			Intent: models.IntentFindNearby,
			Reply:  "Nie znalazłam żadnych restauracji w pobliżu. Podaj miasto, np. Bytom.",
			ContextUpdates: []models.Mutation{
				models.SetAwaiting(models.AwaitingLocation),
				models.SetExpectedContext(models.ContextAskLocation),
			},
		}, nil
	}

	limit := genericListLimit
	if cuisine != "" {
		limit = cuisineListLimit
	}

	full := listItems(results)
	shown := full
	if len(shown) > limit {
		shown = shown[:limit]
	}

	muts := []models.Mutation{
		models.SetRestaurantsList(full),
		models.SetListOffset(len(shown)),
		models.SetAwaiting(""),
	}
	if city != "" {
		muts = append(muts, models.SetLastLocation(city))
	}
	if cuisine != "" {
		muts = append(muts, models.SetLastCuisine(cuisine))
	}
	if dish != "" {
		muts = append(muts, models.SetPendingDish(dish))
	}

	if len(results) == 1 {
		only := results[0]
		muts = append(muts,
			models.SetCurrentRestaurant(only.Ref()),
			models.SetExpectedContext(models.ContextConfirmMenu),
		)
		return &models.DomainResult{
			Intent:         models.IntentFindNearby,
			Reply:          fmt.Sprintf("W %s mam tylko %s. Pokazać menu?", cityLabel(city), only.Name),
			Restaurants:    shown,
			ContextUpdates: muts,
		}, nil
	}

	muts = append(muts, models.SetExpectedContext(models.ContextSelectRestaurant))
	return &models.DomainResult{
		Intent:           models.IntentFindNearby,
		Restaurants:      shown,
		ExpectsSelection: true,
		SurfaceKey:       surfaces.KeyChooseRestaurant,
		Facts: &models.SurfaceFacts{
			City:        cityLabel(city),
			Restaurants: shown,
			Count:       len(results),
		},
		ContextUpdates: muts,
	}, nil
}

// resolveDishAnywhere handles "Zamawiam Pizza Margherita" with no location
// and no restaurant context. A dish served in several places turns into a
// restaurant choice, a unique match goes straight into the order flow, and
// an unresolvable name falls back to the location prompt.
func (s *Service) resolveDishAnywhere(ctx context.Context, req *Request) (*models.DomainResult, bool, error) {
	dish := req.Entities.Items[0].Name

	resolution, err := s.resolver.ResolveDish(ctx, dish, "", "")
	if err != nil {
		s.logger.Warn("Dish lookup failed", zap.String("dish", dish), zap.Error(err))
		return nil, false, nil
	}

	switch resolution.Outcome {
	case models.OutcomeDisambigRequired:
		return s.disambiguationResult(dish, resolution), true, nil
	case models.OutcomeAddItem:
		res, oerr := s.Order(ctx, req)
		return res, true, oerr
	}
	return nil, false, nil
}

func (s *Service) searchNearby(ctx context.Context, lat, lng float64) ([]models.Restaurant, error) {
	key := cache.NewCacheKeyBuilder(s.logger).AddTile(lat, lng).BuildOrDefault()
	if hit, ok := s.caches.Nearby.Get(key); ok {
		return hit, nil
	}

	results, err := s.repo.SearchNearby(ctx, lat, lng, nearbyRadiusKm)
	if err != nil {
		return nil, err
	}
	for i := range results {
		d := distanceKm(lat, lng, results[i].Lat, results[i].Lng) * 1000
		results[i].Distance = &d
	}
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].Distance < *results[j].Distance
	})

	s.caches.Nearby.Set(key, results)
	return results, nil
}

func (s *Service) searchCity(ctx context.Context, city, cuisine string) ([]models.Restaurant, error) {
	key := cache.NewCacheKeyBuilder(s.logger).AddCity(city).AddCuisine(cuisine).BuildOrDefault()
	if hit, ok := s.caches.Search.Get(key); ok {
		return hit, nil
	}

	// The stem makes "w Bytomiu" hit the row stored as "Bytom".
	results, err := s.repo.SearchRestaurants(ctx, lexicon.CityStem(city), lexicon.ExpandCuisine(cuisine))
	if err != nil {
		return nil, err
	}
	s.caches.Search.Set(key, results)
	return results, nil
}

// suggestOtherCities answers an empty city search with the cities the
// catalog does cover, instead of a dead end.
func (s *Service) suggestOtherCities(ctx context.Context, city, dish string) (*models.DomainResult, error) {
	all, err := s.repo.ListRestaurants(ctx)
	if err != nil || len(all) == 0 {
		return &models.DomainResult{
			Intent: models.IntentFindNearby,
			Reply:  fmt.Sprintf("Nie znalazłam nic w %s. Spróbuj inne miasto.", lexicon.TitleCity(city)),
		}, nil
	}

	seen := make(map[string]struct{})
	var cities []string
	for _, r := range all {
		c := lexicon.TitleCity(r.City)
		if _, dup := seen[c]; dup || c == "" {
			continue
		}
		seen[c] = struct{}{}
		cities = append(cities, c)
	}
	sort.Strings(cities)

	muts := []models.Mutation{
		models.SetAwaiting(models.AwaitingLocation),
		models.SetExpectedContext(models.ContextAskLocation),
	}
	if dish != "" {
		muts = append(muts, models.SetPendingDish(dish))
	}
	return &models.DomainResult{
		Intent: models.IntentFindNearby,
		Reply: fmt.Sprintf("Nie znalazłam nic w %s. Mam za to miejsca w: %s. Które miasto wybierasz?",
			lexicon.TitleCity(city), strings.Join(cities, ", ")),
		ContextUpdates: muts,
	}, nil
}

// Menu previews the current restaurant's dishes. A repeated generic
// request reuses the shortlist already shown, so "pokaż menu" twice does
// not loop through the repository.
func (s *Service) Menu(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session
	rest := sess.CurrentRestaurant
	// "Menu Tasty King" names the target outright.
	if named := req.Entities.Restaurant; named != nil && named.ID != "" {
		rest = named
	}
	if rest == nil {
		rest = sess.LastRestaurant
	}
	if rest == nil {
		return &models.DomainResult{
			Intent: models.IntentMenuRequest,
			Reply:  "Najpierw wybierz restaurację, np. 'szukam pizzy w Bytomiu'.",
		}, nil
	}

	generic := req.Entities.Dish == "" && req.Entities.Cuisine == ""
	if generic && sess.LastMenuRestaurant == rest.ID && len(sess.LastMenu) > 0 {
		return s.adoptRestaurant(s.menuResult(rest, sess.LastMenu), sess, rest), nil
	}

	items, err := s.loadMenu(ctx, rest.ID)
	if err != nil {
		s.logger.Warn("Menu fetch failed", zap.String("restaurant_id", rest.ID), zap.Error(err))
		return &models.DomainResult{
			Intent: models.IntentMenuRequest,
			Reply:  fmt.Sprintf("Nie mogę teraz pobrać menu %s. Spróbuj za chwilę.", rest.Name),
		}, nil
	}
	if len(items) == 0 {
		return &models.DomainResult{
			Intent: models.IntentMenuRequest,
			Reply:  fmt.Sprintf("Nie mam menu dla %s.", rest.Name),
		}, nil
	}

	shortlist := menuShortlist(items)
	return s.adoptRestaurant(s.menuResult(rest, shortlist), sess, rest), nil
}

// adoptRestaurant makes the menu's restaurant current when it was reached
// through an entity or the last-restaurant fallback.
func (s *Service) adoptRestaurant(res *models.DomainResult, sess *models.Session, rest *models.RestaurantRef) *models.DomainResult {
	if sess.CurrentRestaurant == nil || sess.CurrentRestaurant.ID != rest.ID {
		res.ContextUpdates = append(res.ContextUpdates,
			models.SetCurrentRestaurant(rest),
			models.SetLockedRestaurant(rest.ID),
		)
	}
	return res
}

func (s *Service) loadMenu(ctx context.Context, restaurantID string) ([]models.MenuItem, error) {
	if hit, ok := s.caches.Menus.Get(restaurantID); ok {
		return hit, nil
	}
	items, err := s.repo.GetMenu(ctx, restaurantID, true)
	if err != nil {
		return nil, err
	}
	s.caches.Menus.Set(restaurantID, items)
	return items, nil
}

// WarmMenus prefetches every restaurant's menu into the cache with bounded
// concurrency. A failed fetch is logged and skipped; the first spoken
// request for that menu will retry against the database.
func (s *Service) WarmMenus(ctx context.Context, restaurants []models.Restaurant, maxConcurrent int) int {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrent)

	var warmed atomic.Int64
	for _, rest := range restaurants {
		id := rest.ID
		eg.Go(func() error {
			if _, err := s.loadMenu(egCtx, id); err != nil {
				s.logger.Warn("Menu warmup failed", zap.String("restaurant_id", id), zap.Error(err))
				return nil
			}
			warmed.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	s.logger.Info("Menu cache warmed",
		zap.Int64("restaurants", warmed.Load()),
		zap.Int("requested", len(restaurants)))
	return int(warmed.Load())
}

func (s *Service) menuResult(rest *models.RestaurantRef, shortlist []models.MenuItem) *models.DomainResult {
	return &models.DomainResult{
		Intent:     models.IntentMenuRequest,
		MenuItems:  shortlist,
		SurfaceKey: surfaces.KeyMenu,
		Facts:      &models.SurfaceFacts{Restaurant: rest.Name, MenuItems: shortlist},
		ContextUpdates: []models.Mutation{
			models.SetMenu(rest.ID, shortlist),
			models.SetExpectedContext(models.ContextMenuOrOrder),
		},
	}
}

// menuShortlist drops drink and add-on noise and caps the spoken list.
// If filtering would empty a non-empty menu, the unfiltered head wins.
func menuShortlist(items []models.MenuItem) []models.MenuItem {
	var out []models.MenuItem
	for _, it := range items {
		if _, banned := bannedMenuCategories[lexicon.Normalize(it.Category)]; banned {
			continue
		}
		if hasBannedToken(it.Name) {
			continue
		}
		out = append(out, it)
		if len(out) == menuListLimit {
			return out
		}
	}
	if len(out) == 0 {
		if len(items) > menuListLimit {
			return items[:menuListLimit]
		}
		return items
	}
	return out
}

func hasBannedToken(name string) bool {
	for _, tok := range lexicon.Tokenize(name) {
		if _, banned := bannedMenuNameTokens[tok]; banned {
			return true
		}
	}
	return false
}

// SelectRestaurant resolves "dwa" or "Bar Praha" against the displayed
// list. When a dish was remembered across the sub-dialog, the selection
// flows straight into the order handler so the user is not asked twice.
func (s *Service) SelectRestaurant(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session
	list := sess.LastRestaurantsList

	// A restaurant named outright does not need a displayed list.
	var chosen *models.Restaurant
	if req.Entities.Restaurant != nil {
		chosen = s.index.ByID(req.Entities.Restaurant.ID)
	}

	if chosen == nil && len(list) == 0 {
		return &models.DomainResult{
			Intent: models.IntentSelectRestaurant,
			Reply:  "Nie mam listy restauracji do wyboru. Powiedz np. 'szukam pizzy w Bytomiu'.",
		}, nil
	}

	raw := req.Entities.RawText
	if raw == "" {
		raw = req.Text
	}

	if chosen == nil {
		chosen = pickFromList(list, raw)
	}
	if chosen == nil {
		return &models.DomainResult{
			Intent: models.IntentSelectRestaurant,
			Reply: fmt.Sprintf("Nie rozumiem wyboru. Powiedz numer od 1 do %d albo nazwę restauracji.",
				len(list)),
			ContextUpdates: []models.Mutation{
				models.SetExpectedContext(models.ContextSelectRestaurant),
			},
		}, nil
	}

	ref := chosen.Ref()
	muts := []models.Mutation{
		models.SetCurrentRestaurant(ref),
		models.SetLockedRestaurant(chosen.ID),
		models.SetPendingDish(""),
		models.SetAwaiting(""),
	}

	if sess.PendingDish == "" {
		muts = append(muts, models.SetExpectedContext(models.ContextMenuOrOrder))
		return &models.DomainResult{
			Intent:         models.IntentSelectRestaurant,
			Reply:          fmt.Sprintf("OK, %s. Pokazać menu, czy od razu coś zamawiasz?", chosen.Name),
			ContextUpdates: muts,
		}, nil
	}

	// A remembered dish rides along: selection completes the order turn.
	requested := rememberedItems(sess.PendingDish)
	selected := *sess
	selected.CurrentRestaurant = ref
	selected.LockedRestaurantID = chosen.ID
	selected.PendingDish = ""

	orderRes, err := s.Order(ctx, &Request{
		Session:  &selected,
		Text:     sess.PendingDish,
		Entities: models.Entities{Items: requested},
		UserID:   req.UserID,
	})
	if err != nil {
		return nil, err
	}

	orderRes.Intent = models.IntentSelectRestaurant
	orderRes.ContextUpdates = append(muts, orderRes.ContextUpdates...)
	orderRes.Actions = append([]models.Action{{
		Type:    models.ActionCreateOrder,
		Payload: models.CreateOrderPayload{Restaurant: ref, Items: requested},
	}}, orderRes.Actions...)
	return orderRes, nil
}

func pickFromList(list []models.RestaurantListItem, raw string) *models.Restaurant {
	if pos := lexicon.ParsePosition(raw); pos >= 1 && pos <= len(list) {
		r := list[pos-1].Restaurant
		return &r
	}

	norm := lexicon.Normalize(raw)
	if norm == "" {
		return nil
	}
	for i := range list {
		if lexicon.Normalize(list[i].Name) == norm {
			r := list[i].Restaurant
			return &r
		}
	}
	for i := range list {
		name := lexicon.Normalize(list[i].Name)
		if lexicon.FuzzyIncludes(name, norm) || lexicon.FuzzyIncludes(norm, name) {
			r := list[i].Restaurant
			return &r
		}
	}
	return nil
}

func rememberedItems(pendingDish string) []models.RequestedItem {
	parsed := ParseOrderText(pendingDish)
	if len(parsed.Items) > 0 {
		return parsed.Items
	}
	return []models.RequestedItem{{Name: pendingDish, Quantity: 1}}
}

// Order resolves requested dishes, validates them and stages a pending
// order awaiting "tak". Ambiguity and unknown dishes surface instead of
// guessing.
func (s *Service) Order(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session

	parsed := ParseOrderText(req.Text)
	requested := requestedItems(req, parsed)
	if len(requested) == 0 {
		return &models.DomainResult{
			Intent: models.IntentCreateOrder,
			Reply:  "Co chcesz zamówić? Mogę też pokazać menu.",
			ContextUpdates: []models.Mutation{
				models.SetExpectedContext(models.ContextMenuOrOrder),
			},
		}, nil
	}

	contextID := sess.LockedRestaurantID
	if contextID == "" && sess.CurrentRestaurant != nil {
		contextID = sess.CurrentRestaurant.ID
	}

	var (
		resolved []models.PendingItem
		unknown  []string
		notes    []string
		warnings []string
		muts     []models.Mutation
	)
	restID, restName := contextID, currentName(sess)

	// A restaurant named in the utterance outranks the session lock.
	if named := req.Entities.Restaurant; named != nil && named.ID != "" && named.ID != contextID {
		restID, restName = named.ID, named.Name
		muts = append(muts,
			models.SetCurrentRestaurant(named),
			models.SetLockedRestaurant(named.ID),
		)
	}

	for _, want := range requested {
		resolution, err := s.resolver.ResolveDish(ctx, want.Name, parsed.Size, restID)
		if err != nil {
			return nil, err
		}

		switch resolution.Outcome {
		case models.OutcomeItemNotFound:
			unknown = append(unknown, want.Name)
			continue

		case models.OutcomeDisambigRequired:
			return s.disambiguationResult(want.Name, resolution), nil
		}

		item := resolution.Item
		if resolution.Switched {
			if other := s.index.ByID(item.RestaurantID); other != nil {
				notes = append(notes, fmt.Sprintf("Znalazłam %s w %s, przełączam restaurację.", item.Name, other.Name))
				warnings = append(warnings, models.WarnDifferentRestaurant)
				muts = append(muts,
					models.SetCurrentRestaurant(other.Ref()),
					models.SetLockedRestaurant(other.ID),
				)
				restName = other.Name
			}
		} else if restID == "" {
			// First match with no restaurant context adopts the match's
			// restaurant silently.
			if first := s.index.ByID(item.RestaurantID); first != nil {
				muts = append(muts,
					models.SetCurrentRestaurant(first.Ref()),
					models.SetLockedRestaurant(first.ID),
				)
				restName = first.Name
			}
		}
		restID = item.RestaurantID

		line := models.PendingItem{ID: item.ID, Name: item.Name, Price: item.Price, Qty: want.Quantity}
		line, warns, err := s.orders.ValidateItemBeforeAdd(ctx, line)
		if err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) && verr.Code == models.CodeQuantityTooHigh {
				return &models.DomainResult{
					Intent: models.IntentCreateOrder,
					Reply:  fmt.Sprintf("Maksymalnie %d sztuk jednej pozycji. Podaj mniejszą ilość.", orders.MaxItemQty),
				}, nil
			}
			if errors.As(err, &verr) && verr.Code == models.CodeItemNotAvailable {
				unknown = append(unknown, want.Name)
				continue
			}
			return nil, err
		}
		for _, w := range warns {
			if w == models.WarnItemPriceIncreased {
				notes = append(notes, fmt.Sprintf("Uwaga, %s kosztuje teraz %s zł.", line.Name, models.FormatPLN(line.Price)))
			}
			warnings = append(warnings, w)
		}
		resolved = append(resolved, line)
	}

	if len(resolved) == 0 {
		res := &models.DomainResult{
			Intent:       models.IntentCreateOrder,
			UnknownItems: unknown,
			Facts:        &models.SurfaceFacts{Restaurant: restName},
			Meta:         models.ResultMeta{Outcome: models.OutcomeItemNotFound},
		}
		if len(unknown) > 0 {
			res.Facts.UnknownItem = unknown[0]
		}
		return res, nil
	}
	if len(unknown) > 0 {
		notes = append(notes, fmt.Sprintf("Nie znalazłam: %s.", strings.Join(unknown, ", ")))
	}

	if restName == "" {
		if rest := s.index.ByID(restID); rest != nil {
			restName = rest.Name
		}
	}

	pending := mergePendingOrder(sess.PendingOrder, restID, restName, resolved)
	muts = append(muts,
		models.SetPendingOrder(pending),
		models.SetExpectedContext(models.ContextConfirmOrder),
		models.SetPendingDish(""),
	)

	return &models.DomainResult{
		Intent:     models.IntentCreateOrder,
		SurfaceKey: surfaces.KeyConfirmAdd,
		Facts: &models.SurfaceFacts{
			Restaurant: restName,
			Items:      pending.Items,
			Total:      pending.Total,
			Notes:      notes,
		},
		ContextUpdates: muts,
		Meta: models.ResultMeta{
			Outcome:  models.OutcomeAddItem,
			Warnings: warnings,
		},
	}, nil
}

func (s *Service) disambiguationResult(dish string, resolution *Resolution) *models.DomainResult {
	groups := resolution.Groups

	if len(groups) == 1 {
		// All variants live in one restaurant; ask which version.
		g := groups[0]
		muts := []models.Mutation{
			models.SetPendingDish(dish),
			models.SetPendingOrder(nil),
			models.SetCurrentRestaurant(&models.RestaurantRef{ID: g.RestaurantID, Name: g.RestaurantName}),
			models.SetExpectedContext(models.ContextMenuOrOrder),
		}
		return &models.DomainResult{
			Intent:             models.IntentCreateOrder,
			NeedsClarification: true,
			SurfaceKey:         surfaces.KeyClarifyItems,
			Facts:              &models.SurfaceFacts{Dish: dish, Clarify: ClarifyGroups(g.Items)},
			ContextUpdates:     muts,
			Meta:               models.ResultMeta{Outcome: models.OutcomeDisambigRequired},
		}
	}

	options := RestaurantOptions(groups)
	return &models.DomainResult{
		Intent:      models.IntentChooseRestaurant,
		Restaurants: options,
		SurfaceKey:  surfaces.KeyAskRestaurantForOrder,
		Facts:       &models.SurfaceFacts{Dish: dish, Restaurants: options},
		ContextUpdates: []models.Mutation{
			models.SetRestaurantsList(options),
			models.SetPendingDish(dish),
			models.SetPendingOrder(nil),
			models.SetExpectedContext(models.ContextSelectRestaurant),
		},
		Meta: models.ResultMeta{Outcome: models.OutcomeDisambigRequired},
	}
}

func requestedItems(req *Request, parsed ParsedUtterance) []models.RequestedItem {
	ents := req.Entities
	switch {
	case len(ents.Items) > 0:
		return ents.Items
	case len(parsed.Items) > 0:
		return parsed.Items
	case ents.Dish != "":
		qty := ents.Quantity
		if qty < 1 {
			qty = 1
		}
		return []models.RequestedItem{{Name: ents.Dish, Quantity: qty}}
	case req.Session.PendingDish != "":
		return rememberedItems(req.Session.PendingDish)
	}
	return nil
}

func currentName(sess *models.Session) string {
	if sess.CurrentRestaurant != nil {
		return sess.CurrentRestaurant.Name
	}
	return ""
}

// mergePendingOrder folds new lines into an existing pending order for
// the same restaurant; a different restaurant replaces it.
func mergePendingOrder(existing *models.PendingOrder, restID, restName string, lines []models.PendingItem) *models.PendingOrder {
	pending := &models.PendingOrder{RestaurantID: restID, RestaurantName: restName}
	if existing != nil && existing.RestaurantID == restID {
		pending.Items = append(pending.Items, existing.Items...)
	}

	for _, line := range lines {
		merged := false
		for i := range pending.Items {
			if pending.Items[i].ID == line.ID && pending.Items[i].Price == line.Price {
				pending.Items[i].Qty += line.Qty
				merged = true
				break
			}
		}
		if !merged {
			pending.Items = append(pending.Items, line)
		}
	}

	pending.Total = models.FormatPLN(pending.TotalPLN())
	return pending
}

// ConfirmOrder commits the pending order: cart append, validation,
// idempotent persistence, then conversation close with a successor id.
func (s *Service) ConfirmOrder(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session
	pending := sess.PendingOrder
	if pending == nil || len(pending.Items) == 0 {
		return &models.DomainResult{
			Intent: models.IntentConfirmOrder,
			Reply:  "Nie mam nic do potwierdzenia. Co chcesz zamówić?",
		}, nil
	}

	lines := make([]models.CartItem, 0, len(pending.Items))
	for _, it := range pending.Items {
		lines = append(lines, models.CartItem{
			MenuItemID:   it.ID,
			RestaurantID: pending.RestaurantID,
			Name:         it.Name,
			Price:        it.Price,
			Qty:          it.Qty,
		})
	}
	combined := append(append([]models.CartItem{}, sess.Cart...), lines...)

	if _, err := s.orders.ValidateCartBeforeCheckout(ctx, combined); err != nil {
		return s.checkoutFailure(pending, err), nil
	}

	var (
		orderID string
		skipped bool
	)
	persistRes, err := s.orders.PersistOrder(ctx, sess.ID, req.UserID, pending)
	if err != nil {
		// The reply and the close still go out; the idempotency key makes
		// a later retry safe.
		s.logger.Warn("Order persistence failed",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	} else {
		orderID = persistRes.OrderID
		skipped = persistRes.Skipped
	}

	successor := sessions.NewID()
	muts := []models.Mutation{
		models.AppendCart(lines),
		models.SetPendingOrder(nil),
		models.SetExpectedContext(""),
		models.SetPendingDish(""),
		sessions.CloseWithSuccessor(models.ClosedOrderConfirmed, successor),
	}

	total := models.FormatPLN(cartTotal(combined))
	var itemBits []string
	for _, it := range pending.Items {
		itemBits = append(itemBits, fmt.Sprintf("%dx %s", it.Qty, it.Name))
	}

	return &models.DomainResult{
		Intent: models.IntentConfirmOrder,
		Reply: fmt.Sprintf("Zamówienie przyjęte: %s z %s. Razem %s zł. Dziękuję!",
			strings.Join(itemBits, ", "), pending.RestaurantName, total),
		Actions: []models.Action{{
			Type:    models.ActionShowCart,
			Payload: models.ShowCartPayload{OrderID: orderID, Items: combined, Total: total},
		}},
		ContextUpdates:     muts,
		ConversationClosed: true,
		NewSessionID:       successor,
		Meta: models.ResultMeta{
			OrderID:     orderID,
			AddedToCart: true,
			Skipped:     skipped,
		},
	}, nil
}

func (s *Service) checkoutFailure(pending *models.PendingOrder, err error) *models.DomainResult {
	reply := "Nie mogę przyjąć tego zamówienia."
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		switch verr.Code {
		case models.CodeEmptyCart:
			reply = "Koszyk jest pusty. Co chcesz zamówić?"
		case models.CodeMixedRestaurants:
			reply = "Zamówienie może być tylko z jednej restauracji. Dokończ jedno, potem zacznij kolejne."
		case models.CodeRestaurantClosed:
			reply = fmt.Sprintf("%s jest teraz zamknięta. Wybierz inną restaurację.", pending.RestaurantName)
		case models.CodeMinOrderNotMet:
			reply = fmt.Sprintf("To za mało na minimalne zamówienie w %s. Dodaj coś jeszcze.", pending.RestaurantName)
		}
	}
	return &models.DomainResult{
		Intent: models.IntentConfirmOrder,
		Reply:  reply,
		ContextUpdates: []models.Mutation{
			models.SetExpectedContext(models.ContextConfirmOrder),
		},
		Meta: models.ResultMeta{Outcome: validationCode(err)},
	}
}

func validationCode(err error) string {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return ""
}

func cartTotal(items []models.CartItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Price * float64(it.Qty)
	}
	return math.Round(sum*100) / 100
}

// ConfirmAddToCart validates a single dish against the selected
// restaurant and closes the conversation; the actual cart append happens
// on the client via the add_to_cart action.
func (s *Service) ConfirmAddToCart(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session

	dish := req.Entities.Dish
	if dish == "" {
		dish = sess.PendingDish
	}
	if dish == "" {
		return &models.DomainResult{
			Intent: models.IntentConfirmAddToCart,
			Reply:  "Co mam dodać do koszyka?",
		}, nil
	}

	rest := sess.CurrentRestaurant
	if rest == nil {
		rest = sess.LastRestaurant
	}
	if rest == nil {
		return &models.DomainResult{
			Intent: models.IntentConfirmAddToCart,
			Reply:  "Najpierw wybierz restaurację.",
		}, nil
	}

	resolution, err := s.resolver.ResolveDish(ctx, dish, "", rest.ID)
	if err != nil {
		return nil, err
	}
	if resolution.Outcome != models.OutcomeAddItem {
		return &models.DomainResult{
			Intent:       models.IntentConfirmAddToCart,
			UnknownItems: []string{dish},
			Facts:        &models.SurfaceFacts{UnknownItem: dish, Restaurant: rest.Name},
		}, nil
	}

	item := resolution.Item
	line := models.PendingItem{ID: item.ID, Name: item.Name, Price: item.Price, Qty: 1}
	line, _, err = s.orders.ValidateItemBeforeAdd(ctx, line)
	if err != nil {
		return &models.DomainResult{
			Intent:       models.IntentConfirmAddToCart,
			UnknownItems: []string{dish},
			Facts:        &models.SurfaceFacts{UnknownItem: dish, Restaurant: rest.Name},
		}, nil
	}

	successor := sessions.NewID()
	return &models.DomainResult{
		Intent: models.IntentConfirmAddToCart,
		Reply: fmt.Sprintf("Dodałam %s (%s zł) do koszyka. Do usłyszenia!",
			line.Name, models.FormatPLN(line.Price)),
		Actions: []models.Action{{
			Type:    models.ActionAddToCart,
			Payload: line,
		}},
		ContextUpdates: []models.Mutation{
			models.SetPendingDish(""),
			sessions.CloseWithSuccessor(models.ClosedCartItemAdded, successor),
		},
		ConversationClosed: true,
		NewSessionID:       successor,
		Meta:               models.ResultMeta{AddedToCart: true},
	}, nil
}

// CancelOrder drops the staged order and disarms the confirm context.
func (s *Service) CancelOrder(_ context.Context, _ *Request) (*models.DomainResult, error) {
	return &models.DomainResult{
		Intent: models.IntentCancelOrder,
		Reply:  "W porządku, anulowałam. Chcesz zamówić coś innego?",
		ContextUpdates: []models.Mutation{
			models.SetPendingOrder(nil),
			models.SetExpectedContext(""),
		},
	}, nil
}

// ShowMore re-surfaces the full persisted list, not just the capped head.
func (s *Service) ShowMore(_ context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session
	list := sess.LastRestaurantsList
	if len(list) == 0 {
		return &models.DomainResult{
			Intent: models.IntentShowMoreOptions,
			Reply:  "Nie mam więcej opcji. Powiedz, czego szukasz.",
		}, nil
	}

	return &models.DomainResult{
		Intent:           models.IntentShowMoreOptions,
		Restaurants:      list,
		ExpectsSelection: true,
		SurfaceKey:       surfaces.KeyChooseRestaurant,
		Facts: &models.SurfaceFacts{
			City:        cityLabel(sess.LastLocation),
			Restaurants: list,
			Count:       len(list),
		},
		ContextUpdates: []models.Mutation{
			models.SetExpectedContext(models.ContextSelectRestaurant),
			models.SetListOffset(len(list)),
		},
	}, nil
}

// Recommend proposes dishes from the selected restaurant, or restaurants
// from the last searched city when nothing is selected.
func (s *Service) Recommend(ctx context.Context, req *Request) (*models.DomainResult, error) {
	sess := req.Session

	if rest := sess.CurrentRestaurant; rest != nil {
		items, err := s.loadMenu(ctx, rest.ID)
		if err == nil && len(items) > 0 {
			picks := menuShortlist(items)
			if len(picks) > genericListLimit {
				picks = picks[:genericListLimit]
			}
			var names []string
			for _, it := range picks {
				names = append(names, fmt.Sprintf("%s (%s zł)", it.Name, models.FormatPLN(it.Price)))
			}
			return &models.DomainResult{
				Intent:    models.IntentRecommend,
				MenuItems: picks,
				Reply:     fmt.Sprintf("Z %s polecam: %s. Coś z tego?", rest.Name, strings.Join(names, ", ")),
				ContextUpdates: []models.Mutation{
					models.SetExpectedContext(models.ContextMenuOrOrder),
				},
			}, nil
		}
	}

	find := *req
	if find.Entities.Location == "" {
		find.Entities.Location = sess.LastLocation
	}
	res, err := s.FindRestaurant(ctx, &find)
	if err != nil {
		return nil, err
	}
	res.Intent = models.IntentRecommend
	return res, nil
}

func listItems(results []models.Restaurant) []models.RestaurantListItem {
	out := make([]models.RestaurantListItem, len(results))
	for i, r := range results {
		out[i] = models.RestaurantListItem{Index: i + 1, Restaurant: r}
	}
	return out
}

func cityLabel(city string) string {
	if city == "" {
		return "pobliżu"
	}
	return lexicon.TitleCity(city)
}

// distanceKm is the haversine great-circle distance.
func distanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
