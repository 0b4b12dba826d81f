package food

import (
	"context"
	"sort"
	"strings"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// CandidateGroup is one restaurant's share of an ambiguous dish match.
type CandidateGroup struct {
	RestaurantID   string
	RestaurantName string
	Items          []models.MenuItem
}

// Resolution is the outcome of resolving one requested dish against the
// catalog. Exactly one of Item or Groups is populated, depending on
// Outcome.
type Resolution struct {
	Outcome string
	Item    *models.MenuItem
	Groups  []CandidateGroup

	// Switched reports that the match lives outside the caller's
	// restaurant context, so the handler owes the user a heads-up.
	Switched bool
}

// Resolver maps dish phrases onto concrete menu items. The repository
// does a coarse token pre-filter; ranking and the ambiguity ladder run
// here.
type Resolver struct {
	repo  catalog.Repository
	index *catalog.Index
}

func NewResolver(repo catalog.Repository, index *catalog.Index) *Resolver {
	return &Resolver{repo: repo, index: index}
}

// ResolveDish runs the resolution ladder: no fuzzy match means
// ITEM_NOT_FOUND, a single match wins outright, then the restaurant
// context narrows, then a unique exact name match wins, and whatever is
// still ambiguous comes back grouped by restaurant.
func (r *Resolver) ResolveDish(ctx context.Context, name, size, contextRestaurantID string) (*Resolution, error) {
	query := lexicon.Normalize(name)
	if query == "" {
		return &Resolution{Outcome: models.OutcomeItemNotFound}, nil
	}

	rows, err := r.repo.SearchMenuItems(ctx, searchTokens(name))
	if err != nil {
		return nil, err
	}

	candidates := fuzzyFilter(rows, query)
	if size != "" {
		if sized := sizeFilter(candidates, size); len(sized) > 0 {
			candidates = sized
		}
	}

	switch len(candidates) {
	case 0:
		return &Resolution{Outcome: models.OutcomeItemNotFound}, nil
	case 1:
		return r.addItem(&candidates[0], contextRestaurantID), nil
	}

	if contextRestaurantID != "" {
		within := restaurantFilter(candidates, contextRestaurantID)
		switch {
		case len(within) == 1:
			return r.addItem(&within[0], contextRestaurantID), nil
		case len(within) > 1:
			if hit := exactSingle(within, query); hit != nil {
				return r.addItem(hit, contextRestaurantID), nil
			}
			return &Resolution{
				Outcome: models.OutcomeDisambigRequired,
				Groups:  r.groupByRestaurant(within),
			}, nil
		}
		// Nothing in the current restaurant; the global ladder below may
		// still find the dish elsewhere, which counts as a switch.
	}

	if hit := exactSingle(candidates, query); hit != nil {
		return r.addItem(hit, contextRestaurantID), nil
	}

	return &Resolution{
		Outcome: models.OutcomeDisambigRequired,
		Groups:  r.groupByRestaurant(candidates),
	}, nil
}

func (r *Resolver) addItem(item *models.MenuItem, contextRestaurantID string) *Resolution {
	it := *item
	return &Resolution{
		Outcome:  models.OutcomeAddItem,
		Item:     &it,
		Switched: contextRestaurantID != "" && it.RestaurantID != contextRestaurantID,
	}
}

func (r *Resolver) groupByRestaurant(items []models.MenuItem) []CandidateGroup {
	byID := make(map[string]*CandidateGroup)
	var order []string
	for _, it := range items {
		g, ok := byID[it.RestaurantID]
		if !ok {
			g = &CandidateGroup{RestaurantID: it.RestaurantID}
			if rest := r.index.ByID(it.RestaurantID); rest != nil {
				g.RestaurantName = rest.Name
			}
			byID[it.RestaurantID] = g
			order = append(order, it.RestaurantID)
		}
		g.Items = append(g.Items, it)
	}

	groups := make([]CandidateGroup, 0, len(order))
	for _, id := range order {
		groups = append(groups, *byID[id])
	}
	return groups
}

// RestaurantOptions flattens groups into the 1-indexed list the surface
// and select_restaurant share.
func RestaurantOptions(groups []CandidateGroup) []models.RestaurantListItem {
	out := make([]models.RestaurantListItem, 0, len(groups))
	for i, g := range groups {
		out = append(out, models.RestaurantListItem{
			Index: i + 1,
			Restaurant: models.Restaurant{
				ID:   g.RestaurantID,
				Name: g.RestaurantName,
			},
		})
	}
	return out
}

// ClarifyGroups buckets same-restaurant variants under their base name so
// the clarify surface can print "pizza: mała 20 zł, duża 30 zł".
func ClarifyGroups(items []models.MenuItem) []models.ClarifyGroup {
	byBase := make(map[string][]models.MenuItem)
	var order []string
	for _, it := range items {
		base := baseName(it)
		if _, ok := byBase[base]; !ok {
			order = append(order, base)
		}
		byBase[base] = append(byBase[base], it)
	}

	groups := make([]models.ClarifyGroup, 0, len(order))
	for _, base := range order {
		opts := byBase[base]
		sort.Slice(opts, func(i, j int) bool { return opts[i].Price < opts[j].Price })
		groups = append(groups, models.ClarifyGroup{Base: base, Options: opts})
	}
	return groups
}

// searchTokens widens the repo pre-filter with short prefixes so
// inflected forms ("kebabów") still hit the substring match on "kebab".
func searchTokens(name string) []string {
	tokens := lexicon.Tokenize(name)
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range tokens {
		add(t)
		if r := []rune(t); len(r) > 5 {
			add(string(r[:5]))
		}
	}
	return out
}

// fuzzyFilter keeps plausible matches. Substring containment in either
// direction is a strong match; token-overlap matches only count when no
// strong match exists, so "pizza hawajska" does not shadow a literal
// "pizza margherita".
func fuzzyFilter(items []models.MenuItem, query string) []models.MenuItem {
	var strong, weak []models.MenuItem
	for _, it := range items {
		name := lexicon.Normalize(it.Name)
		switch {
		case strings.Contains(name, query) || strings.Contains(query, name):
			strong = append(strong, it)
		case lexicon.FuzzyIncludes(name, query) || lexicon.FuzzyIncludes(query, name):
			weak = append(weak, it)
		}
	}
	if len(strong) > 0 {
		return strong
	}
	return weak
}

func sizeFilter(items []models.MenuItem, size string) []models.MenuItem {
	want := lexicon.Normalize(size)
	var out []models.MenuItem
	for _, it := range items {
		if lexicon.Normalize(it.Size) == want {
			out = append(out, it)
		}
	}
	return out
}

func restaurantFilter(items []models.MenuItem, restaurantID string) []models.MenuItem {
	var out []models.MenuItem
	for _, it := range items {
		if it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	return out
}

// exactSingle returns the candidate whose normalized name equals the
// query, but only when exactly one does.
func exactSingle(items []models.MenuItem, query string) *models.MenuItem {
	var hit *models.MenuItem
	for i := range items {
		if lexicon.Normalize(items[i].Name) == query {
			if hit != nil {
				return nil
			}
			hit = &items[i]
		}
	}
	return hit
}

func baseName(it models.MenuItem) string {
	if it.Size == "" {
		return it.Name
	}
	name := lexicon.Normalize(it.Name)
	size := lexicon.Normalize(it.Size)
	trimmed := lexicon.Tokenize(name)
	var kept []string
	for _, tok := range trimmed {
		if tok == size {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return it.Name
	}
	return strings.Join(kept, " ")
}
