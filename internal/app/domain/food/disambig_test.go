package food

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// fakeCatalog mirrors the SQL repository closely enough for handler
// tests: city is a substring match, menu search is a token ILIKE.
type fakeCatalog struct {
	restaurants []models.Restaurant
	menus       map[string][]models.MenuItem

	menuCalls   int
	searchErr   error
	listErr     error
	menuFetches []string
}

func (f *fakeCatalog) ListRestaurants(_ context.Context) ([]models.Restaurant, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.restaurants, nil
}

func (f *fakeCatalog) SearchRestaurants(_ context.Context, city string, cuisines []string) ([]models.Restaurant, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []models.Restaurant
	for _, r := range f.restaurants {
		if city != "" && !strings.Contains(lexicon.Normalize(r.City), lexicon.Normalize(city)) {
			continue
		}
		if len(cuisines) > 0 && !containsString(cuisines, r.CuisineType) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeCatalog) SearchNearby(_ context.Context, lat, lng, radiusKm float64) ([]models.Restaurant, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.restaurants, nil
}

func (f *fakeCatalog) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	for _, r := range f.restaurants {
		if r.ID == id {
			rest := r
			return &rest, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeCatalog) GetMenu(_ context.Context, restaurantID string, availableOnly bool) ([]models.MenuItem, error) {
	f.menuCalls++
	f.menuFetches = append(f.menuFetches, restaurantID)
	var out []models.MenuItem
	for _, it := range f.menus[restaurantID] {
		if availableOnly && !it.Available {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeCatalog) SearchMenuItems(_ context.Context, tokens []string) ([]models.MenuItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	// Stable restaurant order, like the SQL ORDER BY.
	var out []models.MenuItem
	for _, r := range f.restaurants {
		for _, it := range f.menus[r.ID] {
			if !it.Available {
				continue
			}
			name := lexicon.Normalize(it.Name)
			for _, tok := range tokens {
				if tok != "" && strings.Contains(name, tok) {
					out = append(out, it)
					break
				}
			}
		}
	}
	return out, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func testRestaurants() []models.Restaurant {
	return []models.Restaurant{
		{ID: "r1", Name: "Bar Praha", Aliases: []string{"praha"}, City: "Bytom", CuisineType: "Czeska", Lat: 50.35, Lng: 18.92, IsOpen: true, MinOrderPLN: 20},
		{ID: "r2", Name: "Tasty King", City: "Bytom", CuisineType: "Kebab", Lat: 50.36, Lng: 18.91, IsOpen: true, MinOrderPLN: 15},
		{ID: "r3", Name: "Pizzeria Roma", Aliases: []string{"roma"}, City: "Katowice", CuisineType: "Włoska", Lat: 50.26, Lng: 19.02, IsOpen: true, MinOrderPLN: 30},
	}
}

func testMenus() map[string][]models.MenuItem {
	return map[string][]models.MenuItem{
		"r1": {
			{ID: "m1", RestaurantID: "r1", Name: "Pierogi ruskie", Price: 18, Category: "dania główne", Available: true},
			{ID: "m2", RestaurantID: "r1", Name: "Pizza Margherita", Price: 24, Category: "pizza", Available: true},
			{ID: "m3", RestaurantID: "r1", Name: "Kotlet schabowy", Price: 28, Category: "dania główne", Available: true},
		},
		"r2": {
			{ID: "m4", RestaurantID: "r2", Name: "Kebab", Price: 20, Category: "kebab", Available: true},
			{ID: "m5", RestaurantID: "r2", Name: "Kebab XXL", Price: 26, Category: "kebab", Available: true},
			{ID: "m6", RestaurantID: "r2", Name: "Burger wołowy", Price: 29, Category: "burgery", Available: true},
		},
		"r3": {
			{ID: "m7", RestaurantID: "r3", Name: "Pizza Margherita", Price: 20, Category: "pizza", Available: true, Size: "mała"},
			{ID: "m8", RestaurantID: "r3", Name: "Pizza Margherita", Price: 30, Category: "pizza", Available: true, Size: "duża"},
			{ID: "m9", RestaurantID: "r3", Name: "Pizza Hawajska", Price: 27, Category: "pizza", Available: true},
		},
	}
}

func newTestResolver() (*Resolver, *fakeCatalog) {
	repo := &fakeCatalog{restaurants: testRestaurants(), menus: testMenus()}
	index := catalog.NewIndex(repo.restaurants, zap.NewNop())
	return NewResolver(repo, index), repo
}

func TestResolveDishNotFound(t *testing.T) {
	resolver, _ := newTestResolver()

	res, err := resolver.ResolveDish(context.Background(), "sushi", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeItemNotFound, res.Outcome)
	assert.Nil(t, res.Item)
}

func TestResolveDishSingleMatch(t *testing.T) {
	resolver, _ := newTestResolver()

	res, err := resolver.ResolveDish(context.Background(), "pierogi", "", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeAddItem, res.Outcome)
	assert.Equal(t, "m1", res.Item.ID)
	assert.False(t, res.Switched)
}

func TestResolveDishContextNarrowsAndExactWins(t *testing.T) {
	resolver, _ := newTestResolver()

	// Both r2 kebabs fuzzy-match; the exact name picks the plain one.
	res, err := resolver.ResolveDish(context.Background(), "kebab", "", "r2")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeAddItem, res.Outcome)
	assert.Equal(t, "m4", res.Item.ID)
	assert.False(t, res.Switched)
}

func TestResolveDishSwitchesRestaurant(t *testing.T) {
	resolver, _ := newTestResolver()

	// Burger lives only in r2; the r1 context cannot hold it.
	res, err := resolver.ResolveDish(context.Background(), "burger", "", "r1")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeAddItem, res.Outcome)
	assert.Equal(t, "m6", res.Item.ID)
	assert.True(t, res.Switched)
}

func TestResolveDishAmbiguousAcrossRestaurants(t *testing.T) {
	resolver, _ := newTestResolver()

	res, err := resolver.ResolveDish(context.Background(), "pizza margherita", "", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeDisambigRequired, res.Outcome)
	require.Len(t, res.Groups, 2)

	names := []string{res.Groups[0].RestaurantName, res.Groups[1].RestaurantName}
	assert.Contains(t, names, "Bar Praha")
	assert.Contains(t, names, "Pizzeria Roma")
}

func TestResolveDishSizeFilter(t *testing.T) {
	resolver, _ := newTestResolver()

	res, err := resolver.ResolveDish(context.Background(), "pizza margherita", "duża", "")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeAddItem, res.Outcome)
	assert.Equal(t, "m8", res.Item.ID)
	assert.Equal(t, 30.0, res.Item.Price)
}

func TestResolveDishVariantsWithinRestaurant(t *testing.T) {
	resolver, _ := newTestResolver()

	res, err := resolver.ResolveDish(context.Background(), "pizza margherita", "", "r3")
	require.NoError(t, err)
	require.Equal(t, models.OutcomeDisambigRequired, res.Outcome)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "r3", res.Groups[0].RestaurantID)
	assert.Len(t, res.Groups[0].Items, 2)
}

func TestClarifyGroups(t *testing.T) {
	menus := testMenus()
	groups := ClarifyGroups([]models.MenuItem{menus["r3"][1], menus["r3"][0]})

	require.Len(t, groups, 1)
	assert.Equal(t, "pizza margherita", groups[0].Base)
	require.Len(t, groups[0].Options, 2)
	// Sorted by price: mała before duża.
	assert.Equal(t, "mała", groups[0].Options[0].Size)
	assert.Equal(t, "duża", groups[0].Options[1].Size)
}

func TestRestaurantOptions(t *testing.T) {
	options := RestaurantOptions([]CandidateGroup{
		{RestaurantID: "r1", RestaurantName: "Bar Praha"},
		{RestaurantID: "r3", RestaurantName: "Pizzeria Roma"},
	})

	require.Len(t, options, 2)
	assert.Equal(t, 1, options[0].Index)
	assert.Equal(t, "Bar Praha", options[0].Name)
	assert.Equal(t, 2, options[1].Index)
	assert.Equal(t, "r3", options[1].ID)
}
