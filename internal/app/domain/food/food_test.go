package food

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/orders"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/surfaces"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
	"github.com/FACorreiaa/go-voice-orders/internal/pkg/cache"
)

// fakeCommitter stands in for the orders service. Persistence dedupes on
// the real idempotency key so the duplicate-confirm path is exercised.
type fakeCommitter struct {
	repo       *fakeCatalog
	cartErr    error
	persistErr error
	priceBump  map[string]float64

	persisted int
	byKey     map[string]string
}

func newFakeCommitter(repo *fakeCatalog) *fakeCommitter {
	return &fakeCommitter{repo: repo, byKey: make(map[string]string)}
}

func (f *fakeCommitter) ValidateItemBeforeAdd(_ context.Context, item models.PendingItem) (models.PendingItem, []string, error) {
	if item.Qty < 1 {
		item.Qty = 1
	}
	if item.Qty > orders.MaxItemQty {
		return item, nil, models.NewValidationError(models.CodeQuantityTooHigh, item.Name, models.ErrQuantityTooHigh)
	}
	var warns []string
	if p, ok := f.priceBump[item.ID]; ok && p > item.Price+0.01 {
		warns = append(warns, models.WarnItemPriceIncreased)
		item.Price = p
	}
	return item, warns, nil
}

func (f *fakeCommitter) ValidateCartBeforeCheckout(ctx context.Context, items []models.CartItem) (*models.Restaurant, error) {
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	if len(items) == 0 {
		return nil, models.NewValidationError(models.CodeEmptyCart, "", models.ErrEmptyCart)
	}
	return f.repo.GetRestaurant(ctx, items[0].RestaurantID)
}

func (f *fakeCommitter) PersistOrder(_ context.Context, sessionID, _ string, pending *models.PendingOrder) (*orders.PersistResult, error) {
	if f.persistErr != nil {
		return nil, f.persistErr
	}
	key := orders.IdempotencyKey(sessionID, pending.Items)
	if id, ok := f.byKey[key]; ok {
		return &orders.PersistResult{OrderID: id, Skipped: true}, nil
	}
	f.persisted++
	id := fmt.Sprintf("ord-%d", f.persisted)
	f.byKey[key] = id
	return &orders.PersistResult{OrderID: id}, nil
}

func newTestFood() (*Service, *fakeCatalog, *fakeCommitter) {
	repo := &fakeCatalog{restaurants: testRestaurants(), menus: testMenus()}
	index := catalog.NewIndex(repo.restaurants, zap.NewNop())
	committer := newFakeCommitter(repo)
	svc := NewService(repo, index, committer, cache.NewCacheManager(zap.NewNop()), zap.NewNop())
	return svc, repo, committer
}

func newSession() *models.Session {
	return &models.Session{ID: "sess_1700000000000_abc123", Status: models.SessionActive}
}

func applied(sess *models.Session, res *models.DomainResult) *models.Session {
	c := *sess
	c.Apply(res.ContextUpdates)
	return &c
}

func TestFindRestaurantAsksForLocation(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Text:     "gdzie zjem kebaba",
		Entities: models.Entities{Dish: "kebab"},
	})
	require.NoError(t, err)

	assert.True(t, res.NeedsLocation)
	assert.Equal(t, "kebab", res.Facts.Dish)

	after := applied(sess, res)
	assert.Equal(t, models.AwaitingLocation, after.Awaiting)
	assert.Equal(t, models.ContextAskLocation, after.ExpectedContext)
	assert.Equal(t, "kebab", after.PendingDish)
}

func TestFindRestaurantCityList(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Text:     "szukam jedzenia w Bytomiu",
		Entities: models.Entities{Location: "Bytom"},
	})
	require.NoError(t, err)

	assert.True(t, res.ExpectsSelection)
	assert.Equal(t, surfaces.KeyChooseRestaurant, res.SurfaceKey)
	require.Len(t, res.Restaurants, 2)
	assert.Equal(t, 2, res.Facts.Count)

	after := applied(sess, res)
	require.Len(t, after.LastRestaurantsList, 2)
	assert.Equal(t, 1, after.LastRestaurantsList[0].Index)
	assert.Equal(t, 2, after.LastRestaurantsList[1].Index)
	assert.Equal(t, models.ContextSelectRestaurant, after.ExpectedContext)
	assert.Equal(t, "Bytom", after.LastLocation)
}

func TestFindRestaurantGenericCapKeepsFullList(t *testing.T) {
	svc, repo, _ := newTestFood()
	for i := 4; i <= 6; i++ {
		repo.restaurants = append(repo.restaurants, models.Restaurant{
			ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Bar %d", i),
			City: "Bytom", CuisineType: "Polska", IsOpen: true,
		})
	}
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Entities: models.Entities{Location: "Bytom"},
	})
	require.NoError(t, err)

	// Spoken list capped at 3, full list persisted for show_more_options.
	assert.Len(t, res.Restaurants, 3)
	assert.Equal(t, 5, res.Facts.Count)

	after := applied(sess, res)
	assert.Len(t, after.LastRestaurantsList, 5)
}

func TestFindRestaurantSingleResult(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Entities: models.Entities{Location: "Katowice"},
	})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "tylko Pizzeria Roma")
	after := applied(sess, res)
	require.NotNil(t, after.CurrentRestaurant)
	assert.Equal(t, "r3", after.CurrentRestaurant.ID)
	assert.Equal(t, models.ContextConfirmMenu, after.ExpectedContext)
}

func TestFindRestaurantUnknownCitySuggestsOthers(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Entities: models.Entities{Location: "Gliwice", Dish: "kebab"},
	})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "Bytom")
	assert.Contains(t, res.Reply, "Katowice")

	after := applied(sess, res)
	assert.Equal(t, models.AwaitingLocation, after.Awaiting)
	assert.Equal(t, "kebab", after.PendingDish)
}

func TestFindRestaurantResolvesAmbiguousDishAnywhere(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	// create_order demoted by the capability gate still carries its items.
	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Text:     "Zamawiam Pizza Margherita",
		Entities: models.Entities{Dish: "pizza margherita", Items: []models.RequestedItem{{Name: "pizza margherita", Quantity: 1}}},
	})
	require.NoError(t, err)

	assert.Equal(t, models.IntentChooseRestaurant, res.Intent)
	assert.Equal(t, models.OutcomeDisambigRequired, res.Meta.Outcome)
	require.Len(t, res.Restaurants, 2)

	after := applied(sess, res)
	assert.Equal(t, "pizza margherita", after.PendingDish)
	assert.Nil(t, after.PendingOrder)
}

func TestFindRestaurantUniqueDishStartsOrder(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Text:     "zamawiam burger",
		Entities: models.Entities{Dish: "burger", Items: []models.RequestedItem{{Name: "burger", Quantity: 1}}},
	})
	require.NoError(t, err)

	assert.Equal(t, surfaces.KeyConfirmAdd, res.SurfaceKey)

	after := applied(sess, res)
	require.NotNil(t, after.CurrentRestaurant)
	assert.Equal(t, "r2", after.CurrentRestaurant.ID)
	require.NotNil(t, after.PendingOrder)
	assert.Equal(t, "Burger wołowy", after.PendingOrder.Items[0].Name)
	assert.Equal(t, models.ContextConfirmOrder, after.ExpectedContext)
}

func TestFindRestaurantUnresolvedDishAsksForCity(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session:  sess,
		Text:     "Zamawiam pizzę",
		Entities: models.Entities{Dish: "pizze", Items: []models.RequestedItem{{Name: "pizze", Quantity: 1}}},
	})
	require.NoError(t, err)

	assert.True(t, res.NeedsLocation)
	after := applied(sess, res)
	assert.Equal(t, "pizze", after.PendingDish)
	assert.Nil(t, after.PendingOrder)
}

func TestFindRestaurantNearbySortsByDistance(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	// Tasty King's coordinates exactly.
	lat, lng := 50.36, 18.91
	res, err := svc.FindRestaurant(context.Background(), &Request{
		Session: sess,
		Lat:     &lat,
		Lng:     &lng,
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.Restaurants)
	assert.Equal(t, "Tasty King", res.Restaurants[0].Name)
	require.NotNil(t, res.Restaurants[0].Distance)
	assert.InDelta(t, 0, *res.Restaurants[0].Distance, 1.0)
	assert.Equal(t, "pobliżu", res.Facts.City)
}

func TestMenuFiltersAndCaps(t *testing.T) {
	svc, repo, _ := newTestFood()
	repo.menus["r2"] = append(repo.menus["r2"],
		models.MenuItem{ID: "m10", RestaurantID: "r2", Name: "Coca-Cola", Price: 6, Category: "napoje", Available: true},
		models.MenuItem{ID: "m11", RestaurantID: "r2", Name: "Sos czosnkowy", Price: 3, Category: "sosy", Available: true},
		models.MenuItem{ID: "m12", RestaurantID: "r2", Name: "Tortilla", Price: 18, Category: "kebab", Available: true},
		models.MenuItem{ID: "m13", RestaurantID: "r2", Name: "Falafel", Price: 19, Category: "kebab", Available: true},
		models.MenuItem{ID: "m14", RestaurantID: "r2", Name: "Lahmacun", Price: 21, Category: "kebab", Available: true},
		models.MenuItem{ID: "m15", RestaurantID: "r2", Name: "Zapiekanka", Price: 12, Category: "kebab", Available: true},
	)

	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}

	res, err := svc.Menu(context.Background(), &Request{Session: sess, Text: "pokaż menu"})
	require.NoError(t, err)

	assert.Equal(t, surfaces.KeyMenu, res.SurfaceKey)
	assert.Len(t, res.MenuItems, menuListLimit)
	for _, it := range res.MenuItems {
		assert.NotEqual(t, "napoje", it.Category)
		assert.NotEqual(t, "sosy", it.Category)
	}

	after := applied(sess, res)
	assert.Equal(t, "r2", after.LastMenuRestaurant)
	assert.Len(t, after.LastMenu, menuListLimit)
	assert.Equal(t, models.ContextMenuOrOrder, after.ExpectedContext)
}

func TestMenuAntiLoopReusesShortlist(t *testing.T) {
	svc, repo, _ := newTestFood()

	shortlist := []models.MenuItem{
		{ID: "m4", RestaurantID: "r2", Name: "Kebab", Price: 20, Category: "kebab", Available: true},
	}
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}
	sess.LastMenuRestaurant = "r2"
	sess.LastMenu = shortlist

	res, err := svc.Menu(context.Background(), &Request{Session: sess, Text: "menu"})
	require.NoError(t, err)

	assert.Equal(t, shortlist, res.MenuItems)
	assert.Zero(t, repo.menuCalls)
}

func TestMenuWithoutRestaurant(t *testing.T) {
	svc, _, _ := newTestFood()

	res, err := svc.Menu(context.Background(), &Request{Session: newSession(), Text: "menu"})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "wybierz restaurację")
}

func selectionSession() *models.Session {
	sess := newSession()
	sess.LastRestaurantsList = []models.RestaurantListItem{
		{Index: 1, Restaurant: models.Restaurant{ID: "r1", Name: "Bar Praha", City: "Bytom"}},
		{Index: 2, Restaurant: models.Restaurant{ID: "r2", Name: "Tasty King", City: "Bytom"}},
	}
	sess.ExpectedContext = models.ContextSelectRestaurant
	return sess
}

func TestSelectRestaurantByPosition(t *testing.T) {
	svc, _, _ := newTestFood()

	for _, input := range []string{"2", "dwa", "druga"} {
		t.Run(input, func(t *testing.T) {
			sess := selectionSession()
			res, err := svc.SelectRestaurant(context.Background(), &Request{Session: sess, Text: input})
			require.NoError(t, err)

			assert.Contains(t, res.Reply, "Tasty King")
			after := applied(sess, res)
			require.NotNil(t, after.CurrentRestaurant)
			assert.Equal(t, "r2", after.CurrentRestaurant.ID)
			assert.Equal(t, "r2", after.LockedRestaurantID)
		})
	}
}

func TestSelectRestaurantByName(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := selectionSession()

	res, err := svc.SelectRestaurant(context.Background(), &Request{Session: sess, Text: "poproszę praha"})
	require.NoError(t, err)

	after := applied(sess, res)
	require.NotNil(t, after.CurrentRestaurant)
	assert.Equal(t, "r1", after.CurrentRestaurant.ID)
}

func TestSelectRestaurantInvalidKeepsContext(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := selectionSession()

	res, err := svc.SelectRestaurant(context.Background(), &Request{Session: sess, Text: "xyz"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "Nie rozumiem wyboru")
	after := applied(sess, res)
	assert.Nil(t, after.CurrentRestaurant)
	assert.Equal(t, models.ContextSelectRestaurant, after.ExpectedContext)
}

func TestSelectRestaurantCarriesPendingDish(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := selectionSession()
	sess.PendingDish = "kebab"

	res, err := svc.SelectRestaurant(context.Background(), &Request{Session: sess, Text: "dwa"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentSelectRestaurant, res.Intent)
	require.NotEmpty(t, res.Actions)
	assert.Equal(t, models.ActionCreateOrder, res.Actions[0].Type)
	payload, ok := res.Actions[0].Payload.(models.CreateOrderPayload)
	require.True(t, ok)
	assert.Equal(t, "r2", payload.Restaurant.ID)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "kebab", payload.Items[0].Name)
	assert.Equal(t, 1, payload.Items[0].Quantity)

	after := applied(sess, res)
	require.NotNil(t, after.CurrentRestaurant)
	assert.Equal(t, "r2", after.CurrentRestaurant.ID)
	assert.Empty(t, after.PendingDish)
	assert.Equal(t, models.ContextConfirmOrder, after.ExpectedContext)
	require.NotNil(t, after.PendingOrder)
	require.Len(t, after.PendingOrder.Items, 1)
	assert.Equal(t, "Kebab", after.PendingOrder.Items[0].Name)
	assert.Equal(t, surfaces.KeyConfirmAdd, res.SurfaceKey)
}

func TestOrderUnknownItem(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r1", Name: "Bar Praha"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam sushi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"sushi"}, res.UnknownItems)
	assert.Equal(t, "sushi", res.Facts.UnknownItem)
	assert.Equal(t, "Bar Praha", res.Facts.Restaurant)
	assert.Equal(t, models.OutcomeItemNotFound, res.Meta.Outcome)
}

func TestOrderAmbiguousAcrossRestaurants(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "Zamawiam Pizza Margherita"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentChooseRestaurant, res.Intent)
	assert.Equal(t, surfaces.KeyAskRestaurantForOrder, res.SurfaceKey)
	assert.Equal(t, models.OutcomeDisambigRequired, res.Meta.Outcome)
	require.Len(t, res.Restaurants, 2)

	after := applied(sess, res)
	assert.Len(t, after.LastRestaurantsList, 2)
	assert.Equal(t, "pizza margherita", after.PendingDish)
	assert.Equal(t, models.ContextSelectRestaurant, after.ExpectedContext)
	assert.Nil(t, after.PendingOrder)
}

func TestOrderClarifiesVariantsWithinRestaurant(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r3", Name: "Pizzeria Roma"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam pizza margherita"})
	require.NoError(t, err)

	assert.True(t, res.NeedsClarification)
	assert.Equal(t, surfaces.KeyClarifyItems, res.SurfaceKey)
	require.Len(t, res.Facts.Clarify, 1)
	assert.Len(t, res.Facts.Clarify[0].Options, 2)

	after := applied(sess, res)
	assert.Equal(t, "pizza margherita", after.PendingDish)
	assert.Nil(t, after.PendingOrder)
}

func TestOrderStagesPendingOrder(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam 2x kebab"})
	require.NoError(t, err)

	assert.Equal(t, surfaces.KeyConfirmAdd, res.SurfaceKey)
	require.NotNil(t, res.Facts)
	assert.Equal(t, "40.00", res.Facts.Total)

	after := applied(sess, res)
	require.NotNil(t, after.PendingOrder)
	assert.Equal(t, "r2", after.PendingOrder.RestaurantID)
	require.Len(t, after.PendingOrder.Items, 1)
	assert.Equal(t, 2, after.PendingOrder.Items[0].Qty)
	assert.Equal(t, models.ContextConfirmOrder, after.ExpectedContext)

	// Same restaurant again: lines merge instead of replacing.
	res2, err := svc.Order(context.Background(), &Request{Session: after, Text: "jeszcze jeden kebab"})
	require.NoError(t, err)

	after2 := applied(after, res2)
	require.NotNil(t, after2.PendingOrder)
	require.Len(t, after2.PendingOrder.Items, 1)
	assert.Equal(t, 3, after2.PendingOrder.Items[0].Qty)
	assert.Equal(t, "60.00", after2.PendingOrder.Total)
}

func TestOrderAutoSwitchWarns(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r1", Name: "Bar Praha"}
	sess.LockedRestaurantID = "r1"

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam burger"})
	require.NoError(t, err)

	require.NotNil(t, res.Facts)
	require.NotEmpty(t, res.Facts.Notes)
	assert.Contains(t, res.Facts.Notes[0], "Tasty King")
	assert.Contains(t, res.Meta.Warnings, models.WarnDifferentRestaurant)

	after := applied(sess, res)
	require.NotNil(t, after.CurrentRestaurant)
	assert.Equal(t, "r2", after.CurrentRestaurant.ID)
	require.NotNil(t, after.PendingOrder)
	assert.Equal(t, "r2", after.PendingOrder.RestaurantID)
}

func TestOrderQuantityTooHigh(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam 60 kebab"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "Maksymalnie 50")
	after := applied(sess, res)
	assert.Nil(t, after.PendingOrder)
}

func TestOrderPriceBumpNote(t *testing.T) {
	svc, _, committer := newTestFood()
	committer.priceBump = map[string]float64{"m4": 23}

	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam kebab"})
	require.NoError(t, err)

	require.NotEmpty(t, res.Facts.Notes)
	assert.Contains(t, res.Facts.Notes[0], "23.00")
	assert.Contains(t, res.Meta.Warnings, models.WarnItemPriceIncreased)
	after := applied(sess, res)
	assert.Equal(t, 23.0, after.PendingOrder.Items[0].Price)
}

func TestOrderEmptyAsksForDish(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r2", Name: "Tasty King"}

	res, err := svc.Order(context.Background(), &Request{Session: sess, Text: "zamawiam"})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Co chcesz zamówić")
}

func confirmableSession() *models.Session {
	sess := newSession()
	sess.PendingOrder = &models.PendingOrder{
		RestaurantID:   "r1",
		RestaurantName: "Bar Praha",
		Items: []models.PendingItem{
			{ID: "m1", Name: "Pierogi ruskie", Price: 18, Qty: 2},
		},
		Total: "36.00",
	}
	sess.ExpectedContext = models.ContextConfirmOrder
	return sess
}

func TestConfirmOrderPersistsAndCloses(t *testing.T) {
	svc, _, committer := newTestFood()
	sess := confirmableSession()

	res, err := svc.ConfirmOrder(context.Background(), &Request{Session: sess, Text: "tak"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "Zamówienie przyjęte")
	assert.True(t, res.ConversationClosed)
	assert.NotEmpty(t, res.NewSessionID)
	assert.Equal(t, "ord-1", res.Meta.OrderID)
	assert.True(t, res.Meta.AddedToCart)
	assert.False(t, res.Meta.Skipped)

	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionShowCart, res.Actions[0].Type)
	payload, ok := res.Actions[0].Payload.(models.ShowCartPayload)
	require.True(t, ok)
	assert.Equal(t, "ord-1", payload.OrderID)
	assert.Equal(t, "36.00", payload.Total)

	after := applied(sess, res)
	require.Len(t, after.Cart, 1)
	assert.Equal(t, 2, after.Cart[0].Qty)
	assert.Nil(t, after.PendingOrder)
	assert.Empty(t, after.ExpectedContext)
	assert.True(t, after.IsClosed())
	assert.Equal(t, models.ClosedOrderConfirmed, after.ClosedReason)
	assert.Equal(t, res.NewSessionID, after.SuccessorID)
	assert.Equal(t, 1, committer.persisted)
}

func TestConfirmOrderDuplicateIsSkipped(t *testing.T) {
	svc, _, committer := newTestFood()
	sess := confirmableSession()

	first, err := svc.ConfirmOrder(context.Background(), &Request{Session: sess, Text: "tak"})
	require.NoError(t, err)

	// Same session snapshot again, as when a voice client retries.
	second, err := svc.ConfirmOrder(context.Background(), &Request{Session: sess, Text: "tak"})
	require.NoError(t, err)

	assert.Equal(t, first.Meta.OrderID, second.Meta.OrderID)
	assert.True(t, second.Meta.Skipped)
	assert.Equal(t, 1, committer.persisted)
}

func TestConfirmOrderValidationBlocksClose(t *testing.T) {
	svc, _, committer := newTestFood()
	committer.cartErr = models.NewValidationError(models.CodeMinOrderNotMet, "30.00", models.ErrMinOrderNotMet)
	sess := confirmableSession()

	res, err := svc.ConfirmOrder(context.Background(), &Request{Session: sess, Text: "tak"})
	require.NoError(t, err)

	assert.False(t, res.ConversationClosed)
	assert.Contains(t, res.Reply, "za mało")
	assert.Equal(t, models.CodeMinOrderNotMet, res.Meta.Outcome)

	after := applied(sess, res)
	require.NotNil(t, after.PendingOrder)
	assert.Equal(t, models.ContextConfirmOrder, after.ExpectedContext)
	assert.Empty(t, after.Cart)
	assert.Zero(t, committer.persisted)
}

func TestConfirmOrderPersistFailureStillCloses(t *testing.T) {
	svc, _, committer := newTestFood()
	committer.persistErr = errors.New("db down")
	sess := confirmableSession()

	res, err := svc.ConfirmOrder(context.Background(), &Request{Session: sess, Text: "tak"})
	require.NoError(t, err)

	assert.True(t, res.ConversationClosed)
	assert.Empty(t, res.Meta.OrderID)
	assert.NotEmpty(t, res.NewSessionID)

	after := applied(sess, res)
	assert.True(t, after.IsClosed())
	assert.Len(t, after.Cart, 1)
}

func TestConfirmOrderNothingPending(t *testing.T) {
	svc, _, _ := newTestFood()

	res, err := svc.ConfirmOrder(context.Background(), &Request{Session: newSession(), Text: "tak"})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Nie mam nic do potwierdzenia")
	assert.False(t, res.ConversationClosed)
}

func TestConfirmAddToCartClosesSession(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r1", Name: "Bar Praha"}
	sess.PendingDish = "pierogi"

	res, err := svc.ConfirmAddToCart(context.Background(), &Request{Session: sess, Text: "dodaj do koszyka"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "Pierogi ruskie")
	assert.True(t, res.ConversationClosed)
	assert.NotEmpty(t, res.NewSessionID)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.ActionAddToCart, res.Actions[0].Type)

	after := applied(sess, res)
	assert.True(t, after.IsClosed())
	assert.Equal(t, models.ClosedCartItemAdded, after.ClosedReason)
	assert.Equal(t, res.NewSessionID, after.SuccessorID)
	assert.Empty(t, after.Cart)
}

func TestCancelOrderClearsPending(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := confirmableSession()

	res, err := svc.CancelOrder(context.Background(), &Request{Session: sess, Text: "nie"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "anulowałam")
	after := applied(sess, res)
	assert.Nil(t, after.PendingOrder)
	assert.Empty(t, after.ExpectedContext)
}

func TestShowMoreReturnsFullList(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.LastLocation = "Bytom"
	for i := 1; i <= 5; i++ {
		sess.LastRestaurantsList = append(sess.LastRestaurantsList, models.RestaurantListItem{
			Index:      i,
			Restaurant: models.Restaurant{ID: fmt.Sprintf("r%d", i), Name: fmt.Sprintf("Bar %d", i)},
		})
	}

	res, err := svc.ShowMore(context.Background(), &Request{Session: sess, Text: "pokaż więcej"})
	require.NoError(t, err)

	assert.Len(t, res.Restaurants, 5)
	assert.Equal(t, surfaces.KeyChooseRestaurant, res.SurfaceKey)
	assert.Equal(t, 5, res.Facts.Count)

	after := applied(sess, res)
	assert.Equal(t, models.ContextSelectRestaurant, after.ExpectedContext)
}

func TestRecommendFromCurrentRestaurant(t *testing.T) {
	svc, _, _ := newTestFood()
	sess := newSession()
	sess.CurrentRestaurant = &models.RestaurantRef{ID: "r1", Name: "Bar Praha"}

	res, err := svc.Recommend(context.Background(), &Request{Session: sess, Text: "co polecasz"})
	require.NoError(t, err)

	assert.Contains(t, res.Reply, "polecam")
	assert.NotEmpty(t, res.MenuItems)
	assert.LessOrEqual(t, len(res.MenuItems), genericListLimit)
}
