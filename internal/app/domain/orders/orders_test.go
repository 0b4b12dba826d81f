package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

type fakeOrdersRepo struct {
	menu       map[string]*models.MenuItem
	restaurant *models.Restaurant
	byKey      map[string]*models.OrderRecord
	inserted   []*models.OrderRecord
}

func (f *fakeOrdersRepo) GetMenuItem(_ context.Context, id string) (*models.MenuItem, error) {
	if it, ok := f.menu[id]; ok {
		return it, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeOrdersRepo) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	if f.restaurant != nil && f.restaurant.ID == id {
		return f.restaurant, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeOrdersRepo) FindByIdempotencyKey(_ context.Context, key string) (*models.OrderRecord, error) {
	if rec, ok := f.byKey[key]; ok {
		return rec, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeOrdersRepo) InsertOrder(_ context.Context, rec *models.OrderRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	f.inserted = append(f.inserted, rec)
	return rec.ID, nil
}

func newTestService(repo *fakeOrdersRepo) *Service {
	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestValidateItemBeforeAddFixesLowQuantity(t *testing.T) {
	repo := &fakeOrdersRepo{menu: map[string]*models.MenuItem{
		"mi-1": {ID: "mi-1", Name: "Pad Thai", Price: 32.00, Available: true},
	}}
	svc := newTestService(repo)

	item, warnings, err := svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-1", Name: "pad thai", Price: 32.00, Qty: 0})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 1, item.Qty)
	assert.Equal(t, "Pad Thai", item.Name)
}

func TestValidateItemBeforeAddRejectsHugeQuantity(t *testing.T) {
	svc := newTestService(&fakeOrdersRepo{})

	_, _, err := svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-1", Qty: 51})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrQuantityTooHigh)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.CodeQuantityTooHigh, verr.Code)
}

func TestValidateItemBeforeAddUnknownOrUnavailable(t *testing.T) {
	repo := &fakeOrdersRepo{menu: map[string]*models.MenuItem{
		"mi-off": {ID: "mi-off", Name: "Zupa dnia", Price: 12.00, Available: false},
	}}
	svc := newTestService(repo)

	_, _, err := svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "missing", Qty: 1})
	assert.ErrorIs(t, err, models.ErrItemNotAvailable)

	_, _, err = svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-off", Qty: 1})
	assert.ErrorIs(t, err, models.ErrItemNotAvailable)
}

func TestValidateItemBeforeAddAdoptsCatalogPrice(t *testing.T) {
	repo := &fakeOrdersRepo{menu: map[string]*models.MenuItem{
		"mi-1": {ID: "mi-1", Name: "Pizza Margherita", Price: 28.00, Available: true},
	}}
	svc := newTestService(repo)

	// Price went up since the quote: warn and adopt.
	item, warnings, err := svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-1", Name: "pizza", Price: 25.00, Qty: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{models.WarnItemPriceIncreased}, warnings)
	assert.Equal(t, 28.00, item.Price)

	// Price went down: adopt silently.
	item, warnings, err = svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-1", Price: 30.00, Qty: 1})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, 28.00, item.Price)

	// Sub-grosz drift is noise, not an increase.
	_, warnings, err = svc.ValidateItemBeforeAdd(context.Background(), models.PendingItem{ID: "mi-1", Price: 27.995, Qty: 1})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateCartBeforeCheckout(t *testing.T) {
	open := &models.Restaurant{ID: "r1", Name: "Bar Praha", IsOpen: true, MinOrderPLN: 30.00}
	line := func(rest string, price float64, qty int) models.CartItem {
		return models.CartItem{MenuItemID: "mi", RestaurantID: rest, Name: "Danie", Price: price, Qty: qty}
	}

	t.Run("empty cart", func(t *testing.T) {
		svc := newTestService(&fakeOrdersRepo{restaurant: open})
		_, err := svc.ValidateCartBeforeCheckout(context.Background(), nil)
		assert.ErrorIs(t, err, models.ErrEmptyCart)
	})

	t.Run("mixed restaurants", func(t *testing.T) {
		svc := newTestService(&fakeOrdersRepo{restaurant: open})
		_, err := svc.ValidateCartBeforeCheckout(context.Background(), []models.CartItem{line("r1", 20, 1), line("r2", 20, 1)})
		assert.ErrorIs(t, err, models.ErrMixedRestaurants)
	})

	t.Run("restaurant missing counts as closed", func(t *testing.T) {
		svc := newTestService(&fakeOrdersRepo{})
		_, err := svc.ValidateCartBeforeCheckout(context.Background(), []models.CartItem{line("r1", 40, 1)})
		assert.ErrorIs(t, err, models.ErrRestaurantClosed)
	})

	t.Run("restaurant closed", func(t *testing.T) {
		closed := &models.Restaurant{ID: "r1", Name: "Bar Praha", IsOpen: false}
		svc := newTestService(&fakeOrdersRepo{restaurant: closed})
		_, err := svc.ValidateCartBeforeCheckout(context.Background(), []models.CartItem{line("r1", 40, 1)})
		assert.ErrorIs(t, err, models.ErrRestaurantClosed)
	})

	t.Run("below minimum order", func(t *testing.T) {
		svc := newTestService(&fakeOrdersRepo{restaurant: open})
		_, err := svc.ValidateCartBeforeCheckout(context.Background(), []models.CartItem{line("r1", 12.00, 2)})
		assert.ErrorIs(t, err, models.ErrMinOrderNotMet)
	})

	t.Run("valid cart returns restaurant", func(t *testing.T) {
		svc := newTestService(&fakeOrdersRepo{restaurant: open})
		rest, err := svc.ValidateCartBeforeCheckout(context.Background(), []models.CartItem{line("r1", 16.00, 2)})
		require.NoError(t, err)
		assert.Equal(t, "Bar Praha", rest.Name)
	})
}

func TestIdempotencyKeyStableAcrossItemOrder(t *testing.T) {
	a := []models.PendingItem{
		{Name: "Pad Thai", Price: 32.00, Qty: 1},
		{Name: "Zupa Pho", Price: 25.00, Qty: 2},
	}
	b := []models.PendingItem{
		{Name: "Zupa Pho", Price: 25.00, Qty: 2},
		{Name: "Pad Thai", Price: 32.00, Qty: 1},
	}

	assert.Equal(t, IdempotencyKey("sess_1", a), IdempotencyKey("sess_1", b))
	assert.NotEqual(t, IdempotencyKey("sess_1", a), IdempotencyKey("sess_2", a))

	bumped := []models.PendingItem{
		{Name: "Pad Thai", Price: 32.00, Qty: 2},
		{Name: "Zupa Pho", Price: 25.00, Qty: 2},
	}
	assert.NotEqual(t, IdempotencyKey("sess_1", a), IdempotencyKey("sess_1", bumped))
}

func TestPersistOrderWritesRecord(t *testing.T) {
	repo := &fakeOrdersRepo{byKey: map[string]*models.OrderRecord{}}
	svc := newTestService(repo)

	pending := &models.PendingOrder{
		RestaurantID:   "r1",
		RestaurantName: "Bar Praha",
		Items: []models.PendingItem{
			{ID: "mi-1", Name: "Pad Thai", Price: 32.00, Qty: 2},
		},
	}

	res, err := svc.PersistOrder(context.Background(), "sess_1", "", pending)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.OrderID)

	require.Len(t, repo.inserted, 1)
	rec := repo.inserted[0]
	assert.Equal(t, "sess_1", rec.SessionID)
	assert.Equal(t, StatusConfirmed, rec.Status)
	assert.Equal(t, 64.00, rec.TotalPrice)
	assert.Equal(t, int64(6400), rec.TotalCents)
	assert.Equal(t, IdempotencyKey("sess_1", pending.Items), rec.IdempotencyKey)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, int64(3200), rec.Items[0].UnitPriceCents)
}

func TestPersistOrderSkipsDuplicate(t *testing.T) {
	pending := &models.PendingOrder{
		RestaurantID:   "r1",
		RestaurantName: "Bar Praha",
		Items:          []models.PendingItem{{ID: "mi-1", Name: "Pad Thai", Price: 32.00, Qty: 1}},
	}
	key := IdempotencyKey("sess_1", pending.Items)

	repo := &fakeOrdersRepo{byKey: map[string]*models.OrderRecord{
		key: {ID: "ord-first", IdempotencyKey: key},
	}}
	svc := newTestService(repo)

	res, err := svc.PersistOrder(context.Background(), "sess_1", "", pending)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "ord-first", res.OrderID)
	assert.Empty(t, repo.inserted)
}
