// Package orders validates cart candidates against the live catalog and
// persists confirmed orders exactly once per session and item set.
package orders

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// MaxItemQty is the hard ceiling for one order line.
const MaxItemQty = 50

// StatusConfirmed is the only status this engine writes.
const StatusConfirmed = "confirmed"

const priceDriftTolerance = 0.01

type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// ValidateItemBeforeAdd normalizes one candidate line. Quantity below one is
// silently fixed, quantity above the cap is an error. The catalog price and
// canonical name always win; a drift upward additionally raises a warning
// so the reply can mention the new price.
func (s *Service) ValidateItemBeforeAdd(ctx context.Context, item models.PendingItem) (models.PendingItem, []string, error) {
	if item.Qty < 1 {
		item.Qty = 1
	}
	if item.Qty > MaxItemQty {
		return item, nil, models.NewValidationError(models.CodeQuantityTooHigh,
			fmt.Sprintf("%d > %d", item.Qty, MaxItemQty), models.ErrQuantityTooHigh)
	}

	dbItem, err := s.repo.GetMenuItem(ctx, item.ID)
	if errors.Is(err, models.ErrNotFound) {
		return item, nil, models.NewValidationError(models.CodeItemNotAvailable, item.Name, models.ErrItemNotAvailable)
	}
	if err != nil {
		return item, nil, err
	}
	if !dbItem.Available {
		return item, nil, models.NewValidationError(models.CodeItemNotAvailable, dbItem.Name, models.ErrItemNotAvailable)
	}

	var warnings []string
	if dbItem.Price-item.Price > priceDriftTolerance {
		warnings = append(warnings, models.WarnItemPriceIncreased)
		s.logger.Warn("menu price increased since the item was quoted",
			zap.String("menu_item_id", dbItem.ID),
			zap.Float64("quoted", item.Price),
			zap.Float64("current", dbItem.Price))
	}
	item.Name = dbItem.Name
	item.Price = dbItem.Price
	return item, warnings, nil
}

// ValidateCartBeforeCheckout enforces the commit invariants: one restaurant,
// restaurant open, minimum order met. Returns the restaurant so the caller
// does not fetch it twice.
func (s *Service) ValidateCartBeforeCheckout(ctx context.Context, items []models.CartItem) (*models.Restaurant, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError(models.CodeEmptyCart, "", models.ErrEmptyCart)
	}

	restaurantID := items[0].RestaurantID
	for _, it := range items[1:] {
		if it.RestaurantID != restaurantID {
			return nil, models.NewValidationError(models.CodeMixedRestaurants,
				fmt.Sprintf("%s vs %s", restaurantID, it.RestaurantID), models.ErrMixedRestaurants)
		}
	}

	rest, err := s.repo.GetRestaurant(ctx, restaurantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewValidationError(models.CodeRestaurantClosed, restaurantID, models.ErrRestaurantClosed)
	}
	if err != nil {
		return nil, err
	}
	if !rest.IsOpen {
		return nil, models.NewValidationError(models.CodeRestaurantClosed, rest.Name, models.ErrRestaurantClosed)
	}

	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Qty)
	}
	if total < rest.MinOrderPLN {
		return nil, models.NewValidationError(models.CodeMinOrderNotMet,
			fmt.Sprintf("%.2f < %.2f", total, rest.MinOrderPLN), models.ErrMinOrderNotMet)
	}
	return rest, nil
}

// PersistResult reports what persistence did. Skipped means an identical
// order from the same session already exists and no new row was written.
type PersistResult struct {
	OrderID string
	Skipped bool
}

// PersistOrder writes a confirmed order or returns the one a retried turn
// already wrote. Callers log failures and keep the conversational reply;
// persistence never blocks the dialog.
func (s *Service) PersistOrder(ctx context.Context, sessionID, userID string, pending *models.PendingOrder) (*PersistResult, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "PersistOrder")
	defer span.End()

	key := IdempotencyKey(sessionID, pending.Items)
	span.SetAttributes(attribute.String("idempotency_key", key))

	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err == nil {
		s.logger.Info("duplicate order suppressed",
			zap.String("session_id", sessionID),
			zap.String("order_id", existing.ID))
		span.SetStatus(codes.Ok, "duplicate suppressed")
		return &PersistResult{OrderID: existing.ID, Skipped: true}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "idempotency lookup failed")
		return nil, err
	}

	rec := &models.OrderRecord{
		UserID:         userID,
		RestaurantID:   pending.RestaurantID,
		RestaurantName: pending.RestaurantName,
		SessionID:      sessionID,
		IdempotencyKey: key,
		Items:          orderLines(pending.Items),
		TotalPrice:     pending.TotalPLN(),
		TotalCents:     models.PriceToCents(pending.TotalPLN()),
		Status:         StatusConfirmed,
		CreatedAt:      s.now().UTC(),
	}

	id, err := s.repo.InsertOrder(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("order_id", id))
	span.SetStatus(codes.Ok, "order persisted")
	return &PersistResult{OrderID: id}, nil
}

func orderLines(items []models.PendingItem) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, models.OrderLine{
			MenuItemID:     it.ID,
			Name:           it.Name,
			UnitPriceCents: models.PriceToCents(it.Price),
			Qty:            it.Qty,
		})
	}
	return lines
}

type keyItem struct {
	Name  string  `json:"name"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

type keyPayload struct {
	SessionID string    `json:"sessionId"`
	Items     []keyItem `json:"items"`
}

// IdempotencyKey hashes the session id plus the sorted item lines. Two
// turns carrying the same items in any order produce the same key.
func IdempotencyKey(sessionID string, items []models.PendingItem) string {
	sorted := make([]keyItem, 0, len(items))
	for _, it := range items {
		sorted = append(sorted, keyItem{Name: it.Name, Qty: it.Qty, Price: it.Price})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		if sorted[i].Qty != sorted[j].Qty {
			return sorted[i].Qty < sorted[j].Qty
		}
		return sorted[i].Price < sorted[j].Price
	})

	payload, _ := json.Marshal(keyPayload{SessionID: sessionID, Items: sorted})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
