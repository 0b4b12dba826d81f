package models

import (
	"fmt"
	"math"
	"time"
)

// Restaurant is a catalog record. Aliases are alternative spoken names
// ("u bronka", "praha") used by the NLU binding layer.
type Restaurant struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	City        string   `json:"city"`
	CuisineType string   `json:"cuisine_type"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	IsOpen      bool     `json:"is_open"`
	MinOrderPLN float64  `json:"min_order_pln"`
	Distance    *float64 `json:"distance,omitempty"`
}

// Ref trims a Restaurant down to the fields sessions carry around.
func (r Restaurant) Ref() *RestaurantRef {
	return &RestaurantRef{ID: r.ID, Name: r.Name, City: r.City}
}

// RestaurantRef is the session-resident shape of a selected restaurant.
type RestaurantRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// RestaurantListItem is an entry of last_restaurants_list. Index is 1-based
// and stable while the list is displayed.
type RestaurantListItem struct {
	Index int `json:"index"`
	Restaurant
}

// MenuItem is a catalog dish.
type MenuItem struct {
	ID           string   `json:"id"`
	RestaurantID string   `json:"restaurant_id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Category     string   `json:"category"`
	Available    bool     `json:"available"`
	Size         string   `json:"size,omitempty"`
	Extras       []string `json:"extras,omitempty"`
}

// Entities is everything the NLU extracted from one utterance.
type Entities struct {
	Restaurant  *RestaurantRef       `json:"restaurant,omitempty"`
	Location    string               `json:"location,omitempty"`
	Cuisine     string               `json:"cuisine,omitempty"`
	Dish        string               `json:"dish,omitempty"`
	Items       []RequestedItem      `json:"items,omitempty"`
	Quantity    int                  `json:"quantity,omitempty"`
	ParsedOrder *ParsedOrder         `json:"parsedOrder,omitempty"`
	Options     []RestaurantListItem `json:"options,omitempty"`
	RawText     string               `json:"rawText,omitempty"`
}

// RequestedItem is a dish the user asked for before catalog resolution.
type RequestedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ParsedOrder groups requested items by the restaurant they resolved to.
type ParsedOrder struct {
	Any    bool          `json:"any"`
	Groups []ParsedGroup `json:"groups"`
}

type ParsedGroup struct {
	RestaurantID   string       `json:"restaurant_id,omitempty"`
	RestaurantName string       `json:"restaurant_name,omitempty"`
	Items          []ParsedItem `json:"items"`
}

type ParsedItem struct {
	MenuItemID string   `json:"menuItemId,omitempty"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Qty        int      `json:"qty"`
	Size       string   `json:"size,omitempty"`
	Extras     []string `json:"extras,omitempty"`
}

// PendingOrder is the cart candidate awaiting a "tak" on confirm_order.
type PendingOrder struct {
	RestaurantID   string        `json:"restaurant_id"`
	RestaurantName string        `json:"restaurant"`
	Items          []PendingItem `json:"items"`
	Total          string        `json:"total"`
}

type PendingItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// TotalPLN recomputes the money total from the item lines.
func (p *PendingOrder) TotalPLN() float64 {
	var sum float64
	for _, it := range p.Items {
		sum += it.Price * float64(it.Qty)
	}
	return math.Round(sum*100) / 100
}

// FormatPLN renders an amount the way replies and pendingOrder.total carry it.
func FormatPLN(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// CartItem is a committed cart line; only confirm_order appends these.
type CartItem struct {
	MenuItemID   string  `json:"menu_item_id"`
	RestaurantID string  `json:"restaurant_id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Qty          int     `json:"qty"`
}

// OrderRecord is the persisted shape of a confirmed order.
type OrderRecord struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id,omitempty"`
	RestaurantID   string      `json:"restaurant_id"`
	RestaurantName string      `json:"restaurant_name"`
	SessionID      string      `json:"session_id"`
	IdempotencyKey string      `json:"idempotency_key"`
	Items          []OrderLine `json:"items"`
	TotalPrice     float64     `json:"total_price"`
	TotalCents     int64       `json:"total_cents"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderLine stores unit price in cents for analytics precision.
type OrderLine struct {
	MenuItemID     string `json:"menu_item_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

// PriceToCents converts a PLN float to integer grosze.
func PriceToCents(pln float64) int64 {
	return int64(math.Round(pln * 100))
}

// Action is a machine-readable instruction for the client UI.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Action types emitted by handlers.
const (
	ActionShowCart    = "SHOW_CART"
	ActionAddToCart   = "add_to_cart"
	ActionCreateOrder = "create_order"
)

// CreateOrderPayload rides on a synthetic create_order action when a
// restaurant selection completes a remembered dish.
type CreateOrderPayload struct {
	Restaurant *RestaurantRef  `json:"restaurant"`
	Items      []RequestedItem `json:"items"`
}

// ShowCartPayload accompanies SHOW_CART after a confirmed order.
type ShowCartPayload struct {
	OrderID string     `json:"order_id"`
	Items   []CartItem `json:"items"`
	Total   string     `json:"total"`
}
