package models

import "time"

// SessionStatus is the lifecycle state of a conversation session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Closure reasons stamped when a session transitions to closed.
const (
	ClosedCartItemAdded  = "CART_ITEM_ADDED"
	ClosedOrderConfirmed = "ORDER_CONFIRMED"
)

// DialogStackEntry snapshots one navigable dialog state for "wróć". The
// facts are held by value; entries never point back at the session.
type DialogStackEntry struct {
	SurfaceKey  string               `json:"surface_key,omitempty"`
	Intent      string               `json:"intent"`
	Reply       string               `json:"reply"`
	Restaurants []RestaurantListItem `json:"restaurants,omitempty"`
	MenuItems   []MenuItem           `json:"menuItems,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// TurnRecord is one exchange kept in the short conversation buffer.
type TurnRecord struct {
	UserText string    `json:"user_text"`
	Reply    string    `json:"reply"`
	Intent   string    `json:"intent"`
	At       time.Time `json:"at"`
}

// EntityCacheEntry keeps the last entity lists shown to the user so that
// ordinal references ("ta druga") resolve against what was actually said.
type EntityCacheEntry struct {
	Kind      string    `json:"kind"`
	IDs       []string  `json:"ids"`
	Names     []string  `json:"names"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entity cache kinds.
const (
	EntityKindRestaurants = "restaurants"
	EntityKindMenuItems   = "menu_items"
)

// Session is the single mutable record of one conversation. All access
// goes through the session store, which serializes turns per session.
type Session struct {
	ID           string        `json:"id"`
	Status       SessionStatus `json:"status"`
	ClosedReason string        `json:"closed_reason,omitempty"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
	SuccessorID  string        `json:"successor_id,omitempty"`

	LastIntent      string `json:"last_intent,omitempty"`
	ExpectedContext string `json:"expected_context,omitempty"`
	Awaiting        string `json:"awaiting,omitempty"`
	DialogFocus     string `json:"dialog_focus,omitempty"`

	CurrentRestaurant  *RestaurantRef `json:"current_restaurant,omitempty"`
	LastRestaurant     *RestaurantRef `json:"last_restaurant,omitempty"`
	LockedRestaurantID string         `json:"locked_restaurant_id,omitempty"`

	LastLocation    string `json:"last_location,omitempty"`
	LastCuisineType string `json:"last_cuisine_type,omitempty"`

	LastRestaurantsList []RestaurantListItem `json:"last_restaurants_list,omitempty"`
	LastMenu            []MenuItem           `json:"last_menu,omitempty"`
	LastMenuRestaurant  string               `json:"last_menu_restaurant,omitempty"`
	ListOffset          int                  `json:"list_offset,omitempty"`

	PendingDish  string        `json:"pending_dish,omitempty"`
	PendingOrder *PendingOrder `json:"pending_order,omitempty"`
	Cart         []CartItem    `json:"cart,omitempty"`

	DialogStack      []DialogStackEntry          `json:"dialog_stack,omitempty"`
	DialogStackIndex int                         `json:"dialog_stack_index"`
	TurnBuffer       []TurnRecord                `json:"turn_buffer,omitempty"`
	EntityCache      map[string]EntityCacheEntry `json:"entity_cache,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// IsClosed reports whether the session refuses further turns.
func (s *Session) IsClosed() bool {
	return s.Status == SessionClosed
}

// Mutation is a deferred session edit produced by a handler. Handlers never
// touch the session directly; the orchestrator applies mutations in order
// under the session lock so a turn's updates land atomically.
type Mutation func(*Session)

// Apply runs mutations in order against the session.
func (s *Session) Apply(muts []Mutation) {
	for _, m := range muts {
		if m != nil {
			m(s)
		}
	}
}

// SetIntent records the intent that just handled a turn.
func SetIntent(intent string) Mutation {
	return func(s *Session) { s.LastIntent = intent }
}

// SetExpectedContext arms a one-turn context lock; empty clears it.
func SetExpectedContext(ctx string) Mutation {
	return func(s *Session) { s.ExpectedContext = ctx }
}

// SetAwaiting marks the slot the dialog is waiting for; empty clears it.
func SetAwaiting(v string) Mutation {
	return func(s *Session) { s.Awaiting = v }
}

// SetDialogFocus moves the coarse dialog focus.
func SetDialogFocus(v string) Mutation {
	return func(s *Session) { s.DialogFocus = v }
}

// SetCurrentRestaurant selects a restaurant and remembers it as the last one.
func SetCurrentRestaurant(r *RestaurantRef) Mutation {
	return func(s *Session) {
		s.CurrentRestaurant = r
		if r != nil {
			s.LastRestaurant = r
		}
	}
}

// SetLockedRestaurant pins dish searches to one restaurant; empty unlocks.
func SetLockedRestaurant(id string) Mutation {
	return func(s *Session) { s.LockedRestaurantID = id }
}

// SetLastLocation remembers the city used for the latest search.
func SetLastLocation(city string) Mutation {
	return func(s *Session) { s.LastLocation = city }
}

// SetLastCuisine remembers the cuisine used for the latest search.
func SetLastCuisine(c string) Mutation {
	return func(s *Session) { s.LastCuisineType = c }
}

// SetRestaurantsList replaces the displayed restaurant list and refreshes
// the restaurants entity cache so ordinals track what is on screen.
func SetRestaurantsList(list []RestaurantListItem) Mutation {
	return func(s *Session) {
		s.LastRestaurantsList = list
		ids := make([]string, len(list))
		names := make([]string, len(list))
		for i, it := range list {
			ids[i] = it.ID
			names[i] = it.Name
		}
		s.cacheEntities(EntityKindRestaurants, ids, names)
	}
}

// SetMenu replaces the displayed menu and refreshes the menu entity cache.
func SetMenu(restaurantID string, items []MenuItem) Mutation {
	return func(s *Session) {
		s.LastMenu = items
		s.LastMenuRestaurant = restaurantID
		ids := make([]string, len(items))
		names := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
			names[i] = it.Name
		}
		s.cacheEntities(EntityKindMenuItems, ids, names)
	}
}

// SetListOffset tracks pagination for "pokaż więcej".
func SetListOffset(n int) Mutation {
	return func(s *Session) { s.ListOffset = n }
}

// SetPendingDish remembers a dish that still needs a restaurant.
func SetPendingDish(dish string) Mutation {
	return func(s *Session) { s.PendingDish = dish }
}

// SetPendingOrder stages or clears the order awaiting confirmation.
func SetPendingOrder(p *PendingOrder) Mutation {
	return func(s *Session) { s.PendingOrder = p }
}

// AppendCart commits lines to the cart.
func AppendCart(items []CartItem) Mutation {
	return func(s *Session) { s.Cart = append(s.Cart, items...) }
}

func (s *Session) cacheEntities(kind string, ids, names []string) {
	if s.EntityCache == nil {
		s.EntityCache = make(map[string]EntityCacheEntry, 2)
	}
	s.EntityCache[kind] = EntityCacheEntry{Kind: kind, IDs: ids, Names: names, UpdatedAt: time.Now()}
}

// EntityAt resolves a 1-based ordinal against a cached entity list.
func (s *Session) EntityAt(kind string, ordinal int) (id, name string, ok bool) {
	entry, found := s.EntityCache[kind]
	if !found || ordinal < 1 || ordinal > len(entry.IDs) {
		return "", "", false
	}
	return entry.IDs[ordinal-1], entry.Names[ordinal-1], true
}
