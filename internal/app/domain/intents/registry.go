// Package intents is the capability map: one declarative table that gates
// every intent against session state and is the single source of truth
// for fallbacks, cart-mutation policy and legacy blocking.
package intents

import (
	"sort"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// Handler domains.
const (
	DomainFood     = "food"
	DomainOrdering = "ordering"
	DomainSystem   = "system"
)

// Predicate checks whether the session and extracted entities satisfy an
// intent's required state. A nil predicate means always allowed.
type Predicate func(s *models.Session, ents *models.Entities) bool

// Capability defines one intent's contract.
type Capability struct {
	Intent             string
	Domain             string
	RequiredState      Predicate
	AllowedTransitions []string
	SetsState          []string
	FallbackIntent     string
	MutatesCart        bool
	HardBlockLegacy    bool
}

// Registry holds all capabilities keyed by intent.
type Registry struct {
	caps map[string]*Capability
}

// NewRegistry creates and initializes the capability registry.
func NewRegistry() *Registry {
	r := &Registry{caps: make(map[string]*Capability)}
	r.registerAll()
	return r
}

// Get returns the capability for an intent.
func (r *Registry) Get(intent string) (*Capability, bool) {
	c, ok := r.caps[intent]
	return c, ok
}

// Known reports whether the intent exists in the map.
func (r *Registry) Known(intent string) bool {
	_, ok := r.caps[intent]
	return ok
}

// CheckRequiredState evaluates the intent's predicate. Unknown intents
// fail the check so the caller falls back.
func (r *Registry) CheckRequiredState(intent string, s *models.Session, ents *models.Entities) bool {
	c, ok := r.caps[intent]
	if !ok {
		return false
	}
	if c.RequiredState == nil {
		return true
	}
	return c.RequiredState(s, ents)
}

// Fallback returns the substitute intent for a failed gate; empty string
// means the intent is silently ignored.
func (r *Registry) Fallback(intent string) string {
	if c, ok := r.caps[intent]; ok {
		return c.FallbackIntent
	}
	return models.IntentFindNearby
}

// MutatesCart reports the cart-mutation flag.
func (r *Registry) MutatesCart(intent string) bool {
	c, ok := r.caps[intent]
	return ok && c.MutatesCart
}

// HardBlockLegacy reports whether a legacy-classifier hit on this intent
// must be demoted to its fallback.
func (r *Registry) HardBlockLegacy(intent string) bool {
	c, ok := r.caps[intent]
	return ok && c.HardBlockLegacy
}

// Domain returns the handler domain for an intent, DomainSystem when
// unknown.
func (r *Registry) Domain(intent string) string {
	if c, ok := r.caps[intent]; ok {
		return c.Domain
	}
	return DomainSystem
}

// Intents lists all registered intent names, sorted, for constraining the
// LLM tier.
func (r *Registry) Intents() []string {
	out := make([]string, 0, len(r.caps))
	for name := range r.caps {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) register(c *Capability) {
	r.caps[c.Intent] = c
}

// Predicate combinators and building blocks.

func or(ps ...Predicate) Predicate {
	return func(s *models.Session, ents *models.Entities) bool {
		for _, p := range ps {
			if p(s, ents) {
				return true
			}
		}
		return false
	}
}

func and(ps ...Predicate) Predicate {
	return func(s *models.Session, ents *models.Entities) bool {
		for _, p := range ps {
			if !p(s, ents) {
				return false
			}
		}
		return true
	}
}

func hasCurrentRestaurant(s *models.Session, _ *models.Entities) bool {
	return s != nil && s.CurrentRestaurant != nil
}

func hasLastRestaurant(s *models.Session, _ *models.Entities) bool {
	return s != nil && s.LastRestaurant != nil
}

func hasRestaurantsList(s *models.Session, _ *models.Entities) bool {
	return s != nil && len(s.LastRestaurantsList) > 0
}

func hasPendingOrder(s *models.Session, _ *models.Entities) bool {
	return s != nil && s.PendingOrder != nil && len(s.PendingOrder.Items) > 0
}

func expectingConfirmOrder(s *models.Session, _ *models.Entities) bool {
	return s != nil && s.ExpectedContext == models.ContextConfirmOrder
}

func hasPendingDish(s *models.Session, _ *models.Entities) bool {
	return s != nil && s.PendingDish != ""
}

func hasEntityDish(_ *models.Session, ents *models.Entities) bool {
	return ents != nil && (ents.Dish != "" || len(ents.Items) > 0)
}

func hasEntityRestaurant(_ *models.Session, ents *models.Entities) bool {
	return ents != nil && ents.Restaurant != nil && ents.Restaurant.ID != ""
}

func registryEntries() []*Capability {
	return []*Capability{
		{
			Intent: models.IntentFindNearby,
			Domain: DomainFood,
			AllowedTransitions: []string{
				models.IntentSelectRestaurant, models.IntentMenuRequest,
				models.IntentCreateOrder, models.IntentShowMoreOptions,
			},
			SetsState: []string{"last_restaurants_list", "last_location", "lastCuisineType", "expectedContext"},
		},
		{
			Intent:             models.IntentRecommend,
			Domain:             DomainFood,
			AllowedTransitions: []string{models.IntentSelectRestaurant, models.IntentMenuRequest},
			SetsState:          []string{"last_restaurants_list", "expectedContext"},
		},
		{
			Intent:             models.IntentMenuRequest,
			Domain:             DomainFood,
			RequiredState:      or(hasCurrentRestaurant, hasEntityRestaurant),
			FallbackIntent:     models.IntentFindNearby,
			AllowedTransitions: []string{models.IntentCreateOrder, models.IntentSelectRestaurant},
			SetsState:          []string{"lastMenu", "expectedContext"},
		},
		{
			Intent:             models.IntentSelectRestaurant,
			Domain:             DomainFood,
			RequiredState:      or(hasRestaurantsList, hasEntityRestaurant),
			FallbackIntent:     models.IntentFindNearby,
			AllowedTransitions: []string{models.IntentMenuRequest, models.IntentCreateOrder},
			SetsState:          []string{"currentRestaurant", "lockedRestaurantId", "pendingDish"},
		},
		{
			Intent:             models.IntentChooseRestaurant,
			Domain:             DomainFood,
			FallbackIntent:     models.IntentFindNearby,
			AllowedTransitions: []string{models.IntentSelectRestaurant},
			SetsState:          []string{"last_restaurants_list", "pendingDish", "expectedContext"},
		},
		{
			Intent:             models.IntentConfirmRest,
			Domain:             DomainFood,
			RequiredState:      or(hasCurrentRestaurant, hasLastRestaurant),
			FallbackIntent:     models.IntentFindNearby,
			AllowedTransitions: []string{models.IntentMenuRequest, models.IntentCreateOrder},
			SetsState:          []string{"currentRestaurant", "expectedContext"},
		},
		{
			Intent:             models.IntentShowMoreOptions,
			Domain:             DomainFood,
			RequiredState:      hasRestaurantsList,
			FallbackIntent:     models.IntentFindNearby,
			AllowedTransitions: []string{models.IntentSelectRestaurant},
			SetsState:          []string{"expectedContext"},
		},
		{
			Intent:             models.IntentCreateOrder,
			Domain:             DomainFood,
			RequiredState:      or(hasCurrentRestaurant, hasLastRestaurant, hasEntityRestaurant),
			FallbackIntent:     models.IntentFindNearby,
			HardBlockLegacy:    true,
			AllowedTransitions: []string{models.IntentConfirmOrder, models.IntentCancelOrder},
			SetsState:          []string{"pendingOrder", "expectedContext"},
		},
		{
			Intent:             models.IntentConfirmOrder,
			Domain:             DomainOrdering,
			RequiredState:      and(hasPendingOrder, expectingConfirmOrder),
			FallbackIntent:     "",
			MutatesCart:        true,
			AllowedTransitions: []string{models.IntentNewOrder},
			SetsState:          []string{"cart", "pendingOrder", "expectedContext", "status"},
		},
		{
			Intent:             models.IntentConfirmAddToCart,
			Domain:             DomainOrdering,
			RequiredState:      or(hasPendingDish, hasEntityDish),
			FallbackIntent:     models.IntentFindNearby,
			HardBlockLegacy:    true,
			AllowedTransitions: []string{models.IntentNewOrder},
			SetsState:          []string{"status", "closedReason"},
		},
		{
			Intent:             models.IntentCancelOrder,
			Domain:             DomainOrdering,
			AllowedTransitions: []string{models.IntentFindNearby},
			SetsState:          []string{"pendingOrder", "expectedContext"},
		},
		{
			Intent:             models.IntentNewOrder,
			Domain:             DomainSystem,
			AllowedTransitions: []string{models.IntentFindNearby},
			SetsState:          []string{"status", "expectedContext"},
		},
		{
			Intent:             models.IntentStartOver,
			Domain:             DomainSystem,
			AllowedTransitions: []string{models.IntentFindNearby},
			SetsState:          []string{"status", "expectedContext"},
		},
		{
			Intent: models.IntentHelp,
			Domain: DomainSystem,
		},
		{
			Intent: models.IntentUnknown,
			Domain: DomainSystem,
		},
	}
}

func (r *Registry) registerAll() {
	for _, c := range registryEntries() {
		r.register(c)
	}
}
