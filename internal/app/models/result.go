package models

// DomainResult is what a handler hands back to the orchestrator. Handlers
// are pure: session edits travel as ContextUpdates and are applied later.
type DomainResult struct {
	Reply  string
	Intent string

	Restaurants []RestaurantListItem
	MenuItems   []MenuItem
	Actions     []Action

	ContextUpdates []Mutation

	// Surface detection flags. When set, the orchestrator renders the
	// matching surface over Reply while keeping the raw structures.
	SurfaceKey         string
	Facts              *SurfaceFacts
	NeedsClarification bool
	UnknownItems       []string
	NeedsLocation      bool
	ExpectsSelection   bool

	SuppressReply      bool
	ConversationClosed bool
	NewSessionID       string

	Meta ResultMeta
}

// ResultMeta carries handler-level outcome details into response meta.
type ResultMeta struct {
	Source      string   `json:"source,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
	AddedToCart bool     `json:"addedToCart,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// SurfaceFacts is the structured input of the surface renderer. Only the
// fields a given surface key needs are populated. Notes are warning
// sentences prepended to whatever the surface renders.
type SurfaceFacts struct {
	City        string
	Dish        string
	UnknownItem string
	Restaurant  string
	Restaurants []RestaurantListItem
	MenuItems   []MenuItem
	Items       []PendingItem
	Total       string
	Clarify     []ClarifyGroup
	Count       int
	Notes       []string
}

// ClarifyGroup lists the sized or priced variants of one dish base name.
type ClarifyGroup struct {
	Base    string
	Options []MenuItem
}
