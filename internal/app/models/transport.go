package models

// TurnRequest is the wire shape of one conversation turn. Either Input or
// Text carries the utterance.
type TurnRequest struct {
	SessionID  string   `json:"session_id"`
	Input      string   `json:"input"`
	Text       string   `json:"text"`
	Meta       TurnMeta `json:"meta"`
	IncludeTTS bool     `json:"includeTTS"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
}

type TurnMeta struct {
	Channel string `json:"channel,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// Utterance returns the user text regardless of which field carried it.
func (r *TurnRequest) Utterance() string {
	if r.Input != "" {
		return r.Input
	}
	return r.Text
}

// TurnResponse is the wire shape of the engine's answer.
type TurnResponse struct {
	OK                 bool                `json:"ok"`
	SessionID          string              `json:"session_id"`
	Intent             string              `json:"intent"`
	Reply              string              `json:"reply"`
	TTSText            string              `json:"tts_text,omitempty"`
	AudioContent       string              `json:"audioContent,omitempty"`
	Restaurants        []RestaurantPayload `json:"restaurants,omitempty"`
	MenuItems          []MenuItemPayload   `json:"menuItems,omitempty"`
	Actions            []Action            `json:"actions,omitempty"`
	ConversationClosed bool                `json:"conversationClosed,omitempty"`
	NewSessionID       string              `json:"newSessionId,omitempty"`
	RotatedFrom        string              `json:"rotatedFrom,omitempty"`
	Error              string              `json:"error,omitempty"`
	Meta               ResponseMeta        `json:"meta"`
}

// ResponseMeta reports per-turn timings and the NLU source.
type ResponseMeta struct {
	Source         string `json:"source"`
	Outcome        string `json:"outcome,omitempty"`
	OrderID        string `json:"order_id,omitempty"`
	AddedToCart    bool   `json:"addedToCart,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	LatencyTotalMS int64  `json:"latency_total_ms"`
	StylingMS      int64  `json:"styling_ms"`
	TTSMS          int64  `json:"tts_ms"`
}

// RestaurantPayload is the response projection of a restaurant.
type RestaurantPayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	CuisineType string   `json:"cuisine_type"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Distance    *float64 `json:"distance,omitempty"`
}

// MenuItemPayload is the response projection of a menu item.
type MenuItemPayload struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	PricePLN float64 `json:"price_pln"`
	Category string  `json:"category"`
}

// ToRestaurantPayloads projects list entries for the wire.
func ToRestaurantPayloads(list []RestaurantListItem) []RestaurantPayload {
	if len(list) == 0 {
		return nil
	}
	out := make([]RestaurantPayload, len(list))
	for i, it := range list {
		out[i] = RestaurantPayload{
			ID:          it.ID,
			Name:        it.Name,
			City:        it.City,
			CuisineType: it.CuisineType,
			Lat:         it.Lat,
			Lng:         it.Lng,
			Distance:    it.Distance,
		}
	}
	return out
}

// ToMenuItemPayloads projects menu items for the wire.
func ToMenuItemPayloads(items []MenuItem) []MenuItemPayload {
	if len(items) == 0 {
		return nil
	}
	out := make([]MenuItemPayload, len(items))
	for i, it := range items {
		out[i] = MenuItemPayload{ID: it.ID, Name: it.Name, PricePLN: it.Price, Category: it.Category}
	}
	return out
}
