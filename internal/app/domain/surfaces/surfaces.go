// Package surfaces turns structured facts into the Polish replies users
// hear. Rendering is pure and offline; every template is deterministic.
package surfaces

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// Surface keys.
const (
	KeyAskLocation           = "ASK_LOCATION"
	KeyChooseRestaurant      = "CHOOSE_RESTAURANT"
	KeyAskRestaurantForMenu  = "ASK_RESTAURANT_FOR_MENU"
	KeyAskRestaurantForOrder = "ASK_RESTAURANT_FOR_ORDER"
	KeyItemNotFound          = "ITEM_NOT_FOUND"
	KeyClarifyItems          = "CLARIFY_ITEMS"
	KeyConfirmAdd            = "CONFIRM_ADD"
	KeyMenu                  = "MENU"
	KeyError                 = "ERROR"
)

// Rendering is a rendered surface plus UI hints for the client.
type Rendering struct {
	Reply   string
	UIHints []string
}

// Render maps a surface key and facts to reply text. Unknown keys render
// the generic error surface so a turn never goes silent. Facts.Notes are
// prepended to the rendered reply; warnings survive any surface.
func Render(key string, facts *models.SurfaceFacts) Rendering {
	if facts == nil {
		facts = &models.SurfaceFacts{}
	}

	r := renderKey(key, facts)
	if len(facts.Notes) > 0 {
		r.Reply = strings.Join(facts.Notes, " ") + " " + r.Reply
	}
	return r
}

func renderKey(key string, facts *models.SurfaceFacts) Rendering {
	switch key {
	case KeyAskLocation:
		return renderAskLocation(facts)
	case KeyChooseRestaurant:
		return renderChooseRestaurant(facts)
	case KeyAskRestaurantForMenu:
		return renderAskForMenu(facts)
	case KeyAskRestaurantForOrder:
		return renderAskForOrder(facts)
	case KeyItemNotFound:
		return renderItemNotFound(facts)
	case KeyClarifyItems:
		return renderClarifyItems(facts)
	case KeyConfirmAdd:
		return renderConfirmAdd(facts)
	case KeyMenu:
		return renderMenu(facts)
	}
	return Rendering{Reply: "Przepraszam, coś poszło nie tak. Spróbuj jeszcze raz.", UIHints: []string{"error"}}
}

// Detect maps a handler result's structured flags to a surface key, or
// returns empty when the handler's own reply should stand.
func Detect(res *models.DomainResult) string {
	switch {
	case res == nil:
		return ""
	case res.SurfaceKey != "":
		return res.SurfaceKey
	case res.NeedsLocation:
		return KeyAskLocation
	case len(res.UnknownItems) > 0:
		return KeyItemNotFound
	case res.NeedsClarification:
		return KeyClarifyItems
	case res.ExpectsSelection && len(res.Restaurants) > 1:
		return KeyChooseRestaurant
	}
	return ""
}

func renderAskLocation(f *models.SurfaceFacts) Rendering {
	var b strings.Builder
	if f.Dish != "" {
		fmt.Fprintf(&b, "Chcesz zamówić %s. ", f.Dish)
	}
	b.WriteString("Brak miasta – powiedz mi miasto (np. Bytom) lub 'w pobliżu'.")
	return Rendering{Reply: b.String(), UIHints: []string{"ask_location"}}
}

func renderChooseRestaurant(f *models.SurfaceFacts) Rendering {
	if len(f.Restaurants) == 0 {
		return renderKey(KeyError, f)
	}
	n := f.Count
	if n < len(f.Restaurants) {
		n = len(f.Restaurants)
	}
	places := lexicon.PluralPl(n, "miejsce", "miejsca", "miejsc")
	city := f.City
	if city == "" {
		city = "okolicy"
	}
	reply := fmt.Sprintf("W %s mam %d %s: %s. Którą wybierasz?",
		city, n, places, numberedNames(f.Restaurants))
	return Rendering{Reply: reply, UIHints: []string{"restaurant_list"}}
}

func renderAskForMenu(f *models.SurfaceFacts) Rendering {
	reply := fmt.Sprintf("Mam kilka miejsc: %s. Której restauracji menu pokazać?",
		numberedNames(f.Restaurants))
	return Rendering{Reply: reply, UIHints: []string{"restaurant_list"}}
}

func renderAskForOrder(f *models.SurfaceFacts) Rendering {
	var b strings.Builder
	if f.Dish != "" {
		fmt.Fprintf(&b, "Mam %s w %d %s: ", f.Dish, len(f.Restaurants),
			lexicon.PluralPl(len(f.Restaurants), "miejscu", "miejscach", "miejscach"))
	} else {
		b.WriteString("Mam kilka miejsc: ")
	}
	b.WriteString(numberedNames(f.Restaurants))
	b.WriteString(". Z której restauracji zamawiasz?")
	return Rendering{Reply: b.String(), UIHints: []string{"restaurant_list"}}
}

func renderItemNotFound(f *models.SurfaceFacts) Rendering {
	var reply string
	if f.Restaurant != "" {
		reply = fmt.Sprintf("Nie znalazłam \"%s\" w menu %s. Powiedz inaczej albo poproś o menu.",
			f.UnknownItem, f.Restaurant)
	} else {
		reply = fmt.Sprintf("Nie znalazłam \"%s\". Spróbuj powiedzieć inaczej.", f.UnknownItem)
	}
	return Rendering{Reply: reply, UIHints: []string{"item_not_found"}}
}

func renderClarifyItems(f *models.SurfaceFacts) Rendering {
	var parts []string
	for _, group := range f.Clarify {
		var opts []string
		for _, o := range group.Options {
			label := o.Name
			if o.Size != "" {
				label = o.Size
			}
			opts = append(opts, fmt.Sprintf("%s %s zł", label, models.FormatPLN(o.Price)))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", group.Base, strings.Join(opts, ", ")))
	}
	reply := fmt.Sprintf("Doprecyzuj proszę. %s. Którą wersję wybierasz?", strings.Join(parts, "; "))
	return Rendering{Reply: reply, UIHints: []string{"clarify_items"}}
}

func renderConfirmAdd(f *models.SurfaceFacts) Rendering {
	var items []string
	for _, it := range f.Items {
		items = append(items, fmt.Sprintf("%dx %s", it.Qty, it.Name))
	}
	reply := fmt.Sprintf("Dodałam %s. Razem %s zł. Potwierdzasz? (tak/nie)",
		strings.Join(items, ", "), f.Total)
	return Rendering{Reply: reply, UIHints: []string{"confirm_order"}}
}

func renderMenu(f *models.SurfaceFacts) Rendering {
	var items []string
	for _, it := range f.MenuItems {
		items = append(items, fmt.Sprintf("%s (%s zł)", it.Name, models.FormatPLN(it.Price)))
	}
	restaurant := f.Restaurant
	if restaurant == "" {
		restaurant = "tej restauracji"
	}
	reply := fmt.Sprintf("Oto menu %s: %s. Co zamawiasz?", restaurant, strings.Join(items, ", "))
	return Rendering{Reply: reply, UIHints: []string{"menu_list"}}
}

func numberedNames(list []models.RestaurantListItem) string {
	var parts []string
	for i, r := range list {
		idx := r.Index
		if idx == 0 {
			idx = i + 1
		}
		parts = append(parts, fmt.Sprintf("%d. %s", idx, r.Name))
	}
	return strings.Join(parts, ", ")
}
