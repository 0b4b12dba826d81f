package pipeline

import (
	"context"
	"fmt"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/food"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/intents"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/sessions"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// buildHandlers assembles the dispatch table: domain first, intent second.
func (e *Engine) buildHandlers() map[string]map[string]Handler {
	f := e.food
	return map[string]map[string]Handler{
		intents.DomainFood: {
			models.IntentFindNearby:       f.FindRestaurant,
			models.IntentRecommend:        f.Recommend,
			models.IntentMenuRequest:      f.Menu,
			models.IntentSelectRestaurant: f.SelectRestaurant,
			models.IntentChooseRestaurant: f.ShowMore,
			models.IntentConfirmRest:      e.confirmRestaurant,
			models.IntentShowMoreOptions:  f.ShowMore,
			models.IntentCreateOrder:      f.Order,
		},
		intents.DomainOrdering: {
			models.IntentConfirmOrder:     f.ConfirmOrder,
			models.IntentConfirmAddToCart: f.ConfirmAddToCart,
			models.IntentCancelOrder:      f.CancelOrder,
		},
		intents.DomainSystem: {
			models.IntentNewOrder:  e.startOver,
			models.IntentStartOver: e.startOver,
			models.IntentHelp:      e.help,
			models.IntentUnknown:   e.systemFallback,
		},
	}
}

// confirmRestaurant re-affirms the selection and offers the menu.
func (e *Engine) confirmRestaurant(ctx context.Context, req *food.Request) (*models.DomainResult, error) {
	rest := req.Session.CurrentRestaurant
	if rest == nil {
		rest = req.Session.LastRestaurant
	}
	if rest == nil {
		return e.systemFallback(ctx, req)
	}
	return &models.DomainResult{
		Intent: models.IntentConfirmRest,
		Reply:  fmt.Sprintf("Zostajemy przy %s. Pokazać menu?", rest.Name),
		ContextUpdates: []models.Mutation{
			models.SetCurrentRestaurant(rest),
			models.SetExpectedContext(models.ContextConfirmMenu),
		},
	}, nil
}

// startOver wipes the conversational slate while keeping the session id.
// The intent is inherited, so new_order and start_over each report their
// own name.
func (e *Engine) startOver(_ context.Context, _ *food.Request) (*models.DomainResult, error) {
	return &models.DomainResult{
		Reply: "Zaczynamy od nowa. Czego szukasz? Możesz powiedzieć np. 'szukam pizzy w Bytomiu'.",
		ContextUpdates: []models.Mutation{
			sessions.ReviveLegacyCompleted(),
			sessions.DiscoveryReset(),
			models.SetPendingOrder(nil),
			models.SetPendingDish(""),
			models.SetExpectedContext(""),
			models.SetAwaiting(""),
			models.SetDialogFocus(""),
			models.SetListOffset(0),
			models.SetRestaurantsList(nil),
		},
	}, nil
}

func (e *Engine) help(_ context.Context, _ *food.Request) (*models.DomainResult, error) {
	return &models.DomainResult{
		Reply: "Mogę znaleźć restauracje i przyjąć zamówienie. Powiedz np. 'szukam pizzy w Bytomiu', " +
			"'pokaż menu', 'zamawiam kebab'. Działają też słowa 'wróć', 'powtórz', 'dalej' i 'stop'.",
	}, nil
}

// systemFallback answers anything without a handler. Mid-confirmation it
// repeats the open question instead of a generic shrug.
func (e *Engine) systemFallback(_ context.Context, req *food.Request) (*models.DomainResult, error) {
	s := req.Session
	if s.ExpectedContext == models.ContextConfirmOrder && s.PendingOrder != nil {
		return &models.DomainResult{
			Reply: "Potwierdzasz zamówienie? Powiedz 'tak' albo 'nie'.",
		}, nil
	}
	return &models.DomainResult{
		Reply: "Nie rozumiem. Powiedz np. 'szukam pizzy w Bytomiu' albo 'pomoc'.",
	}, nil
}
