package dialog

import (
	"regexp"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/lexicon"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// NavAction is a meta-intent recognized by the guard.
type NavAction int

const (
	NavNone NavAction = iota
	NavBack
	NavRepeat
	NavNext
	NavStop
)

// Patterns run against normalized text, so the vocabulary is diacritic
// free here.
var (
	backPattern   = regexp.MustCompile(`\b(cofnij|wroc|poprzednie)\b`)
	repeatPattern = regexp.MustCompile(`\b(powtorz|jeszcze raz)\b`)
	nextPattern   = regexp.MustCompile(`\b(dalej|nastepne|pokaz wiecej)\b`)
	stopPattern   = regexp.MustCompile(`\b(stop|wystarczy|cisza)\b`)
)

// Match classifies the utterance as a nav meta-intent, NavNone otherwise.
// STOP wins over everything else.
func Match(text string) NavAction {
	n := lexicon.Normalize(text)
	if n == "" {
		return NavNone
	}
	switch {
	case stopPattern.MatchString(n):
		return NavStop
	case backPattern.MatchString(n):
		return NavBack
	case repeatPattern.MatchString(n):
		return NavRepeat
	case nextPattern.MatchString(n):
		return NavNext
	}
	return NavNone
}

// Guard resolves nav meta-intents against a session's dialog stack.
type Guard struct{}

func NewGuard() *Guard { return &Guard{} }

// Handle answers a nav action from the stack. The boolean reports whether
// the guard consumed the turn; a false lets the pipeline continue into the
// NLU. STOP is always consumed; BACK, REPEAT and NEXT honor the runtime
// navigation toggle and SIMPLE fallback mode.
func (g *Guard) Handle(action NavAction, s *models.Session, navEnabled bool) (*models.DomainResult, bool) {
	if action == NavNone {
		return nil, false
	}

	if action == NavStop {
		return &models.DomainResult{
			Intent:        models.IntentDialogStop,
			SuppressReply: true,
			Meta:          models.ResultMeta{Source: models.SourceDialogNav},
		}, true
	}

	if !navEnabled {
		return nil, false
	}

	switch action {
	case NavBack:
		entry, ok := Back(s)
		if !ok {
			return nil, false
		}
		return navResult(models.IntentDialogBack, entry), true
	case NavRepeat:
		entry, ok := Current(s)
		if !ok {
			return nil, false
		}
		return navResult(models.IntentDialogRepeat, entry), true
	case NavNext:
		entry, ok := Forward(s)
		if !ok {
			// nothing newer on the stack; let the NLU treat the text
			// as show_more_options
			return nil, false
		}
		return navResult(models.IntentDialogNext, entry), true
	}
	return nil, false
}

func navResult(intent string, entry models.DialogStackEntry) *models.DomainResult {
	return &models.DomainResult{
		Intent:      intent,
		Reply:       entry.Reply,
		Restaurants: entry.Restaurants,
		MenuItems:   entry.MenuItems,
		Meta:        models.ResultMeta{Source: models.SourceDialogNav},
	}
}
