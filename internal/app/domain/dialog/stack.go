// Package dialog implements the navigation guard and the surface stack it
// walks. The guard sees every utterance before the NLU and may answer a
// turn entirely from the stack.
package dialog

import (
	"time"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// MaxStackDepth caps the dialog stack; the oldest surface falls off.
const MaxStackDepth = 10

// PushMutation appends a rendered surface to the stack and points the
// index at it.
func PushMutation(entry models.DialogStackEntry) models.Mutation {
	return func(s *models.Session) {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		s.DialogStack = append(s.DialogStack, entry)
		if len(s.DialogStack) > MaxStackDepth {
			s.DialogStack = s.DialogStack[len(s.DialogStack)-MaxStackDepth:]
		}
		s.DialogStackIndex = len(s.DialogStack) - 1
	}
}

// Back moves the index one step toward the oldest surface and returns the
// entry now in focus. At the bottom it stays put.
func Back(s *models.Session) (models.DialogStackEntry, bool) {
	if len(s.DialogStack) == 0 {
		return models.DialogStackEntry{}, false
	}
	if s.DialogStackIndex > 0 {
		s.DialogStackIndex--
	}
	return s.DialogStack[s.DialogStackIndex], true
}

// Forward moves the index one step toward the newest surface. Returns
// false when already at the top, so "dalej" can fall through to the NLU.
func Forward(s *models.Session) (models.DialogStackEntry, bool) {
	if len(s.DialogStack) == 0 || s.DialogStackIndex >= len(s.DialogStack)-1 {
		return models.DialogStackEntry{}, false
	}
	s.DialogStackIndex++
	return s.DialogStack[s.DialogStackIndex], true
}

// Current returns the surface in focus.
func Current(s *models.Session) (models.DialogStackEntry, bool) {
	if len(s.DialogStack) == 0 {
		return models.DialogStackEntry{}, false
	}
	idx := s.DialogStackIndex
	if idx < 0 || idx >= len(s.DialogStack) {
		idx = len(s.DialogStack) - 1
	}
	return s.DialogStack[idx], true
}
