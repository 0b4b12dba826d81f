package sessions

import (
	"time"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// Close transitions a session to closed. Closing is one-way and
// idempotent; the successor id is allocated here so the closing turn can
// already report it.
func Close(reason string) models.Mutation {
	return func(s *models.Session) {
		if s.Status == models.SessionClosed {
			return
		}
		now := time.Now()
		s.Status = models.SessionClosed
		s.ClosedReason = reason
		s.ClosedAt = &now
		if s.SuccessorID == "" {
			s.SuccessorID = NewID()
		}
	}
}

// CloseWithSuccessor closes like Close but pins the successor id, so the
// handler that triggered the close can report the same id it stored.
func CloseWithSuccessor(reason, successorID string) models.Mutation {
	return func(s *models.Session) {
		if s.Status == models.SessionClosed {
			return
		}
		if s.SuccessorID == "" {
			s.SuccessorID = successorID
		}
		Close(reason)(s)
	}
}

// RecordTurn appends an exchange to the turn buffer, dropping the oldest
// beyond TurnBufferSize.
func RecordTurn(userText, reply, intent string) models.Mutation {
	return func(s *models.Session) {
		s.TurnBuffer = append(s.TurnBuffer, models.TurnRecord{
			UserText: userText,
			Reply:    reply,
			Intent:   intent,
			At:       time.Now(),
		})
		if len(s.TurnBuffer) > TurnBufferSize {
			s.TurnBuffer = s.TurnBuffer[len(s.TurnBuffer)-TurnBufferSize:]
		}
	}
}

// Touch stamps the session as updated.
func Touch() models.Mutation {
	return func(s *models.Session) {
		s.UpdatedAt = time.Now()
	}
}

// DiscoveryReset clears the selected restaurant and the pin when a fresh
// discovery search completes.
func DiscoveryReset() models.Mutation {
	return func(s *models.Session) {
		s.CurrentRestaurant = nil
		s.LockedRestaurantID = ""
	}
}

// ReviveLegacyCompleted clears the historical COMPLETED marker so the
// session can serve turns again. Regular closed sessions stay closed.
func ReviveLegacyCompleted() models.Mutation {
	return func(s *models.Session) {
		if string(s.Status) == models.LegacyStatusCompleted {
			s.Status = models.SessionActive
		}
	}
}
