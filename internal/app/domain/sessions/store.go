// Package sessions owns conversation state: an in-process keyed store
// with per-session locks, lazy creation, one-way closing and automatic
// rotation of closed ids.
package sessions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

const (
	// TurnBufferSize is the FIFO depth of remembered turns.
	TurnBufferSize = 5

	// closedRetention keeps closed sessions around as tombstones so a
	// client still holding the old id rotates onto the recorded
	// successor instead of a random fresh session.
	closedRetention = 30 * time.Minute

	// idleRetention evicts abandoned active sessions.
	idleRetention = 24 * time.Hour
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewID allocates a session id: sess_<unix_ms>_<6 lowercase alnum>.
func NewID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return fmt.Sprintf("sess_%d_%s", time.Now().UnixMilli(), suffix)
}

type entry struct {
	mu   sync.Mutex
	sess *models.Session
}

// Store is the process-wide session map. Different sessions proceed in
// parallel; turns on the same session serialize on the entry lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	logger   *zap.Logger
	now      func() time.Time
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*entry),
		logger:   logger,
		now:      time.Now,
	}
}

// Lease is an acquired, locked session. Callers must Release exactly once.
type Lease struct {
	Session *models.Session

	// PresentedID is the id the caller sent; it differs from Session.ID
	// after an auto-rotation.
	PresentedID string
	Rotated     bool

	entry *entry
}

// Release unlocks the session.
func (l *Lease) Release() {
	if l.entry != nil {
		l.entry.mu.Unlock()
		l.entry = nil
	}
}

// Acquire resolves an id to a locked active session, creating one lazily.
// A closed id rotates onto its recorded successor (or a fresh session)
// and never mutates the closed record.
func (st *Store) Acquire(id string) *Lease {
	presented := id
	if id == "" {
		id = NewID()
	}

	for hop := 0; hop < 5; hop++ {
		e := st.entryFor(id)
		e.mu.Lock()
		if !e.sess.IsClosed() {
			e.sess.LastSeenAt = st.now()
			return &Lease{
				Session:     e.sess,
				PresentedID: presented,
				Rotated:     presented != "" && presented != id,
				entry:       e,
			}
		}

		successor := e.sess.SuccessorID
		if successor == "" {
			successor = NewID()
			e.sess.SuccessorID = successor
		}
		e.mu.Unlock()

		st.logger.Info("Session rotated",
			zap.String("closed_id", id),
			zap.String("successor_id", successor),
		)
		id = successor
	}

	// give up chasing successor chains; start clean
	id = NewID()
	e := st.entryFor(id)
	e.mu.Lock()
	e.sess.LastSeenAt = st.now()
	return &Lease{Session: e.sess, PresentedID: presented, Rotated: true, entry: e}
}

// Peek returns a copy of a session without locking it for a turn.
func (st *Store) Peek(id string) (models.Session, bool) {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return models.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.sess, true
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

func (st *Store) entryFor(id string) *entry {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return e
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if e, ok = st.sessions[id]; ok {
		return e
	}

	now := st.now()
	e = &entry{sess: &models.Session{
		ID:         id,
		Status:     models.SessionActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeenAt: now,
	}}
	st.sessions[id] = e
	st.logger.Debug("Session created", zap.String("session_id", id))
	return e
}

// StartSweeper evicts closed tombstones and long-idle sessions until the
// context ends.
func (st *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.sweep()
			}
		}
	}()
}

func (st *Store) sweep() {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, e := range st.sessions {
		if !e.mu.TryLock() {
			continue
		}
		sess := e.sess
		expired := false
		if sess.IsClosed() && sess.ClosedAt != nil && now.Sub(*sess.ClosedAt) > closedRetention {
			expired = true
		}
		if !sess.IsClosed() && now.Sub(sess.LastSeenAt) > idleRetention {
			expired = true
		}
		e.mu.Unlock()

		if expired {
			delete(st.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		st.logger.Info("Session sweep",
			zap.Int("removed", removed),
			zap.Int("remaining", len(st.sessions)),
		)
	}
}
