// Package events is the analytics seam. The engine emits a small set of
// facts per turn; deployments plug their own sink, the default just logs.
package events

import (
	"time"

	"go.uber.org/zap"
)

// Event names.
const (
	TurnCompleted      = "turn_completed"
	OrderPersisted     = "order_persisted"
	ConversationClosed = "conversation_closed"
)

// Event is one emitted fact.
type Event struct {
	Name      string
	SessionID string
	Intent    string
	Source    string
	OrderID   string
	Reason    string
	LatencyMS int64
	At        time.Time
}

// Sink receives events. Emit must not block the turn; sinks that do real
// I/O should buffer internally.
type Sink interface {
	Emit(ev Event)
}

// ZapSink logs events as structured entries.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.logger.Info("event",
		zap.String("name", ev.Name),
		zap.String("session_id", ev.SessionID),
		zap.String("intent", ev.Intent),
		zap.String("source", ev.Source),
		zap.String("order_id", ev.OrderID),
		zap.String("reason", ev.Reason),
		zap.Int64("latency_ms", ev.LatencyMS),
	)
}

// NopSink drops everything; used by tests that do not assert on events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
