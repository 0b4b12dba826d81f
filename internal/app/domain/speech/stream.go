package speech

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Synthesizer is the external TTS provider seam.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NopSynthesizer satisfies the seam when no provider is configured; the
// pipeline then returns text-only responses.
type NopSynthesizer struct{}

func (NopSynthesizer) Synthesize(context.Context, string) ([]byte, error) { return nil, nil }

// BargeInController tracks the in-flight TTS stream per session so a new
// utterance can cut the previous one off immediately.
type BargeInController struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewBargeInController() *BargeInController {
	return &BargeInController{cancels: make(map[string]context.CancelFunc)}
}

// Begin interrupts any running stream for the session and returns the
// context the new stream must honor.
func (c *BargeInController) Begin(parent context.Context, sessionID string) context.Context {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if prev, ok := c.cancels[sessionID]; ok {
		prev()
	}
	c.cancels[sessionID] = cancel
	c.mu.Unlock()

	return ctx
}

// Interrupt aborts the session's stream, if any.
func (c *BargeInController) Interrupt(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.cancels[sessionID]; ok {
		cancel()
		delete(c.cancels, sessionID)
	}
}

// Done clears the bookkeeping after a stream finishes on its own.
func (c *BargeInController) Done(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cancels, sessionID)
}

// Streamer yields synthesis chunks with jittered pauses between them.
type Streamer struct {
	logger *zap.Logger
}

func NewStreamer(logger *zap.Logger) *Streamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{logger: logger}
}

// StreamChunks emits the processed chunks in order on the returned
// channel, pausing between chunks per pacing. Cancelling the context
// stops the stream at once; nothing pending is replayed.
func (s *Streamer) StreamChunks(ctx context.Context, text string) <-chan string {
	out := make(chan string)
	processed := ProcessForTTS(text)

	go func() {
		defer close(out)
		for i, chunk := range processed.Chunks {
			if i > 0 {
				pause := jitteredPause(processed.Pacing)
				select {
				case <-ctx.Done():
					s.logger.Debug("TTS stream aborted", zap.Int("at_chunk", i))
					return
				case <-time.After(pause):
				}
			}
			select {
			case <-ctx.Done():
				s.logger.Debug("TTS stream aborted", zap.Int("at_chunk", i))
				return
			case out <- chunk:
			}
		}
	}()

	return out
}

func jitteredPause(p Pacing) time.Duration {
	if p.PauseJitter <= 0 {
		return p.PauseBetweenChunks
	}
	jitter := time.Duration(rand.Int64N(int64(2*p.PauseJitter))) - p.PauseJitter
	return p.PauseBetweenChunks + jitter
}
