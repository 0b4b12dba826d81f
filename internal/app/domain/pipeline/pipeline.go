// Package pipeline is the per-turn orchestrator. It owns the session
// lease for the duration of a turn: navigation guard, NLU, capability
// gate, smart guards, handler dispatch and surface rendering all run
// under the lock; styling and speech synthesis run after release so a
// slow TTS provider never delays the next utterance.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/admin"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/dialog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/food"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/intents"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/nlu"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/sessions"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/speech"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/surfaces"
	"github.com/FACorreiaa/go-voice-orders/internal/app/events"
	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
	"github.com/FACorreiaa/go-voice-orders/internal/app/observability/metrics"
)

// TurnTimeout bounds one full turn including styling and synthesis.
const TurnTimeout = 12 * time.Second

const emptyInputReply = "Nic nie usłyszałam. Powiedz, czego szukasz."

// Handler answers one intent. Handlers run under the session lock; edits
// travel back as ContextUpdates and are applied by the engine.
type Handler func(ctx context.Context, req *food.Request) (*models.DomainResult, error)

// Styler rewrites a reply without changing its facts. *llm.Client
// satisfies it in expert mode; a nil styler leaves replies verbatim.
type Styler interface {
	Stylize(ctx context.Context, reply string) (string, error)
}

// Detector maps an utterance to an intent. *nlu.Router is the production
// implementation.
type Detector interface {
	Detect(ctx context.Context, text string, sess *models.Session, allowed []string) *nlu.Result
}

// Deps wires the engine. Store, Router, Registry and Food are required;
// nil optional fields degrade to working defaults.
type Deps struct {
	Store    *sessions.Store
	Router   Detector
	Registry *intents.Registry
	Food     *food.Service
	Guard    *dialog.Guard
	Styler   Styler
	Synth    speech.Synthesizer
	Streamer *speech.Streamer
	Barge    *speech.BargeInController
	Runtime  *admin.Runtime
	Sink     events.Sink
	Logger   *zap.Logger
}

// Engine serves conversation turns.
type Engine struct {
	store    *sessions.Store
	router   Detector
	registry *intents.Registry
	food     *food.Service
	guard    *dialog.Guard
	styler   Styler
	synth    speech.Synthesizer
	streamer *speech.Streamer
	barge    *speech.BargeInController
	runtime  *admin.Runtime
	sink     events.Sink
	logger   *zap.Logger
	tracer   trace.Tracer

	handlers map[string]map[string]Handler
}

func NewEngine(d Deps) *Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Guard == nil {
		d.Guard = dialog.NewGuard()
	}
	if d.Synth == nil {
		d.Synth = speech.NopSynthesizer{}
	}
	if d.Streamer == nil {
		d.Streamer = speech.NewStreamer(d.Logger)
	}
	if d.Barge == nil {
		d.Barge = speech.NewBargeInController()
	}
	if d.Runtime == nil {
		d.Runtime = admin.NewRuntime(admin.DefaultConfig(), d.Logger)
	}
	if d.Sink == nil {
		d.Sink = events.NopSink{}
	}
	metrics.InitAppMetrics()

	e := &Engine{
		store:    d.Store,
		router:   d.Router,
		registry: d.Registry,
		food:     d.Food,
		guard:    d.Guard,
		styler:   d.Styler,
		synth:    d.Synth,
		streamer: d.Streamer,
		barge:    d.Barge,
		runtime:  d.Runtime,
		sink:     d.Sink,
		logger:   d.Logger,
		tracer:   otel.Tracer("pipeline"),
	}
	e.handlers = e.buildHandlers()
	return e
}

// turnInfo collects what finish needs once the lock is gone.
type turnInfo struct {
	start        time.Time
	sessionID    string
	rotatedFrom  string
	closedReason string
	stylable     bool
	stylingMS    int64
	ttsMS        int64
}

// Turn processes one utterance end to end.
func (e *Engine) Turn(ctx context.Context, req *models.TurnRequest) *models.TurnResponse {
	ctx, cancel := context.WithTimeout(ctx, TurnTimeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "Turn")
	defer span.End()

	info := &turnInfo{start: time.Now()}

	text := strings.TrimSpace(req.Utterance())
	if text == "" {
		span.AddEvent("empty_input")
		return &models.TurnResponse{
			OK:        false,
			SessionID: req.SessionID,
			Reply:     emptyInputReply,
			Error:     models.ErrCodeBrakTekstu,
			Meta:      models.ResponseMeta{LatencyTotalMS: time.Since(info.start).Milliseconds()},
		}
	}

	cfg := e.runtime.Snapshot()

	lease := e.store.Acquire(req.SessionID)
	sess := lease.Session
	info.sessionID = sess.ID
	if lease.Rotated {
		info.rotatedFrom = lease.PresentedID
		span.AddEvent("session_rotated")
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	// A new utterance cuts any TTS still streaming for this session.
	e.barge.Interrupt(sess.ID)

	if action := dialog.Match(text); action != dialog.NavNone {
		if res, consumed := e.guard.Handle(action, sess, cfg.NavigationActive()); consumed {
			// Nav turns deliberately skip SetIntent so the next turn
			// still sees the real last intent.
			sess.Apply([]models.Mutation{
				sessions.RecordTurn(text, res.Reply, res.Intent),
				sessions.Touch(),
			})
			lease.Release()
			span.AddEvent("dialog_nav")
			return e.finish(ctx, req, res, info, cfg)
		}
	}

	res := e.resolve(ctx, span, text, req, sess, cfg)

	if key := surfaces.Detect(res); key != "" {
		rendering := surfaces.Render(key, res.Facts)
		res.SurfaceKey = key
		res.Reply = rendering.Reply
	}
	if res.Reply == "" && !res.SuppressReply {
		res.SurfaceKey = surfaces.KeyError
		res.Reply = surfaces.Render(surfaces.KeyError, nil).Reply
	}

	muts := res.ContextUpdates
	if res.Reply != "" && !res.SuppressReply {
		muts = append(muts, dialog.PushMutation(models.DialogStackEntry{
			SurfaceKey:  res.SurfaceKey,
			Intent:      res.Intent,
			Reply:       res.Reply,
			Restaurants: res.Restaurants,
			MenuItems:   res.MenuItems,
		}))
	}
	muts = append(muts,
		models.SetIntent(res.Intent),
		sessions.RecordTurn(text, res.Reply, res.Intent),
		sessions.Touch(),
	)
	sess.Apply(muts)
	info.closedReason = sess.ClosedReason
	info.stylable = true
	lease.Release()

	return e.finish(ctx, req, res, info, cfg)
}

// resolve runs detection, gating, guards and dispatch. The returned
// result always has Intent and Meta.Source set.
func (e *Engine) resolve(ctx context.Context, span trace.Span, text string, req *models.TurnRequest, sess *models.Session, cfg admin.Config) *models.DomainResult {
	det := e.router.Detect(ctx, text, sess, e.registry.Intents())
	intent, source := det.Intent, det.Source
	ents := det.Entities
	span.SetAttributes(
		attribute.String("nlu.intent", intent),
		attribute.String("nlu.source", source),
	)

	// The legacy classifier may never trigger a cart-adjacent intent.
	if source == models.SourceClassicLegacy && e.registry.HardBlockLegacy(intent) {
		intent = e.registry.Fallback(intent)
		source = models.SourceLegacyHardBlocked
		span.AddEvent("legacy_hard_blocked")
	}

	// Capability gate: an intent whose required state is missing either
	// bridges into restaurant selection or falls back to discovery.
	if !e.registry.CheckRequiredState(intent, sess, &ents) {
		if bridged := softBridge(intent, &ents, sess); bridged != nil {
			bridged.Meta.Source = source
			span.AddEvent("soft_bridge")
			return bridged
		}
		intent = e.registry.Fallback(intent)
		if intent == "" {
			intent = models.IntentUnknown
		}
		source = models.SourceICMFallback
		span.AddEvent("icm_fallback")
	}

	// Cart writes happen on explicit confirmation only.
	if e.registry.MutatesCart(intent) && intent != models.IntentConfirmOrder {
		intent = models.IntentFindNearby
		source = models.SourceCartBlocked
	}

	// A fresh discovery clears the restaurant pin, but only if the
	// intent survives the guards below.
	resetPending := intent == models.IntentFindNearby && !blockedSource(source)

	if intent == models.IntentChooseRestaurant && len(ents.Options) > 0 {
		return chooseResult(&ents, sess, source)
	}

	if !blockedSource(source) {
		direct, newIntent, newSource := applyGuards(intent, source, text, &ents, sess, cfg)
		if direct != nil {
			return direct
		}
		if newIntent != intent {
			span.AddEvent("guard_rewrite", trace.WithAttributes(
				attribute.String("from", intent),
				attribute.String("to", newIntent),
			))
			intent, source = newIntent, newSource
		}
	}

	if resetPending && intent == models.IntentFindNearby {
		sess.Apply([]models.Mutation{sessions.DiscoveryReset()})
	}

	// Historical COMPLETED sessions stay dead except for an explicit
	// restart.
	if string(sess.Status) == models.LegacyStatusCompleted {
		switch intent {
		case models.IntentNewOrder, models.IntentStartOver, models.IntentHelp:
			sess.Apply([]models.Mutation{sessions.ReviveLegacyCompleted()})
		default:
			span.AddEvent("session_locked")
			return &models.DomainResult{
				Intent:       models.IntentSessionLocked,
				Reply:        "Ta rozmowa jest już zakończona. Powiedz 'nowe zamówienie', żeby zacząć od nowa.",
				NewSessionID: sess.SuccessorID,
				Meta:         models.ResultMeta{Source: models.SourceSessionLocked},
			}
		}
	}

	return e.dispatch(ctx, span, intent, source, text, req, sess, &ents)
}

func (e *Engine) dispatch(ctx context.Context, span trace.Span, intent, source, text string, req *models.TurnRequest, sess *models.Session, ents *models.Entities) *models.DomainResult {
	freq := &food.Request{
		Session:  sess,
		Text:     text,
		Entities: *ents,
		Lat:      req.Lat,
		Lng:      req.Lng,
		UserID:   req.Meta.UserID,
	}

	handler := e.handlers[e.registry.Domain(intent)][intent]
	if handler == nil {
		handler = e.systemFallback
	}

	res, err := handler(ctx, freq)
	if err != nil {
		e.logger.Error("handler failed",
			zap.String("intent", intent),
			zap.String("session_id", sess.ID),
			zap.Error(err))
		span.RecordError(err)
		res = &models.DomainResult{Intent: intent, SurfaceKey: surfaces.KeyError}
	}
	if res.Intent == "" {
		res.Intent = intent
	}
	if res.Meta.Source == "" {
		res.Meta.Source = source
	}
	return res
}

// finish runs after the lease is released: styling, chunked synthesis
// and the wire projection.
func (e *Engine) finish(ctx context.Context, req *models.TurnRequest, res *models.DomainResult, info *turnInfo, cfg admin.Config) *models.TurnResponse {
	reply := res.Reply
	if info.stylable && e.styler != nil && reply != "" && !res.SuppressReply {
		reply = e.stylize(ctx, reply, info)
	}

	var ttsText, audio string
	if !res.SuppressReply {
		hasList := len(res.Restaurants) > 0 || len(res.MenuItems) > 0
		ttsText = speech.TTSText(reply, hasList)
		if req.IncludeTTS && cfg.TTSEnabled && ttsText != "" {
			audio = e.synthesize(ctx, info.sessionID, ttsText, info)
		}
	}

	resp := &models.TurnResponse{
		OK:                 true,
		SessionID:          info.sessionID,
		Intent:             res.Intent,
		Reply:              reply,
		TTSText:            ttsText,
		AudioContent:       audio,
		Restaurants:        models.ToRestaurantPayloads(res.Restaurants),
		MenuItems:          models.ToMenuItemPayloads(res.MenuItems),
		Actions:            res.Actions,
		ConversationClosed: res.ConversationClosed,
		NewSessionID:       res.NewSessionID,
		RotatedFrom:        info.rotatedFrom,
		Meta: models.ResponseMeta{
			Source:         res.Meta.Source,
			Outcome:        res.Meta.Outcome,
			OrderID:        res.Meta.OrderID,
			AddedToCart:    res.Meta.AddedToCart,
			Skipped:        res.Meta.Skipped,
			LatencyTotalMS: time.Since(info.start).Milliseconds(),
			StylingMS:      info.stylingMS,
			TTSMS:          info.ttsMS,
		},
	}
	e.record(ctx, res, info, resp.Meta.LatencyTotalMS)
	return resp
}

// stylize asks the LLM for a warmer phrasing. Any failure or empty
// answer keeps the deterministic reply.
func (e *Engine) stylize(ctx context.Context, reply string, info *turnInfo) string {
	begin := time.Now()
	styled, err := e.styler.Stylize(ctx, reply)
	info.stylingMS = time.Since(begin).Milliseconds()
	if err != nil {
		e.logger.Debug("styling skipped", zap.Error(err))
		return reply
	}
	if strings.TrimSpace(styled) == "" {
		return reply
	}
	return styled
}

// synthesize streams chunked audio under the barge-in context. An
// interrupted stream returns no audio at all; partial playback is the
// client's job, not the response's.
func (e *Engine) synthesize(ctx context.Context, sessionID, text string, info *turnInfo) string {
	begin := time.Now()
	streamCtx := e.barge.Begin(ctx, sessionID)
	defer e.barge.Done(sessionID)

	var audio []byte
	for chunk := range e.streamer.StreamChunks(streamCtx, text) {
		part, err := e.synth.Synthesize(streamCtx, chunk)
		if err != nil {
			e.logger.Warn("tts chunk failed", zap.Error(err))
			break
		}
		audio = append(audio, part...)
	}
	info.ttsMS = time.Since(begin).Milliseconds()

	if err := streamCtx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			metrics.Get().TTSAbortsTotal.Add(ctx, 1)
			e.logger.Debug("tts aborted by barge-in", zap.String("session_id", sessionID))
		}
		return ""
	}
	if len(audio) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}

func (e *Engine) record(ctx context.Context, res *models.DomainResult, info *turnInfo, latencyMS int64) {
	m := metrics.Get()
	attrs := metric.WithAttributes(
		attribute.String("intent", res.Intent),
		attribute.String("source", res.Meta.Source),
	)
	m.TurnsTotal.Add(ctx, 1, attrs)
	m.TurnDuration.Record(ctx, time.Since(info.start).Seconds(), attrs)
	m.ActiveSessionsGauge.Record(ctx, int64(e.store.Len()))
	if res.Meta.OrderID != "" && !res.Meta.Skipped {
		m.OrdersPersistedTotal.Add(ctx, 1)
	}

	now := time.Now()
	e.sink.Emit(events.Event{
		Name:      events.TurnCompleted,
		SessionID: info.sessionID,
		Intent:    res.Intent,
		Source:    res.Meta.Source,
		LatencyMS: latencyMS,
		At:        now,
	})
	if res.Meta.OrderID != "" {
		e.sink.Emit(events.Event{
			Name:      events.OrderPersisted,
			SessionID: info.sessionID,
			Intent:    res.Intent,
			OrderID:   res.Meta.OrderID,
			At:        now,
		})
	}
	if info.closedReason != "" && res.ConversationClosed {
		e.sink.Emit(events.Event{
			Name:      events.ConversationClosed,
			SessionID: info.sessionID,
			Reason:    info.closedReason,
			At:        now,
		})
	}
}
