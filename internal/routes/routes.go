package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/admin"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/catalog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/dialog"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/food"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/intents"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/llm"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/nlu"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/orders"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/pipeline"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/sessions"
	"github.com/FACorreiaa/go-voice-orders/internal/app/domain/speech"
	"github.com/FACorreiaa/go-voice-orders/internal/app/events"
	"github.com/FACorreiaa/go-voice-orders/internal/app/handlers"
	"github.com/FACorreiaa/go-voice-orders/internal/pkg/cache"
	"github.com/FACorreiaa/go-voice-orders/internal/pkg/config"
)

const (
	bootTimeout      = 10 * time.Second
	sweeperInterval  = 5 * time.Minute
	warmupConcurrent = 4
)

type AppHandlers struct {
	Assistant *handlers.AssistantHandler
	Admin     *admin.Handler
}

// Setup wires repositories, services and the conversation engine, then
// registers the HTTP routes.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	h := setupDependencies(dbPool, cfg, log)
	setupRouter(r, h)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) *AppHandlers {
	bootCtx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()

	caches := cache.NewCacheManager(log)
	catalogRepo := catalog.NewRepository(dbPool)

	restaurants, err := catalogRepo.ListRestaurants(bootCtx)
	if err != nil {
		log.Warn("Failed to load restaurant catalog at boot, alias index starts empty", zap.Error(err))
	}
	index := catalog.NewIndex(restaurants, log)

	ordersRepo := orders.NewRepository(dbPool)
	ordersService := orders.NewService(ordersRepo, log)
	foodService := food.NewService(catalogRepo, index, ordersService, caches, log)
	foodService.WarmMenus(bootCtx, restaurants, warmupConcurrent)

	deps := pipeline.Deps{
		Registry: intents.NewRegistry(),
		Food:     foodService,
		Guard:    dialog.NewGuard(),
		Streamer: speech.NewStreamer(log),
		Barge:    speech.NewBargeInController(),
		Sink:     events.NewZapSink(log),
		Logger:   log,
	}

	var resolver nlu.IntentResolver
	if cfg.LLM.GeminiAPIKey != "" {
		client, cerr := llm.New(bootCtx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model, log)
		if cerr != nil {
			log.Warn("LLM client unavailable, deterministic tiers only", zap.Error(cerr))
		} else {
			resolver = client
			deps.Styler = client
		}
	}
	deps.Router = nlu.NewRouter(index, resolver, cfg.LLM.ExpertMode, log)

	store := sessions.NewStore(log)
	store.StartSweeper(context.Background(), sweeperInterval)
	deps.Store = store

	runtime := admin.NewRuntime(admin.Config{
		TTSEnabled:              cfg.Dialog.TTSEnabled,
		DialogNavigationEnabled: cfg.Dialog.NavigationEnabled,
		FallbackMode:            cfg.Dialog.FallbackMode,
	}, log)
	deps.Runtime = runtime

	if cfg.Dialog.TTSServiceURL != "" {
		deps.Synth = speech.NewHTTPSynthesizer(cfg.Dialog.TTSServiceURL, cfg.Dialog.TTSVoice, log)
	}

	engine := pipeline.NewEngine(deps)

	return &AppHandlers{
		Assistant: handlers.NewAssistantHandler(engine, log),
		Admin:     admin.NewHandler(runtime, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers) {
	r.GET("/health", h.Assistant.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/assistant/turn", h.Assistant.Turn)

		adminGroup := api.Group("/admin")
		{
			adminGroup.GET("/config", h.Admin.GetConfig)
			adminGroup.PUT("/config", h.Admin.UpdateConfig)
		}
	}
}
