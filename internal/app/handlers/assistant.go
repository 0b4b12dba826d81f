// Package handlers adapts the conversation engine to HTTP. The wire
// contract lives in models; this layer only binds, delegates and maps
// status codes.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// TurnEngine runs one conversational exchange. The pipeline engine is the
// production implementation.
type TurnEngine interface {
	Turn(ctx context.Context, req *models.TurnRequest) *models.TurnResponse
}

type AssistantHandler struct {
	engine TurnEngine
	logger *zap.Logger
}

func NewAssistantHandler(engine TurnEngine, logger *zap.Logger) *AssistantHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantHandler{engine: engine, logger: logger}
}

// Turn handles POST /api/v1/assistant/turn. Soft failures stay 200 with
// ok=false; only an unreadable request or a missing utterance reject at
// the transport.
func (h *AssistantHandler) Turn(c *gin.Context) {
	var req models.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Rejected malformed turn request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": models.ErrCodeMissingInput})
		return
	}

	if strings.TrimSpace(req.Utterance()) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": models.ErrCodeMissingInput})
		return
	}

	resp := h.engine.Turn(c.Request.Context(), &req)
	if resp == nil {
		h.logger.Error("Engine returned no response", zap.String("session_id", req.SessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health handles GET /health.
func (h *AssistantHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
