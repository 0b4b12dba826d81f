package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler exposes the runtime config over HTTP. Meant for internal
// operator tooling, not end users.
type Handler struct {
	runtime *Runtime
	logger  *zap.Logger
}

func NewHandler(runtime *Runtime, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runtime: runtime, logger: logger}
}

// GetConfig handles GET /api/v1/admin/config.
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.runtime.Snapshot())
}

// UpdateConfig handles PUT /api/v1/admin/config. Absent fields keep their
// current value; an unknown fallback mode rejects the whole patch.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config payload"})
		return
	}

	cfg, err := h.runtime.Update(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cfg)
}
