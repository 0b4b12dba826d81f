package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voice-orders/internal/app/models"
)

// CacheManager holds all application caches
type CacheManager struct {
	// Nearby lookups keyed by geo tile; short TTL because open/closed
	// state changes while users talk.
	Nearby *UnifiedCache[[]models.Restaurant]

	// City plus cuisine searches from the find handler.
	Search *UnifiedCache[[]models.Restaurant]

	// Menus keyed by restaurant id.
	Menus *UnifiedCache[[]models.MenuItem]
}

// NewCacheManager creates a new cache manager with default TTLs
func NewCacheManager(logger *zap.Logger) *CacheManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheManager{
		Nearby: NewUnifiedCache[[]models.Restaurant](2*time.Minute, "nearby_tiles", logger),
		Search: NewUnifiedCache[[]models.Restaurant](5*time.Minute, "restaurant_search", logger),
		Menus:  NewUnifiedCache[[]models.MenuItem](5*time.Minute, "menus", logger),
	}
}

// GetAllMetrics returns metrics for all caches
func (cm *CacheManager) GetAllMetrics() map[string]CacheMetrics {
	return map[string]CacheMetrics{
		"nearby_tiles":      cm.Nearby.GetMetrics(),
		"restaurant_search": cm.Search.GetMetrics(),
		"menus":             cm.Menus.GetMetrics(),
	}
}

// ClearAll clears all caches
func (cm *CacheManager) ClearAll() {
	cm.Nearby.Clear()
	cm.Search.Clear()
	cm.Menus.Clear()
}
