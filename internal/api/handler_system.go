package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCacheStats handles GET /api/system/cache.
func (h *Handler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":   h.monitor.CacheStats(),
		"session": h.monitor.Session(),
	})
}

// GetSchedulerStatus handles GET /api/system/scheduler.
func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusOK, gin.H{"running": false, "enabled": false})
		return
	}
	c.JSON(http.StatusOK, h.sched.Status())
}
