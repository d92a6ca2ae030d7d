package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parking-status-backend/config"
	"parking-status-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router around an API handler.
func NewRouter(handler *Handler, srv config.ServerConfig) *gin.Engine {
	r := gin.Default()

	limit := rate.Limit(srv.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	burst := srv.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	// Short HTTP-level cache; the scrape cache behind it is the real
	// freshness control.
	ttl := time.Duration(srv.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	responseStore := cache.New(ttl, 2*ttl)
	caching := mw.ResponseCache(responseStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/spots/available", caching, handler.GetAvailableSpots)
		api.GET("/spots/nearby", caching, handler.GetNearbySpots)
		api.GET("/spots/area/:name", caching, handler.GetAreaSpots)
		api.GET("/bays/:bay_id", caching, handler.GetBayInfo)
		api.GET("/stats", caching, handler.GetStatistics)

		api.GET("/system/cache", handler.GetCacheStats)
		api.GET("/system/scheduler", handler.GetSchedulerStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
