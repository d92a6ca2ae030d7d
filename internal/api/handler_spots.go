package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parking-status-backend/internal/parking"
)

// GetAvailableSpots handles GET /api/spots/available.
func (h *Handler) GetAvailableSpots(c *gin.Context) {
	result, err := h.spots.AvailableSpots(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh parking data"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetNearbySpots handles GET /api/spots/nearby?lat=&lon=&radius=.
func (h *Handler) GetNearbySpots(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'lat' parameter"})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing 'lon' parameter"})
		return
	}

	radius := h.query.DefaultRadiusMeters
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "'radius' must be a positive number of meters"})
			return
		}
	}
	if radius > h.query.MaxRadiusMeters {
		radius = h.query.MaxRadiusMeters
	}

	result, err := h.spots.NearbySpots(c.Request.Context(), lat, lon, radius)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh parking data"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetAreaSpots handles GET /api/spots/area/:name for the configured named
// areas.
func (h *Handler) GetAreaSpots(c *gin.Context) {
	name := c.Param("name")
	area, ok := h.query.Areas[name]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown area: " + name})
		return
	}

	bounds := parking.Bounds{
		MinLat: area.MinLat,
		MaxLat: area.MaxLat,
		MinLon: area.MinLon,
		MaxLon: area.MaxLon,
	}
	result, err := h.spots.AreaSpots(c.Request.Context(), bounds)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh parking data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"area":      name,
		"total":     result.Total,
		"available": result.Available,
		"bounds":    result.Bounds,
		"spots":     result.Spots,
	})
}

// GetBayInfo handles GET /api/bays/:bay_id.
func (h *Handler) GetBayInfo(c *gin.Context) {
	bayID := c.Param("bay_id")

	spot, found, err := h.spots.BayInfo(c.Request.Context(), bayID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh parking data"})
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Bay not found: " + bayID})
		return
	}
	c.JSON(http.StatusOK, spot)
}

// GetStatistics handles GET /api/stats.
func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.spots.Statistics(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh parking data"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
