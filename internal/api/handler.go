package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"parking-status-backend/config"
	"parking-status-backend/internal/cache"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/scheduler"
	"parking-status-backend/internal/scraper"
	"parking-status-backend/internal/store"
)

// SpotService answers the geospatial queries behind the /api/spots routes.
// *parking.Service implements it.
type SpotService interface {
	AvailableSpots(ctx context.Context) (parking.AvailableResult, error)
	NearbySpots(ctx context.Context, lat, lon, radiusMeters float64) (parking.NearbyResult, error)
	AreaSpots(ctx context.Context, bounds parking.Bounds) (parking.AreaResult, error)
	BayInfo(ctx context.Context, bayID string) (parking.BaySpot, bool, error)
	Statistics(ctx context.Context) (parking.Stats, error)
}

// ScrapeMonitor exposes the orchestrator's diagnostics for the system
// routes. *scraper.Service implements it.
type ScrapeMonitor interface {
	Session() scraper.Session
	CacheStats() cache.Stats
}

// Handler holds shared dependencies for API handlers. store and sched may be
// nil when persistence or scheduling is disabled.
type Handler struct {
	spots   SpotService
	monitor ScrapeMonitor
	sched   *scheduler.Scheduler
	store   store.Store
	webpush *webpush.Options
	query   config.QueryConfig
}

// NewHandler creates a new API handler.
func NewHandler(spots SpotService, monitor ScrapeMonitor, sched *scheduler.Scheduler, s store.Store, webpushOptions *webpush.Options, query config.QueryConfig) *Handler {
	return &Handler{
		spots:   spots,
		monitor: monitor,
		sched:   sched,
		store:   s,
		webpush: webpushOptions,
		query:   query,
	}
}
