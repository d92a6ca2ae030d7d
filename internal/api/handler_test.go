package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"parking-status-backend/config"
	"parking-status-backend/internal/cache"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/scraper"
)

type fakeSpots struct {
	err          error
	lastRadius   float64
	lastBounds   parking.Bounds
	bayFound     bool
	availableRes parking.AvailableResult
}

func (f *fakeSpots) AvailableSpots(context.Context) (parking.AvailableResult, error) {
	return f.availableRes, f.err
}

func (f *fakeSpots) NearbySpots(_ context.Context, lat, lon, radiusMeters float64) (parking.NearbyResult, error) {
	f.lastRadius = radiusMeters
	return parking.NearbyResult{RadiusMeters: radiusMeters, CenterLat: lat, CenterLon: lon}, f.err
}

func (f *fakeSpots) AreaSpots(_ context.Context, bounds parking.Bounds) (parking.AreaResult, error) {
	f.lastBounds = bounds
	return parking.AreaResult{Bounds: bounds}, f.err
}

func (f *fakeSpots) BayInfo(_ context.Context, bayID string) (parking.BaySpot, bool, error) {
	return parking.BaySpot{BayID: bayID}, f.bayFound, f.err
}

func (f *fakeSpots) Statistics(context.Context) (parking.Stats, error) {
	return parking.Stats{Total: 3, Available: 2}, f.err
}

type fakeMonitor struct{}

func (fakeMonitor) Session() scraper.Session { return scraper.Session{ConsecutiveErrors: 1} }
func (fakeMonitor) CacheStats() cache.Stats  { return cache.Stats{Hits: 7, HitRate: "87.50%"} }

func testQueryConfig() config.QueryConfig {
	return config.QueryConfig{
		DefaultRadiusMeters: 1000,
		MaxRadiusMeters:     5000,
		Areas: map[string]config.AreaBounds{
			"cbd": {MinLat: -37.83, MaxLat: -37.80, MinLon: 144.94, MaxLon: 144.98},
		},
	}
}

func setupRouter(spots *fakeSpots) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(spots, fakeMonitor{}, nil, nil, nil, testQueryConfig())
	r := gin.New()
	r.GET("/api/spots/available", handler.GetAvailableSpots)
	r.GET("/api/spots/nearby", handler.GetNearbySpots)
	r.GET("/api/spots/area/:name", handler.GetAreaSpots)
	r.GET("/api/bays/:bay_id", handler.GetBayInfo)
	r.GET("/api/stats", handler.GetStatistics)
	r.GET("/api/system/cache", handler.GetCacheStats)
	r.GET("/api/system/scheduler", handler.GetSchedulerStatus)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)
	return r
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetNearbySpotsValidation(t *testing.T) {
	spots := &fakeSpots{}
	router := setupRouter(spots)

	assert.Equal(t, http.StatusBadRequest, doGet(router, "/api/spots/nearby").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(router, "/api/spots/nearby?lat=-37.8").Code)
	assert.Equal(t, http.StatusBadRequest,
		doGet(router, "/api/spots/nearby?lat=-37.8&lon=144.96&radius=-5").Code)
	assert.Equal(t, http.StatusBadRequest,
		doGet(router, "/api/spots/nearby?lat=-37.8&lon=144.96&radius=abc").Code)
}

func TestGetNearbySpotsRadiusDefaultsAndCap(t *testing.T) {
	spots := &fakeSpots{}
	router := setupRouter(spots)

	w := doGet(router, "/api/spots/nearby?lat=-37.8&lon=144.96")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1000.0, spots.lastRadius, "missing radius falls back to the configured default")

	w = doGet(router, "/api/spots/nearby?lat=-37.8&lon=144.96&radius=99999")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5000.0, spots.lastRadius, "oversized radius is clamped to the maximum")
}

func TestGetAreaSpots(t *testing.T) {
	spots := &fakeSpots{}
	router := setupRouter(spots)

	assert.Equal(t, http.StatusNotFound, doGet(router, "/api/spots/area/atlantis").Code)

	w := doGet(router, "/api/spots/area/cbd")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, parking.Bounds{MinLat: -37.83, MaxLat: -37.80, MinLon: 144.94, MaxLon: 144.98},
		spots.lastBounds)
}

func TestGetBayInfoNotFound(t *testing.T) {
	router := setupRouter(&fakeSpots{bayFound: false})
	w := doGet(router, "/api/bays/9999")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "9999")
}

func TestGetBayInfoFound(t *testing.T) {
	router := setupRouter(&fakeSpots{bayFound: true})
	w := doGet(router, "/api/bays/1234")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"1234"`)
}

func TestRefreshFailureReturns500(t *testing.T) {
	router := setupRouter(&fakeSpots{err: errors.New("failed to launch browser")})

	for _, path := range []string{
		"/api/spots/available",
		"/api/spots/nearby?lat=-37.8&lon=144.96",
		"/api/spots/area/cbd",
		"/api/bays/1",
		"/api/stats",
	} {
		w := doGet(router, path)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
	}
}

func TestGetCacheStats(t *testing.T) {
	router := setupRouter(&fakeSpots{})
	w := doGet(router, "/api/system/cache")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "87.50%")
}

func TestGetSchedulerStatusWithoutScheduler(t *testing.T) {
	router := setupRouter(&fakeSpots{})
	w := doGet(router, "/api/system/scheduler")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running":false,"enabled":false}`, w.Body.String())
}

func TestPutSubscriptionWithoutStore(t *testing.T) {
	router := setupRouter(&fakeSpots{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPut, "/api/subscriptions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetVAPIDPublicKeyUnconfigured(t *testing.T) {
	router := setupRouter(&fakeSpots{})
	w := doGet(router, "/api/vapid_public_key")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
