package extract

import (
	"context"
	"strings"
	"time"

	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
)

// URL fragments that make a network response worth inspecting. The widget's
// backing API has moved between hosts and paths, so the filter is permissive
// and the payload check does the real work.
var interceptURLMarkers = []string{"parking", "bay", "sensor", "occupanc", "/api/", "data", "json"}

// interceptStrategy reloads the page while observing network traffic: any
// JSON response that looks parking-related is treated as authoritative. All
// matching payloads are accumulated; collection concludes after a quiet
// period with no new match, bounded by a hard cap.
type interceptStrategy struct {
	quiet time.Duration
	max   time.Duration
}

func (s *interceptStrategy) Name() string { return "api-intercept" }

func (s *interceptStrategy) Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, error) {
	bodies, err := page.CollectJSONResponses(ctx, urlLooksParkingRelated, s.quiet, s.max)
	if err != nil {
		return nil, err
	}

	var records []parking.RawBayRecord
	for _, body := range bodies {
		if !looksParkingPayload(body) {
			continue
		}
		records = append(records, RecordsFromJSON(body)...)
	}
	return keep(records), nil
}

func urlLooksParkingRelated(url string) bool {
	lower := strings.ToLower(url)
	for _, marker := range interceptURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
