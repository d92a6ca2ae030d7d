package parking

import "context"

// Refresher yields the current record set, scraping if the cached one went
// stale. The scrape orchestrator implements it.
type Refresher interface {
	Refresh(ctx context.Context) ([]RawBayRecord, error)
}

// Service answers geospatial queries over the latest record set. Every call
// refreshes first, so results always reflect the most recently cached scrape.
type Service struct {
	src Refresher
}

// NewService creates a query service over the given record source.
func NewService(src Refresher) *Service {
	return &Service{src: src}
}

// AvailableSpots returns all currently unoccupied bays.
func (s *Service) AvailableSpots(ctx context.Context) (AvailableResult, error) {
	records, err := s.src.Refresh(ctx)
	if err != nil {
		return AvailableResult{}, err
	}
	return Available(records), nil
}

// NearbySpots returns the bays within radiusMeters of (lat, lon).
func (s *Service) NearbySpots(ctx context.Context, lat, lon, radiusMeters float64) (NearbyResult, error) {
	records, err := s.src.Refresh(ctx)
	if err != nil {
		return NearbyResult{}, err
	}
	return Nearby(records, lat, lon, radiusMeters), nil
}

// AreaSpots returns the bays strictly inside bounds.
func (s *Service) AreaSpots(ctx context.Context, bounds Bounds) (AreaResult, error) {
	records, err := s.src.Refresh(ctx)
	if err != nil {
		return AreaResult{}, err
	}
	return InArea(records, bounds), nil
}

// BayInfo looks up a single bay by id; found is false when it does not exist.
func (s *Service) BayInfo(ctx context.Context, bayID string) (spot BaySpot, found bool, err error) {
	records, err := s.src.Refresh(ctx)
	if err != nil {
		return BaySpot{}, false, err
	}
	spot, found = Find(records, bayID)
	return spot, found, nil
}

// Statistics aggregates the current record set.
func (s *Service) Statistics(ctx context.Context) (Stats, error) {
	records, err := s.src.Refresh(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(records), nil
}
