package parking

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

// earthRadiusMeters is the mean Earth radius used for great-circle distances.
const earthRadiusMeters = 6371000.0

// DataSource tags reported by Summarize.
const (
	DataSourceLive      = "melbourne-on-street-parking-sensors"
	DataSourceSynthetic = "synthetic-fallback"
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180.0
	lat2 := b.Lat() * math.Pi / 180.0
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180.0
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// AvailableResult lists the unoccupied bays in a record set.
type AvailableResult struct {
	Total int       `json:"total"`
	Spots []BaySpot `json:"spots"`
}

// Available filters a record set down to unoccupied bays.
func Available(records []RawBayRecord) AvailableResult {
	spots := make([]BaySpot, 0, len(records))
	for _, r := range records {
		if s := ToSpot(r); s.IsAvailable {
			spots = append(spots, s)
		}
	}
	return AvailableResult{Total: len(spots), Spots: spots}
}

// NearbyResult lists the bays within a radius of a center point.
type NearbyResult struct {
	Total        int       `json:"total"`
	Available    int       `json:"available"`
	RadiusMeters float64   `json:"radiusMeters"`
	CenterLat    float64   `json:"centerLat"`
	CenterLon    float64   `json:"centerLon"`
	Spots        []BaySpot `json:"spots"`
}

// Nearby keeps the spots within radiusMeters of (lat, lon). A spot with
// unparseable coordinates has NaN distance and is excluded.
func Nearby(records []RawBayRecord, lat, lon, radiusMeters float64) NearbyResult {
	center := orb.Point{lon, lat}
	res := NearbyResult{
		RadiusMeters: radiusMeters,
		CenterLat:    lat,
		CenterLon:    lon,
		Spots:        []BaySpot{},
	}
	for _, r := range records {
		s := ToSpot(r)
		if Haversine(center, s.Point()) <= radiusMeters {
			res.Total++
			if s.IsAvailable {
				res.Available++
			}
			res.Spots = append(res.Spots, s)
		}
	}
	return res
}

// AreaResult lists the bays strictly inside a rectangular area.
type AreaResult struct {
	Total     int       `json:"total"`
	Available int       `json:"available"`
	Bounds    Bounds    `json:"bounds"`
	Spots     []BaySpot `json:"spots"`
}

// InArea keeps the spots strictly inside bounds. Boundary-exact points are
// excluded on both axes.
func InArea(records []RawBayRecord, bounds Bounds) AreaResult {
	res := AreaResult{Bounds: bounds, Spots: []BaySpot{}}
	for _, r := range records {
		s := ToSpot(r)
		if bounds.Contains(s.Point()) {
			res.Total++
			if s.IsAvailable {
				res.Available++
			}
			res.Spots = append(res.Spots, s)
		}
	}
	return res
}

// Find looks a bay up by exact id. A missing bay is not an error.
func Find(records []RawBayRecord, bayID string) (BaySpot, bool) {
	for _, r := range records {
		if r.BayID == bayID {
			return ToSpot(r), true
		}
	}
	return BaySpot{}, false
}

// Stats aggregates a record set.
type Stats struct {
	Total         int       `json:"total"`
	Available     int       `json:"available"`
	Occupied      int       `json:"occupied"`
	OccupancyRate string    `json:"occupancyRate"`
	GeneratedAt   time.Time `json:"generatedAt"`
	DataSource    string    `json:"dataSource"`
}

// Summarize computes totals over a record set. The occupancy rate is
// occupied/total as a percentage with two decimals, "0%" for an empty set.
func Summarize(records []RawBayRecord) Stats {
	st := Stats{
		Total:       len(records),
		GeneratedAt: time.Now().UTC(),
		DataSource:  DataSourceLive,
	}
	for _, r := range records {
		if ToSpot(r).IsAvailable {
			st.Available++
		}
	}
	st.Occupied = st.Total - st.Available

	st.OccupancyRate = "0%"
	if st.Total > 0 {
		st.OccupancyRate = fmt.Sprintf("%.2f%%", float64(st.Occupied)/float64(st.Total)*100)
	}
	if IsSyntheticBatch(records) {
		st.DataSource = DataSourceSynthetic
	}
	return st
}
