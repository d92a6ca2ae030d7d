package parking

import (
	"strings"

	"github.com/paulmach/orb"

	"parking-status-backend/internal/parse"
)

// Status labels reported by the sensor feed. Anything else is carried through
// untouched; only StatusOccupied flips a bay to unavailable.
const (
	StatusOccupied  = "Present"
	StatusAvailable = "Unoccupied"
)

// SyntheticIDPrefix marks records produced by the synthetic fallback batch.
// Downstream consumers rely on this to tell degraded data from live data, so
// it must never be stripped.
const SyntheticIDPrefix = "SIM-BAY-"

// RawBayRecord is a parking bay exactly as extracted from the page, before
// any parsing of its string fields.
type RawBayRecord struct {
	BayID       string `json:"bayId"`
	StMarkerID  string `json:"stMarkerId"`
	Status      string `json:"status"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	LastUpdated string `json:"lastUpdated"`
	Zone        string `json:"zone,omitempty"`
	StatusTime  string `json:"statusTime,omitempty"`
	RowOrdinal  int    `json:"-"`
}

// Valid reports whether the record survives extraction: bay id, status and
// both coordinates must be non-empty.
func (r RawBayRecord) Valid() bool {
	return r.BayID != "" && r.Status != "" && r.Lat != "" && r.Lon != ""
}

// IsSynthetic reports whether a bay id belongs to the synthetic fallback batch.
func IsSynthetic(bayID string) bool {
	return strings.HasPrefix(bayID, SyntheticIDPrefix)
}

// IsSyntheticBatch reports whether a record set came from the fallback
// generator. Batches are never mixed, so the first record decides.
func IsSyntheticBatch(records []RawBayRecord) bool {
	return len(records) > 0 && IsSynthetic(records[0].BayID)
}

// BaySpot is the query-layer view of a bay, recomputed from its RawBayRecord
// on every transform and never persisted independently.
type BaySpot struct {
	BayID       string  `json:"bayId"`
	Status      string  `json:"status"`
	IsAvailable bool    `json:"isAvailable"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	LastUpdated string  `json:"lastUpdated"`
	StMarkerID  string  `json:"stMarkerId"`
	Zone        string  `json:"zone,omitempty"`
	StatusTime  string  `json:"statusTime,omitempty"`
}

// Point returns the spot location as an orb point ([lon, lat] order).
func (s BaySpot) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// ToSpot derives the query-layer view from a raw record. Coordinates that
// fail to parse become NaN, which every distance and bounds comparison
// rejects.
func ToSpot(r RawBayRecord) BaySpot {
	return BaySpot{
		BayID:       r.BayID,
		Status:      r.Status,
		IsAvailable: r.Status != StatusOccupied,
		Lat:         parse.Float(r.Lat),
		Lon:         parse.Float(r.Lon),
		LastUpdated: r.LastUpdated,
		StMarkerID:  r.StMarkerID,
		Zone:        r.Zone,
		StatusTime:  r.StatusTime,
	}
}

// Bounds is a rectangular area. Containment is strict on both axes: a spot
// sitting exactly on an edge is outside.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLon float64 `json:"minLon"`
	MaxLon float64 `json:"maxLon"`
}

// Contains reports whether the point lies strictly inside the bounds.
// NaN coordinates compare false on every axis and are therefore excluded.
func (b Bounds) Contains(p orb.Point) bool {
	return p.Lat() > b.MinLat && p.Lat() < b.MaxLat &&
		p.Lon() > b.MinLon && p.Lon() < b.MaxLon
}
