package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/parse"
)

// Field aliases seen across revisions of the upstream feed. The table widget,
// the embedded bootstrap blob and the JSON API all disagree on casing and
// naming, so lookups run through these lists in order.
var (
	bayIDKeys      = []string{"bay_id", "bayid", "bayId", "BayId", "id", "marker_id"}
	markerKeys     = []string{"st_marker_id", "stMarkerId", "StMarkerId", "marker", "street_marker"}
	statusKeys     = []string{"status", "status_description", "statusDescription", "occupancy", "state"}
	latKeys        = []string{"lat", "latitude", "Latitude"}
	lonKeys        = []string{"lon", "lng", "longitude", "Longitude"}
	updatedKeys    = []string{"last_updated", "lastUpdated", "lastUpdate", "updated_at"}
	zoneKeys       = []string{"zone_number", "zoneNumber", "zone"}
	statusTimeKeys = []string{"status_timestamp", "statusTimestamp", "status_time"}

	payloadListKeys = []string{"rows", "records", "data", "items", "results", "features"}
)

// RecordsFromJSON parses a parking-shaped JSON payload into validated raw
// records. The payload may be a top-level array of objects or an object
// wrapping such an array under a well-known key.
func RecordsFromJSON(payload []byte) []parking.RawBayRecord {
	rows, ok := decodeRows(payload)
	if !ok {
		return nil
	}

	var records []parking.RawBayRecord
	for i, row := range rows {
		if rec, ok := recordFromMap(row, i); ok {
			records = append(records, rec)
		}
	}
	return records
}

func decodeRows(payload []byte) ([]map[string]any, bool) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, false
	}

	if payload[0] == '[' {
		var rows []map[string]any
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil, false
		}
		return rows, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, false
	}
	for _, key := range payloadListKeys {
		raw, ok := wrapper[key]
		if !ok {
			continue
		}
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
			return rows, true
		}
	}
	return nil, false
}

// recordFromMap maps one loosely-keyed object to a raw record, reporting
// whether it validates.
func recordFromMap(m map[string]any, ordinal int) (parking.RawBayRecord, bool) {
	rec := parking.RawBayRecord{
		BayID:       stringField(m, bayIDKeys...),
		StMarkerID:  stringField(m, markerKeys...),
		Status:      stringField(m, statusKeys...),
		Lat:         stringField(m, latKeys...),
		Lon:         stringField(m, lonKeys...),
		LastUpdated: stringField(m, updatedKeys...),
		Zone:        stringField(m, zoneKeys...),
		StatusTime:  stringField(m, statusTimeKeys...),
		RowOrdinal:  ordinal,
	}

	// Some feed revisions ship a combined "location" value instead of
	// separate coordinates: either a "lat, lon" string or a nested object.
	if rec.Lat == "" || rec.Lon == "" {
		if loc, ok := m["location"]; ok {
			rec.Lat, rec.Lon = splitLocation(loc, rec.Lat, rec.Lon)
		}
	}

	return rec, rec.Valid()
}

func splitLocation(loc any, lat, lon string) (string, string) {
	switch v := loc.(type) {
	case string:
		if la, lo, ok := parse.LatLon(v); ok {
			return la, lo
		}
	case map[string]any:
		la := stringField(v, latKeys...)
		lo := stringField(v, lonKeys...)
		if la != "" && lo != "" {
			return la, lo
		}
	}
	return lat, lon
}

// stringField returns the first present key rendered as a string. Numeric
// JSON values are formatted without exponent noise so coordinates survive.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		case int:
			return strconv.Itoa(t)
		case bool:
			return fmt.Sprintf("%v", t)
		}
	}
	return ""
}

// looksParkingPayload reports whether a JSON body plausibly carries bay data.
func looksParkingPayload(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, marker := range [][]byte{
		[]byte("bay_id"), []byte("bayid"), []byte("st_marker"), []byte("stmarker"),
		[]byte("parking"), []byte("occupanc"),
	} {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
