package parse

import (
	"math"
	"strconv"
	"strings"
)

// LatLon splits a combined "lat, lon" cell into its two components. The
// upstream table renders coordinates as a single comma-separated cell; both
// halves must look numeric for the split to count.
func LatLon(cell string) (lat, lon string, ok bool) {
	parts := strings.SplitN(cell, ",", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	lat = strings.TrimSpace(parts[0])
	lon = strings.TrimSpace(parts[1])
	if !isNumeric(lat) || !isNumeric(lon) {
		return "", "", false
	}
	return lat, lon, true
}

// Float parses a stored string coordinate, returning NaN on failure so that
// distance and bounds comparisons evaluate false instead of crashing.
func Float(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
