package extract

import (
	"context"
	"strings"

	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
)

// Markers that identify a parking-shaped blob inside an inline script.
var scriptMarkers = []string{"bay_id", "bayid", "st_marker", "stmarker"}

// embeddedJSONStrategy bypasses the rendered DOM: many widget builds bootstrap
// their data as a JSON array inside an inline <script>, which survives even
// when the markup around it changes.
type embeddedJSONStrategy struct{}

func (s *embeddedJSONStrategy) Name() string { return "embedded-json" }

func (s *embeddedJSONStrategy) Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, error) {
	scripts, err := page.InlineScripts(ctx)
	if err != nil {
		return nil, err
	}

	for _, script := range scripts {
		lower := strings.ToLower(script)
		idx := -1
		for _, marker := range scriptMarkers {
			if i := strings.Index(lower, marker); i >= 0 {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		blob := extractJSONArray(script, idx)
		if blob == "" {
			continue
		}
		if records := RecordsFromJSON([]byte(blob)); len(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

// extractJSONArray returns the innermost JSON array enclosing position pos,
// found by scanning outward to the nearest '[' and then bracket-matching
// forward. String literals are honored so brackets inside values do not
// unbalance the scan.
func extractJSONArray(s string, pos int) string {
	start := strings.LastIndexByte(s[:pos], '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
