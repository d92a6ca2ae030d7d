package extract

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
)

// rowCandidate is one known widget shape: a row selector, a cell selector
// within the row, and the minimum cell count for a row to be considered data.
type rowCandidate struct {
	rows     string
	cells    string
	minCells int
}

// Widget shapes observed across redesigns of the upstream table: plain HTML
// tables, ARIA grids and react-table markup.
var rowCandidates = []rowCandidate{
	{rows: "table tbody tr", cells: "td", minCells: 4},
	{rows: "[role=\"grid\"] [role=\"row\"]", cells: "[role=\"gridcell\"]", minCells: 3},
	{rows: ".rt-table .rt-tr-group .rt-tr", cells: ".rt-td", minCells: 3},
	{rows: "ul.data-rows > li", cells: "span", minCells: 3},
}

// genericTableStrategy retries the scan under looser structural assumptions:
// several selector candidates, positional guessing, and synthesized bay ids
// when an id cell is missing.
type genericTableStrategy struct {
	loader *rowLoader
}

func (s *genericTableStrategy) Name() string { return "generic-table-scan" }

func (s *genericTableStrategy) Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, error) {
	for _, candidate := range rowCandidates {
		n, err := page.CountNodes(ctx, candidate.rows)
		if err != nil || n == 0 {
			continue
		}

		s.loader.loadAll(ctx, page, candidate.rows)

		html, err := page.HTML(ctx)
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, err
		}

		records := scanLoose(doc, candidate)
		if len(records) > 0 {
			log.Printf("generic table scan matched %q with %d records", candidate.rows, len(records))
			return records, nil
		}
	}
	return nil, nil
}

func scanLoose(doc *goquery.Document, candidate rowCandidate) []parking.RawBayRecord {
	var candidates []parking.RawBayRecord
	doc.Find(candidate.rows).Each(func(i int, row *goquery.Selection) {
		var cells []string
		row.Find(candidate.cells).Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cellValue(cell))
		})
		if len(cells) < candidate.minCells {
			return
		}
		if rec, ok := mapLooseCells(cells, i); ok {
			candidates = append(candidates, rec)
		}
	})
	return keep(candidates)
}

// mapLooseCells assigns cells to fields by content rather than position: the
// coordinate pair and the status label are recognizable on sight, the bay id
// falls back to the first remaining cell or a synthesized ordinal id.
func mapLooseCells(cells []string, ordinal int) (parking.RawBayRecord, bool) {
	rec := parking.RawBayRecord{RowOrdinal: ordinal}
	used := make([]bool, len(cells))

	for i, c := range cells {
		if lat, lon, ok := splitCoordPair(c); ok {
			rec.Lat, rec.Lon = lat, lon
			used[i] = true
			break
		}
	}
	if rec.Lat == "" {
		return rec, false
	}

	for i, c := range cells {
		if used[i] {
			continue
		}
		if isStatusLabel(c) {
			rec.Status = c
			used[i] = true
			break
		}
	}
	if rec.Status == "" {
		return rec, false
	}

	// First leftover cell is the best id guess; second one the street marker.
	for i, c := range cells {
		if used[i] || c == "" {
			continue
		}
		if rec.BayID == "" {
			rec.BayID = c
			used[i] = true
			continue
		}
		if rec.StMarkerID == "" {
			rec.StMarkerID = c
			used[i] = true
			continue
		}
		if rec.LastUpdated == "" {
			rec.LastUpdated = c
			used[i] = true
		}
	}
	if rec.BayID == "" {
		rec.BayID = fmt.Sprintf("row-%d", ordinal)
	}

	return rec, true
}

func splitCoordPair(cell string) (string, string, bool) {
	lat, lon := splitCoordCell(cell)
	return lat, lon, lat != "" && lon != ""
}

func isStatusLabel(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "present", "unoccupied", "occupied", "vacant":
		return true
	}
	return false
}
