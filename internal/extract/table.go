package extract

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/parse"
	"parking-status-backend/internal/renderer"
)

// splitCoordCell parses a combined "lat, lon" cell; both halves stay empty
// when the cell does not hold a coordinate pair.
func splitCoordCell(cell string) (string, string) {
	if lat, lon, ok := parse.LatLon(cell); ok {
		return lat, lon
	}
	return "", ""
}

// primaryRowSelector matches the data rows of the table widget as currently
// shipped by the upstream site.
const primaryRowSelector = "table.dataTable tbody tr"

// Fixed column positions in the current widget revision.
const (
	colBayID = iota
	colMarker
	colStatus
	colLocation
	colLastUpdated
	colZone
	colStatusTime
)

// tableStrategy reads the table widget by its known row selector and fixed
// column layout.
type tableStrategy struct {
	selectorTimeout time.Duration
	loader          *rowLoader
}

func (s *tableStrategy) Name() string { return "table-scan" }

func (s *tableStrategy) Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, error) {
	// A missing selector is a structural mismatch, not an error: yield
	// nothing and let the next strategy try.
	if err := page.WaitVisible(ctx, primaryRowSelector, s.selectorTimeout); err != nil {
		log.Printf("table scan: row selector not visible within %v", s.selectorTimeout)
		return nil, nil
	}

	s.loader.loadAll(ctx, page, primaryRowSelector)

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var candidates []parking.RawBayRecord
	doc.Find(primaryRowSelector).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= colLocation {
			return
		}

		rec := parking.RawBayRecord{
			BayID:       cellValue(cells.Eq(colBayID)),
			StMarkerID:  cellValue(cells.Eq(colMarker)),
			Status:      cellValue(cells.Eq(colStatus)),
			LastUpdated: cellValue(cells.Eq(colLastUpdated)),
			Zone:        cellValue(cells.Eq(colZone)),
			StatusTime:  cellValue(cells.Eq(colStatusTime)),
			RowOrdinal:  i,
		}
		rec.Lat, rec.Lon = splitCoordCell(cellValue(cells.Eq(colLocation)))
		candidates = append(candidates, rec)
	})

	return keep(candidates), nil
}

// cellValue prefers a cell's title attribute over its visible text: the
// widget elides long values in the text but keeps the full value in title.
func cellValue(cell *goquery.Selection) string {
	if cell.Length() == 0 {
		return ""
	}
	if title, ok := cell.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if inner := cell.Find("[title]").First(); inner.Length() > 0 {
		if title, ok := inner.Attr("title"); ok && strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title)
		}
	}
	return strings.TrimSpace(cell.Text())
}
