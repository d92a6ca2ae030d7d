package extract

import (
	"context"
	"log"
	"time"

	"parking-status-backend/internal/renderer"
)

// Controls the table widget is known to paginate or virtualize behind.
var (
	loadMoreSelectors = []string{
		"button.load-more",
		"a.load-more",
		"button[data-action=\"load-more\"]",
		".dataTables_paginate .paginate_button.next:not(.disabled)",
	}
	pageSizeSelectors = []string{
		"select[name$=\"_length\"]",
		"select.page-size",
		"select[aria-label=\"rows per page\"]",
	}
)

// rowLoader coaxes a paginated or virtualized widget into revealing all of
// its rows before a table scan runs. It produces no records itself.
type rowLoader struct {
	maxAttempts int
	settle      time.Duration
}

// loadAll clicks a load-more control if one exists, maxes out the page-size
// selector, then scrolls until the row count stabilizes across two
// consecutive probes (the second being an aggressive re-probe with a
// synthetic scroll event) or the attempt budget runs out.
func (l *rowLoader) loadAll(ctx context.Context, page renderer.PageRenderer, rowSelector string) {
	if clicked, err := page.ClickFirst(ctx, loadMoreSelectors); err == nil && clicked {
		log.Printf("row loader: clicked load-more control")
		sleepCtx(ctx, l.settle)
	}
	if changed, err := page.SetSelectMax(ctx, pageSizeSelectors); err == nil && changed {
		log.Printf("row loader: page size set to maximum")
		sleepCtx(ctx, l.settle)
	}

	prev := -1
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}
		if err := page.ScrollBottom(ctx, false); err != nil {
			return
		}
		sleepCtx(ctx, l.settle)

		n, err := page.CountNodes(ctx, rowSelector)
		if err != nil {
			return
		}
		if n != prev {
			prev = n
			continue
		}

		// Count held steady once: re-probe aggressively before concluding
		// the widget has nothing more to render.
		if err := page.ScrollBottom(ctx, true); err != nil {
			return
		}
		sleepCtx(ctx, l.settle)

		m, err := page.CountNodes(ctx, rowSelector)
		if err != nil || m == n {
			return
		}
		prev = m
	}
	log.Printf("row loader: attempt budget exhausted at %d rows", prev)
}
