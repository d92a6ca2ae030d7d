package renderer

import (
	"context"
	"time"
)

// PageRenderer is the narrow contract the scrape core drives a headless
// browser through. The core only hands over selectors and descriptors and
// gets plain values back; nothing it supplies executes in the page.
type PageRenderer interface {
	// Start launches the browser if it is not already running. A failure
	// here is the only renderer error the orchestrator treats as fatal.
	Start(ctx context.Context) error

	// Navigate loads url, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// WaitVisible blocks until selector matches a visible node or timeout
	// elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// HTML returns the rendered document markup.
	HTML(ctx context.Context) (string, error)

	// InlineScripts returns the text content of every inline <script> tag.
	InlineScripts(ctx context.Context) ([]string, error)

	// CountNodes returns how many nodes currently match selector.
	CountNodes(ctx context.Context, selector string) (int, error)

	// ClickFirst clicks the first visible match among the candidate
	// selectors, reporting whether anything was clicked.
	ClickFirst(ctx context.Context, selectors []string) (bool, error)

	// SetSelectMax sets the first matching <select> to its largest numeric
	// option, reporting whether a control was found.
	SetSelectMax(ctx context.Context, selectors []string) (bool, error)

	// ScrollBottom scrolls the document and any inner scrollable container to
	// the bottom. When aggressive, it additionally dispatches a synthetic
	// scroll event to wake virtualized widgets.
	ScrollBottom(ctx context.Context, aggressive bool) error

	// Reload reloads the current page, bounded by timeout.
	Reload(ctx context.Context, timeout time.Duration) error

	// CollectJSONResponses reloads the page and gathers the bodies of JSON
	// network responses whose URL satisfies match. It concludes after quiet
	// time passes with no new matching response, bounded by max overall.
	CollectJSONResponses(ctx context.Context, match func(url string) bool, quiet, max time.Duration) ([][]byte, error)

	// Close tears the browser down. Safe to call when never started; a later
	// Start relaunches from scratch.
	Close() error
}
