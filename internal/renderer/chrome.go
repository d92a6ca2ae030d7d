package renderer

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Chrome drives a headless Chrome/Chromium process via chromedp. The browser
// is launched lazily on first use and lives until Close; it must not be torn
// down while a cycle is in flight.
type Chrome struct {
	headless bool
	execPath string

	mu            sync.Mutex
	started       bool
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewChrome creates an unstarted browser handle.
func NewChrome(headless bool, execPath string) *Chrome {
	return &Chrome{headless: headless, execPath: execPath}
}

// Start launches the browser process if needed.
func (c *Chrome) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(ctx)
}

func (c *Chrome) ensureLocked(ctx context.Context) error {
	if c.started {
		return nil
	}

	bin := c.execPath
	if bin == "" {
		bin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(defaultUserAgent),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// Run a no-op so the process actually starts, and enable network events
	// for response interception.
	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.allocCancel = allocCancel
	c.started = true
	log.Printf("browser launched (headless=%v, bin=%q)", c.headless, bin)
	return nil
}

// session returns the live browser context, starting the browser if needed.
func (c *Chrome) session(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLocked(ctx); err != nil {
		return nil, err
	}
	return c.browserCtx, nil
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bctx, err := c.session(ctx)
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		bctx, cancel = context.WithTimeout(bctx, timeout)
		defer cancel()
	}
	return chromedp.Run(bctx, actions...)
}

// Navigate loads url, bounded by timeout.
func (c *Chrome) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := c.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until selector matches a visible node or timeout elapses.
func (c *Chrome) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return c.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// HTML returns the rendered document markup.
func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, 10*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// InlineScripts returns the text content of every inline <script> tag.
func (c *Chrome) InlineScripts(ctx context.Context) ([]string, error) {
	var scripts []string
	js := `Array.from(document.querySelectorAll('script:not([src])')).map(function(s){ return s.textContent || ''; })`
	if err := c.run(ctx, 10*time.Second, chromedp.Evaluate(js, &scripts)); err != nil {
		return nil, err
	}
	return scripts, nil
}

// CountNodes returns how many nodes currently match selector.
func (c *Chrome) CountNodes(ctx context.Context, selector string) (int, error) {
	var count int
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, strconv.Quote(selector))
	if err := c.run(ctx, 5*time.Second, chromedp.Evaluate(js, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// ClickFirst clicks the first visible match among the candidate selectors.
func (c *Chrome) ClickFirst(ctx context.Context, selectors []string) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(function() {
		var candidates = %s;
		for (var i = 0; i < candidates.length; i++) {
			var el = document.querySelector(candidates[i]);
			if (el && el.offsetParent !== null) {
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsStringArray(selectors))
	if err := c.run(ctx, 5*time.Second, chromedp.Evaluate(js, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

// SetSelectMax sets the first matching <select> to its largest numeric option
// and fires a change event so the widget repaginates.
func (c *Chrome) SetSelectMax(ctx context.Context, selectors []string) (bool, error) {
	var changed bool
	js := fmt.Sprintf(`(function() {
		var candidates = %s;
		for (var i = 0; i < candidates.length; i++) {
			var sel = document.querySelector(candidates[i]);
			if (!sel || !sel.options || sel.options.length === 0) continue;
			var best = -1, bestIdx = -1;
			for (var j = 0; j < sel.options.length; j++) {
				var n = parseInt(sel.options[j].value, 10);
				if (!isNaN(n) && n > best) { best = n; bestIdx = j; }
			}
			if (bestIdx < 0) continue;
			sel.selectedIndex = bestIdx;
			sel.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
		return false;
	})()`, jsStringArray(selectors))
	if err := c.run(ctx, 5*time.Second, chromedp.Evaluate(js, &changed)); err != nil {
		return false, err
	}
	return changed, nil
}

// ScrollBottom scrolls the document body and the tallest inner scrollable
// container to the bottom. In aggressive mode it also dispatches a synthetic
// scroll event, which some virtualized widgets need before rendering more rows.
func (c *Chrome) ScrollBottom(ctx context.Context, aggressive bool) error {
	js := fmt.Sprintf(`(function() {
		window.scrollTo(0, document.body.scrollHeight);
		var containers = document.querySelectorAll('div, section');
		var target = null;
		for (var i = 0; i < containers.length; i++) {
			var el = containers[i];
			if (el.scrollHeight > el.clientHeight + 50 && (!target || el.scrollHeight > target.scrollHeight)) {
				target = el;
			}
		}
		if (target) target.scrollTop = target.scrollHeight;
		if (%t) {
			(target || window).dispatchEvent(new Event('scroll', { bubbles: true }));
			window.dispatchEvent(new Event('scroll'));
		}
		return true;
	})()`, aggressive)
	var ok bool
	return c.run(ctx, 5*time.Second, chromedp.Evaluate(js, &ok))
}

// Reload reloads the current page, bounded by timeout.
func (c *Chrome) Reload(ctx context.Context, timeout time.Duration) error {
	return c.run(ctx, timeout, chromedp.Reload())
}

// CollectJSONResponses reloads the page while recording the bodies of JSON
// responses whose URL satisfies match. It returns once quiet time passes with
// no new matching response, or when max elapses.
func (c *Chrome) CollectJSONResponses(ctx context.Context, match func(url string) bool, quiet, max time.Duration) ([][]byte, error) {
	bctx, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var bodies [][]byte
	lastMatch := time.Now()

	listenCtx, stopListening := context.WithCancel(bctx)
	defer stopListening()

	target := chromedp.FromContext(bctx)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		if !strings.Contains(strings.ToLower(resp.Response.MimeType), "json") {
			return
		}
		if !match(resp.Response.URL) {
			return
		}
		requestID := resp.RequestID
		// Body retrieval must happen outside the event handler, which runs on
		// the browser's message loop.
		go func() {
			ectx := cdp.WithExecutor(bctx, target.Target)
			body, err := network.GetResponseBody(requestID).Do(ectx)
			if err != nil || len(body) == 0 {
				return
			}
			mu.Lock()
			bodies = append(bodies, body)
			lastMatch = time.Now()
			mu.Unlock()
		}()
	})

	// The whole window, reload included, is bounded by max.
	deadline := time.NewTimer(max)
	defer deadline.Stop()

	if err := c.Reload(ctx, max); err != nil {
		return nil, fmt.Errorf("reload for interception failed: %w", err)
	}

	collected := func() [][]byte {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]byte, len(bodies))
		copy(out, bodies)
		return out
	}
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return collected(), ctx.Err()
		case <-deadline.C:
			return collected(), nil
		case <-tick.C:
			mu.Lock()
			n := len(bodies)
			idle := time.Since(lastMatch)
			mu.Unlock()
			if n > 0 && idle >= quiet {
				return collected(), nil
			}
		}
	}
}

// Close shuts the browser down and resets the lazy-init state so a later
// Start relaunches it. Safe to call when never started.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.browserCancel()
	c.allocCancel()
	c.browserCtx = nil
	c.browserCancel = nil
	c.allocCancel = nil
	c.started = false
	log.Println("browser closed")
	return nil
}

func jsStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

// findChromeBinary locates a Chrome/Chromium binary on the host.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
