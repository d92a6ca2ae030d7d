package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-status-backend/config"
	"parking-status-backend/internal/cache"
	"parking-status-backend/internal/extract"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
)

// stubPage satisfies renderer.PageRenderer without a browser. Navigation
// latency and error injection are configurable per test.
type stubPage struct {
	startErr    error
	navErr      error
	navDelay    time.Duration
	navigations int64
	closed      int64
}

func (p *stubPage) Start(context.Context) error { return p.startErr }

func (p *stubPage) Navigate(ctx context.Context, _ string, _ time.Duration) error {
	atomic.AddInt64(&p.navigations, 1)
	if p.navDelay > 0 {
		select {
		case <-time.After(p.navDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.navErr
}

func (p *stubPage) WaitVisible(context.Context, string, time.Duration) error { return nil }
func (p *stubPage) HTML(context.Context) (string, error)                     { return "", nil }
func (p *stubPage) InlineScripts(context.Context) ([]string, error)          { return nil, nil }
func (p *stubPage) CountNodes(context.Context, string) (int, error)          { return 0, nil }
func (p *stubPage) ClickFirst(context.Context, []string) (bool, error)       { return false, nil }
func (p *stubPage) SetSelectMax(context.Context, []string) (bool, error)     { return false, nil }
func (p *stubPage) ScrollBottom(context.Context, bool) error                 { return nil }
func (p *stubPage) Reload(context.Context, time.Duration) error              { return nil }

func (p *stubPage) CollectJSONResponses(context.Context, func(string) bool, time.Duration, time.Duration) ([][]byte, error) {
	return nil, nil
}

func (p *stubPage) Close() error {
	atomic.AddInt64(&p.closed, 1)
	return nil
}

// stubChain returns a fixed record set and counts invocations.
type stubChain struct {
	mu      sync.Mutex
	calls   int
	records []parking.RawBayRecord
}

func (c *stubChain) Extract(context.Context, renderer.PageRenderer) ([]parking.RawBayRecord, string) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.records, "table-scan"
}

func (c *stubChain) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func liveRecords() []parking.RawBayRecord {
	return []parking.RawBayRecord{
		{BayID: "1", Status: parking.StatusAvailable, Lat: "-37.81", Lon: "144.96"},
		{BayID: "2", Status: parking.StatusOccupied, Lat: "-37.82", Lon: "144.97"},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Scraper: config.ScraperConfig{
			SourceURL: "https://example.com/parking",
			Interval:  time.Minute,
			CacheTTL:  time.Minute,
		},
	}
}

func newTestService(page renderer.PageRenderer, chain Extractor) *Service {
	return NewService(testConfig(), cache.New(), page, chain, nil, nil)
}

func TestRefreshScrapesOnceThenServesFromCache(t *testing.T) {
	page := &stubPage{}
	chain := &stubChain{records: liveRecords()}
	svc := newTestService(page, chain)

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, int64(1), atomic.LoadInt64(&page.navigations))

	second, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&page.navigations), "fresh cache skips navigation")
	assert.Equal(t, 1, chain.callCount())

	session := svc.Session()
	assert.Equal(t, "table-scan", session.LastStrategy)
	assert.False(t, session.LastSynthetic)
	assert.Zero(t, session.ConsecutiveErrors)
}

func TestRefreshSharesSingleScrapeAcrossConcurrentCallers(t *testing.T) {
	page := &stubPage{navDelay: 50 * time.Millisecond}
	chain := &stubChain{records: liveRecords()}
	svc := newTestService(page, chain)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&page.navigations),
		"concurrent callers share one in-flight scrape")
	assert.Equal(t, 1, chain.callCount())
}

func TestRefreshDegradesToSyntheticOnNavigationFailure(t *testing.T) {
	page := &stubPage{navErr: errors.New("net::ERR_CONNECTION_REFUSED")}
	chain := &stubChain{records: liveRecords()}
	svc := newTestService(page, chain)

	records, err := svc.Refresh(context.Background())
	require.NoError(t, err, "navigation failure is not a hard error")
	require.Len(t, records, extract.SyntheticBatchSize)
	assert.True(t, parking.IsSyntheticBatch(records))
	assert.Equal(t, 0, chain.callCount(), "extraction never runs on a dead page")

	session := svc.Session()
	assert.True(t, session.LastSynthetic)
	assert.Equal(t, extract.StrategySynthetic, session.LastStrategy)
	assert.Equal(t, 1, session.ConsecutiveErrors)
	assert.Contains(t, session.LastError, "ERR_CONNECTION_REFUSED")
}

func TestRefreshFailsHardWhenRendererCannotStart(t *testing.T) {
	page := &stubPage{startErr: errors.New("chrome executable not found")}
	chain := &stubChain{records: liveRecords()}
	svc := newTestService(page, chain)

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer unavailable")
	assert.Equal(t, 1, svc.Session().ConsecutiveErrors)
}

func TestSyntheticDoesNotResetAfterRecovery(t *testing.T) {
	page := &stubPage{navErr: errors.New("timeout")}
	chain := &stubChain{records: liveRecords()}
	cfg := testConfig()
	cfg.Scraper.Interval = 0 // every Refresh is stale
	svc := NewService(cfg, cache.New(), page, chain, nil, nil)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, svc.Session().ConsecutiveErrors, "synthetic cycles accumulate")

	page.navErr = nil
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Zero(t, svc.Session().ConsecutiveErrors, "a live scrape clears the error streak")
	assert.False(t, svc.Session().LastSynthetic)
}

func TestCleanupClosesRenderer(t *testing.T) {
	page := &stubPage{}
	svc := newTestService(page, &stubChain{})

	require.NoError(t, svc.Cleanup())
	assert.Equal(t, int64(1), atomic.LoadInt64(&page.closed))
}

func TestCacheStatsReflectLookups(t *testing.T) {
	page := &stubPage{}
	chain := &stubChain{records: liveRecords()}
	svc := newTestService(page, chain)

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)

	stats := svc.CacheStats()
	assert.Equal(t, uint64(1), stats.Sets)
	assert.GreaterOrEqual(t, stats.Hits, uint64(1))
}
