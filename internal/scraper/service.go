// Package scraper owns the refresh pipeline: it decides when the cached
// record set is stale, drives the renderer and the extraction chain to
// produce a new one, and is the only writer of the scraped-data cache key
// and the scrape session state.
package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"parking-status-backend/config"
	"parking-status-backend/internal/cache"
	"parking-status-backend/internal/extract"
	"parking-status-backend/internal/model"
	"parking-status-backend/internal/notification"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
	"parking-status-backend/internal/store"
)

// CacheKey is the single cache entry the orchestrator owns.
const CacheKey = "parking:bay-records"

// Extractor produces a record set from a rendered page. The strategy chain
// implements it.
type Extractor interface {
	Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, string)
}

// Session is a snapshot of the scrape session state, created once at process
// start and mutated only by the orchestrator.
type Session struct {
	LastScrape        time.Time `json:"lastScrape"`
	ConsecutiveErrors int       `json:"consecutiveErrors"`
	LastError         string    `json:"lastError,omitempty"`
	LastStrategy      string    `json:"lastStrategy,omitempty"`
	LastSynthetic     bool      `json:"lastSynthetic"`
}

// Service orchestrates scraping and caching. The store and worker pool are
// optional collaborators; persistence and notifications are skipped when nil.
type Service struct {
	cfg   *config.Config
	cache *cache.Cache
	page  renderer.PageRenderer
	chain Extractor
	store store.Store
	pool  *notification.WorkerPool

	// Late concurrent callers share one in-flight scrape instead of each
	// triggering their own navigation.
	flight singleflight.Group

	mu      sync.Mutex
	session Session
}

// NewService wires an orchestrator from its collaborators.
func NewService(cfg *config.Config, c *cache.Cache, page renderer.PageRenderer, chain Extractor, st store.Store, pool *notification.WorkerPool) *Service {
	return &Service{
		cfg:   cfg,
		cache: c,
		page:  page,
		chain: chain,
		store: st,
		pool:  pool,
	}
}

// Refresh returns the current record set, scraping only when the cached one
// is stale. Callers always receive a record set (possibly synthetic); the
// only hard failure is the browser itself being unlaunchable.
func (s *Service) Refresh(ctx context.Context) ([]parking.RawBayRecord, error) {
	if records, ok := s.cachedFresh(); ok {
		return records, nil
	}

	v, err, _ := s.flight.Do(CacheKey, func() (any, error) {
		// A caller that queued behind the winning scrape finds fresh data here.
		if records, ok := s.cachedFresh(); ok {
			return records, nil
		}
		return s.scrape(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]parking.RawBayRecord), nil
}

// cachedFresh applies the double freshness check: the cache entry must be
// unexpired AND the last scrape must be younger than the scrape interval.
// The second check is the audit trail of observed success; it keeps the
// cadence honest even if the cache is cleared externally.
func (s *Service) cachedFresh() ([]parking.RawBayRecord, bool) {
	v, ok := s.cache.Get(CacheKey)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	lastScrape := s.session.LastScrape
	s.mu.Unlock()
	if lastScrape.IsZero() || time.Since(lastScrape) >= s.cfg.Scraper.Interval {
		return nil, false
	}

	records, ok := v.([]parking.RawBayRecord)
	return records, ok
}

// scrape performs one physical navigation + extraction cycle and caches the
// result.
func (s *Service) scrape(ctx context.Context) ([]parking.RawBayRecord, error) {
	started := time.Now()

	// The renderer failing to launch is the one fatal path: there is nothing
	// to render and nothing to intercept, so degrading would be a lie twice over.
	if err := s.page.Start(ctx); err != nil {
		s.recordFailure(fmt.Sprintf("renderer start: %v", err))
		return nil, fmt.Errorf("renderer unavailable: %w", err)
	}

	var records []parking.RawBayRecord
	var strategy string
	var scrapeErr string

	if err := s.page.Navigate(ctx, s.cfg.Scraper.SourceURL, s.cfg.Scraper.NavigationTimeout()); err != nil {
		// Navigation trouble degrades to the synthetic batch, same as total
		// extraction failure.
		log.Printf("navigation failed, substituting synthetic batch: %v", err)
		records, strategy = extract.SyntheticBatch(time.Now()), extract.StrategySynthetic
		scrapeErr = err.Error()
	} else {
		records, strategy = s.chain.Extract(ctx, s.page)
	}

	synthetic := strategy == extract.StrategySynthetic
	s.cache.Set(CacheKey, records, s.cfg.Scraper.CacheTTL)

	s.mu.Lock()
	s.session.LastScrape = time.Now()
	s.session.LastStrategy = strategy
	s.session.LastSynthetic = synthetic
	if synthetic {
		s.session.ConsecutiveErrors++
		s.session.LastError = scrapeErr
		if scrapeErr == "" {
			s.session.LastError = "all extraction strategies exhausted"
		}
	} else {
		s.session.ConsecutiveErrors = 0
		s.session.LastError = ""
	}
	s.mu.Unlock()

	s.persist(ctx, started, records, strategy, synthetic, scrapeErr)

	log.Printf("scrape cycle finished: %d records via %q in %v", len(records), strategy, time.Since(started))
	return records, nil
}

func (s *Service) recordFailure(msg string) {
	s.mu.Lock()
	s.session.ConsecutiveErrors++
	s.session.LastError = msg
	s.mu.Unlock()
}

// persist writes the scrape run audit row and, for live data, the bay state
// transitions. Persistence trouble never fails a scrape.
func (s *Service) persist(ctx context.Context, started time.Time, records []parking.RawBayRecord, strategy string, synthetic bool, scrapeErr string) {
	if s.store == nil {
		return
	}

	run := model.ScrapeRun{
		StartedAt:   started.UTC(),
		DurationMs:  time.Since(started).Milliseconds(),
		RecordCount: len(records),
		Strategy:    strategy,
		Synthetic:   synthetic,
		Error:       scrapeErr,
	}
	if err := s.store.RecordScrapeRun(ctx, run); err != nil {
		log.Printf("failed to record scrape run: %v", err)
	}

	// Synthetic batches never reach the state tables; they would poison the
	// occupancy history.
	if synthetic {
		return
	}

	freed, err := s.store.UpdateBayStates(ctx, time.Now().UTC(), records)
	if err != nil {
		log.Printf("failed to update bay states: %v", err)
		return
	}
	if s.pool != nil && len(freed) > 0 {
		log.Printf("dispatching notifications for %d freed bays", len(freed))
		for _, bayID := range freed {
			s.pool.Dispatch(bayID)
		}
	}
}

// Session returns a copy of the scrape session state for health reporting.
func (s *Service) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// CacheStats exposes the cache counters for the system endpoints.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

// Cleanup releases the renderer. Safe to call when the browser never
// started; a later Refresh lazily relaunches it.
func (s *Service) Cleanup() error {
	return s.page.Close()
}
