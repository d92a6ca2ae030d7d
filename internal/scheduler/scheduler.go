// Package scheduler runs the scrape pipeline on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"parking-status-backend/internal/parking"
)

// Scheduler triggers periodic refreshes of the bay data. Overlapping runs
// are never allowed: if a cycle is still in flight when the next tick fires,
// the tick is counted as skipped and dropped.
type Scheduler struct {
	source   parking.Refresher
	interval time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
	running atomic.Bool

	mu            sync.Mutex
	started       bool
	scrapeCount   int64
	errorCount    int64
	skippedCount  int64
	lastRunAt     time.Time
	lastError     string
	lastErrorTime time.Time
}

// Status is a point-in-time snapshot of the scheduler's counters.
type Status struct {
	Running         bool      `json:"running"`
	IntervalMinutes float64   `json:"interval_minutes"`
	ScrapeCount     int64     `json:"scrape_count"`
	ErrorCount      int64     `json:"error_count"`
	SkippedCount    int64     `json:"skipped_count"`
	LastRunAt       time.Time `json:"last_run_at"`
	NextRunAt       time.Time `json:"next_run_at"`
	LastError       string    `json:"last_error,omitempty"`
	LastErrorTime   time.Time `json:"last_error_time,omitempty"`
}

// New creates a scheduler that refreshes source every interval.
func New(source parking.Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		source:   source,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start registers the cron entry and kicks off an immediate first cycle so
// the cache is warm before the first tick.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	id, err := s.cron.AddFunc(spec, func() { s.ExecuteScrape(context.Background()) })
	if err != nil {
		return fmt.Errorf("failed to schedule scrape job: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.started = true

	go s.ExecuteScrape(context.Background())

	log.Printf("Scheduler started, scraping every %s", s.interval)
	return nil
}

// Stop halts the cron loop. A cycle already in flight is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	log.Println("Scheduler stopped")
}

// ExecuteScrape runs one refresh cycle. It returns immediately when a cycle
// is already running.
func (s *Scheduler) ExecuteScrape(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.skippedCount++
		s.mu.Unlock()
		log.Println("Scrape cycle still in progress, skipping this tick")
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	_, err := s.source.Refresh(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunAt = start
	if err != nil {
		s.errorCount++
		s.lastError = err.Error()
		s.lastErrorTime = time.Now()
		log.Printf("Scheduled scrape failed: %v", err)
		return
	}
	s.scrapeCount++
	log.Printf("Scheduled scrape completed in %s", time.Since(start).Round(time.Millisecond))
}

// Status reports the current counters and the next scheduled run.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:         s.started,
		IntervalMinutes: s.interval.Minutes(),
		ScrapeCount:     s.scrapeCount,
		ErrorCount:      s.errorCount,
		SkippedCount:    s.skippedCount,
		LastRunAt:       s.lastRunAt,
		LastError:       s.lastError,
		LastErrorTime:   s.lastErrorTime,
	}
	if s.started {
		st.NextRunAt = s.cron.Entry(s.entryID).Next
	}
	return st
}
