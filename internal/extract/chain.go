// Package extract turns a rendered parking page into normalized bay records.
// The upstream table is a third-party, versioned front-end widget that changes
// without notice, so extraction runs as an ordered chain of strategies with
// progressively weaker assumptions about page structure, ending in a
// synthetic fallback batch when everything else comes up empty.
package extract

import (
	"context"
	"log"
	"time"

	"parking-status-backend/config"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/renderer"
)

// StrategySynthetic is the strategy name reported when the fallback batch was
// used.
const StrategySynthetic = "synthetic"

// Strategy is one attempt at reading bay records off a rendered page.
// Returning no records (or an error) hands over to the next strategy.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, error)
}

// Chain runs strategies in a fixed order and stops at the first one that
// yields at least one valid record.
type Chain struct {
	strategies []Strategy
}

// NewChain builds the standard strategy order: direct table scan, generic
// table scan, embedded-JSON scan, API interception.
func NewChain(cfg *config.ScraperConfig) *Chain {
	loader := &rowLoader{
		maxAttempts: cfg.MaxScrollAttempts,
		settle:      cfg.ScrollSettle(),
	}
	return &Chain{strategies: []Strategy{
		&tableStrategy{selectorTimeout: cfg.SelectorTimeout(), loader: loader},
		&genericTableStrategy{loader: loader},
		&embeddedJSONStrategy{},
		&interceptStrategy{quiet: cfg.InterceptQuiet(), max: cfg.InterceptMax()},
	}}
}

// Extract drives the chain. It always returns a non-empty record set: if
// every strategy fails the synthetic fallback batch is substituted. The
// returned strategy name identifies the winner, StrategySynthetic for the
// fallback.
func (c *Chain) Extract(ctx context.Context, page renderer.PageRenderer) ([]parking.RawBayRecord, string) {
	for _, s := range c.strategies {
		records, err := runStrategy(ctx, s, page)
		if err != nil {
			log.Printf("extraction strategy %q failed: %v", s.Name(), err)
			continue
		}
		if len(records) == 0 {
			log.Printf("extraction strategy %q yielded no records", s.Name())
			continue
		}
		log.Printf("extraction strategy %q yielded %d records", s.Name(), len(records))
		return records, s.Name()
	}

	log.Printf("all extraction strategies exhausted, substituting synthetic batch")
	return SyntheticBatch(time.Now()), StrategySynthetic
}

// runStrategy isolates a strategy invocation: a panicking strategy counts as
// an empty result rather than aborting the chain.
func runStrategy(ctx context.Context, s Strategy, page renderer.PageRenderer) (records []parking.RawBayRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extraction strategy %q panicked: %v", s.Name(), r)
			records, err = nil, nil
		}
	}()
	return s.Extract(ctx, page)
}

// keep filters a candidate batch down to the records that survive validation.
func keep(candidates []parking.RawBayRecord) []parking.RawBayRecord {
	var out []parking.RawBayRecord
	for _, r := range candidates {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// sleepCtx pauses for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
