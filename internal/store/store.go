package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parking-status-backend/internal/model"
	"parking-status-backend/internal/parking"
	"parking-status-backend/internal/parse"
)

// Store defines the persistence operations behind the scrape pipeline.
type Store interface {
	// RecordScrapeRun appends one audit row per physical scrape cycle.
	RecordScrapeRun(ctx context.Context, run model.ScrapeRun) error

	// UpdateBayStates reconciles the open-state table against the latest
	// record set, archiving completed occupancy periods. It returns the ids
	// of bays that transitioned from occupied to available.
	UpdateBayStates(ctx context.Context, now time.Time, records []parking.RawBayRecord) ([]string, error)

	// DB exposes the underlying handle for the subscription handlers.
	DB() *gorm.DB
}

// gormStore implements Store using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) RecordScrapeRun(ctx context.Context, run model.ScrapeRun) error {
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record scrape run: %w", err)
	}
	return nil
}

// UpdateBayStates processes state transitions transactionally. A bay is
// tracked in the open table only while occupied; leaving it (or dropping out
// of the feed) archives the period and, for a clean occupied→available
// transition, marks the bay as freed.
func (s *gormStore) UpdateBayStates(ctx context.Context, now time.Time, records []parking.RawBayRecord) ([]string, error) {
	open, err := s.fetchOpenStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open bay states: %w", err)
	}

	var freed []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range records {
			occupied := rec.Status == parking.StatusOccupied
			old, tracked := open[rec.BayID]

			switch {
			case tracked && rec.Status != old.Status:
				if err := archiveState(tx, old, now); err != nil {
					return err
				}
				if occupied {
					updated := stateFromRecord(rec, now)
					if err := tx.Save(&updated).Error; err != nil {
						return fmt.Errorf("failed to update bay state %s: %w", rec.BayID, err)
					}
				} else {
					if err := tx.Delete(&model.BayState{}, "bay_id = ?", old.BayID).Error; err != nil {
						return fmt.Errorf("failed to delete bay state %s: %w", old.BayID, err)
					}
					freed = append(freed, rec.BayID)
				}

			case !tracked && occupied:
				created := stateFromRecord(rec, now)
				if err := tx.Create(&created).Error; err != nil {
					return fmt.Errorf("failed to create bay state %s: %w", rec.BayID, err)
				}
			}
			delete(open, rec.BayID)
		}

		// Bays still in the open table but gone from the feed: close out
		// their periods without a freed notification, since nothing observed
		// them become available.
		for _, remaining := range open {
			if err := archiveState(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.BayState{}, "bay_id = ?", remaining.BayID).Error; err != nil {
				return fmt.Errorf("failed to delete stale bay state %s: %w", remaining.BayID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return freed, nil
}

func (s *gormStore) fetchOpenStates(ctx context.Context) (map[string]model.BayState, error) {
	var states []model.BayState
	if err := s.db.WithContext(ctx).Find(&states).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]model.BayState, len(states))
	for _, st := range states {
		byID[st.BayID] = st
	}
	return byID, nil
}

func stateFromRecord(rec parking.RawBayRecord, now time.Time) model.BayState {
	return model.BayState{
		BayID:      rec.BayID,
		StMarkerID: rec.StMarkerID,
		Status:     rec.Status,
		Lat:        parse.Float(rec.Lat),
		Lon:        parse.Float(rec.Lon),
		Zone:       rec.Zone,
		ObservedAt: now,
	}
}

// archiveState writes the completed occupancy period to the history table.
func archiveState(tx *gorm.DB, state model.BayState, observedAt time.Time) error {
	record := model.BayStateHistory{
		BayID:       state.BayID,
		Status:      state.Status,
		ObservedAt:  observedAt,
		PeriodStart: state.ObservedAt,
		PeriodEnd:   observedAt,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to archive bay state %s: %w", state.BayID, err)
	}
	return nil
}
