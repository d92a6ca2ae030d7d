package model

import "time"

// BayState is the current occupancy of a bay (hot table). A row exists only
// while the bay is occupied; an absent row means available.
type BayState struct {
	BayID      string    `gorm:"primaryKey;size:64"`
	StMarkerID string    `gorm:"size:64"`
	Status     string    `gorm:"size:32;not null"`
	Lat        float64   `gorm:"not null"`
	Lon        float64   `gorm:"not null"`
	Zone       string    `gorm:"size:16"`
	ObservedAt time.Time `gorm:"not null"`
}

// BayStateHistory is the archived log of completed occupancy periods (cold
// table).
type BayStateHistory struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	BayID       string    `gorm:"size:64;not null;index"`
	Status      string    `gorm:"size:32;not null"`
	ObservedAt  time.Time `gorm:"not null;index"` // when the state's end was observed
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`
}
